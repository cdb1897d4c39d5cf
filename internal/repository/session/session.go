package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"courier-dispatch/internal/entities"
	"courier-dispatch/internal/repository"
	"courier-dispatch/internal/service/session"
	"courier-dispatch/pkg/geohash"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

var qb sq.StatementBuilderType = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var sessionColumns = []string{
	"courier_id",
	"lat",
	"lng",
	"geohash",
	"busy",
	"assigned_task",
	"assigned_task_id",
	"offer_deadline",
	"version",
	"updated_at",
}

type Repository struct {
	querier Querier
}

func New(querier Querier) *Repository {
	return &Repository{
		querier: querier,
	}
}

func (r *Repository) Get(ctx context.Context, courierID string) (*entities.CourierSession, error) {
	builder := qb.
		Select(sessionColumns...).
		From("courier_sessions").
		Where(sq.Eq{"courier_id": courierID})

	var model SessionDB
	err := scanSession(r.querier.QueryRow(ctx, builder), &model)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, session.ErrSessionNotFound
		}
		return nil, fmt.Errorf("unexpected session repository get error: %w", err)
	}

	return ToDomain(&model), nil
}

// Set с merge=true меняет только переданные поля существующей сессии,
// с merge=false заменяет документ целиком или создает его.
func (r *Repository) Set(ctx context.Context, courierID string, modify entities.SessionModify, merge bool) error {
	if merge {
		builder := applyModify(qb.Update("courier_sessions"), modify).
			Set("version", sq.Expr("version + 1")).
			Set("updated_at", sq.Expr("NOW()")).
			Where(sq.Eq{"courier_id": courierID})

		affected, err := r.querier.Exec(ctx, builder)
		if err != nil {
			return fmt.Errorf("unexpected session repository set error: %w", err)
		}
		if affected == 0 {
			return session.ErrSessionNotFound
		}
		return nil
	}

	if modify.Location == nil {
		return session.ErrInvalidLocation
	}

	var (
		busy     bool
		task     *TaskDB
		taskID   *string
		deadline *time.Time
	)
	if modify.Busy != nil {
		busy = *modify.Busy
	}
	if modify.AssignedTask != nil && !modify.ClearAssignedTask {
		task = FromDomainTask(modify.AssignedTask)
		taskID = &modify.AssignedTask.ID
		deadline = modify.AssignedTask.ConfirmationDeadline
	}

	builder := qb.
		Insert("courier_sessions").
		Columns(sessionColumns...).
		Values(
			courierID,
			modify.Location.Lat,
			modify.Location.Lng,
			geohash.Encode(modify.Location.Lat, modify.Location.Lng),
			busy,
			task,
			taskID,
			deadline,
			1,
			sq.Expr("NOW()"),
		).
		Suffix(`ON CONFLICT (courier_id) DO UPDATE SET
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			geohash = EXCLUDED.geohash,
			busy = EXCLUDED.busy,
			assigned_task = EXCLUDED.assigned_task,
			assigned_task_id = EXCLUDED.assigned_task_id,
			offer_deadline = EXCLUDED.offer_deadline,
			version = courier_sessions.version + 1,
			updated_at = NOW()`)

	_, err := r.querier.Exec(ctx, builder)
	if err != nil {
		return fmt.Errorf("unexpected session repository set error: %w", err)
	}
	return nil
}

func (r *Repository) CompareAndSet(ctx context.Context, courierID string, expectedVersion int64, modify entities.SessionModify) error {
	builder := applyModify(qb.Update("courier_sessions"), modify).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"courier_id": courierID, "version": expectedVersion})

	affected, err := r.querier.Exec(ctx, builder)
	if err != nil {
		if repository.IsConcurrentUpdate(err) {
			return session.ErrVersionConflict
		}
		return fmt.Errorf("unexpected session repository compare and set error: %w", err)
	}
	if affected > 0 {
		return nil
	}

	var exists bool
	err = r.querier.QueryRow(ctx,
		sq.Expr("SELECT EXISTS (SELECT 1 FROM courier_sessions WHERE courier_id = ?)", courierID),
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("unexpected session repository compare and set error: %w", err)
	}
	if !exists {
		return session.ErrSessionNotFound
	}
	return session.ErrVersionConflict
}

func (r *Repository) Delete(ctx context.Context, courierID string) error {
	affected, err := r.querier.Exec(ctx, qb.
		Delete("courier_sessions").
		Where(sq.Eq{"courier_id": courierID}))
	if err != nil {
		return fmt.Errorf("unexpected session repository delete error: %w", err)
	}
	if affected == 0 {
		return session.ErrSessionNotFound
	}
	return nil
}

// RangeScan возвращает сессии с geohash в [start, end]. Колонка geohash в COLLATE "C",
// поэтому сравнение побайтовое, как у ключей geohash.
func (r *Repository) RangeScan(ctx context.Context, start, end string) ([]entities.CourierSession, error) {
	return r.querySessions(ctx, qb.
		Select(sessionColumns...).
		From("courier_sessions").
		Where(sq.GtOrEq{"geohash": start}).
		Where(sq.LtOrEq{"geohash": end}).
		OrderBy("geohash"))
}

func (r *Repository) ListExpiredOffers(ctx context.Context, before time.Time) ([]entities.CourierSession, error) {
	return r.querySessions(ctx, qb.
		Select(sessionColumns...).
		From("courier_sessions").
		Where(sq.Eq{"busy": false}).
		Where(sq.NotEq{"offer_deadline": nil}).
		Where(sq.Lt{"offer_deadline": before}).
		OrderBy("courier_id"))
}

func (r *Repository) AppendTaskEvent(ctx context.Context, event entities.TaskEvent) error {
	_, err := r.querier.Exec(ctx, qb.
		Insert("task_events").
		Columns("task_id", "courier_id", "status", "created_at").
		Values(event.TaskID, event.CourierID, event.Status.String(), event.CreatedAt))
	if err != nil {
		return fmt.Errorf("unexpected task event repository append error: %w", err)
	}
	return nil
}

func (r *Repository) ListTaskEvents(ctx context.Context, taskID string) ([]entities.TaskEvent, error) {
	rows, err := r.querier.Query(ctx, qb.
		Select("task_id", "courier_id", "status", "created_at").
		From("task_events").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("created_at", "id"))
	if err != nil {
		return nil, fmt.Errorf("unexpected task event repository list error: %w", err)
	}
	defer rows.Close()

	events := make([]entities.TaskEvent, 0, 4)
	for rows.Next() {
		var (
			event  entities.TaskEvent
			status string
		)
		err := rows.Scan(&event.TaskID, &event.CourierID, &status, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("unexpected task event repository list error: %w", err)
		}
		event.Status = entities.TaskStatusType(status)
		event.CreatedAt = event.CreatedAt.UTC()
		events = append(events, event)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("unexpected task event repository list error: %w", err)
	}
	return events, nil
}

func (r *Repository) querySessions(ctx context.Context, builder sq.SelectBuilder) ([]entities.CourierSession, error) {
	rows, err := r.querier.Query(ctx, builder)
	if err != nil {
		return nil, fmt.Errorf("unexpected session repository query error: %w", err)
	}
	defer rows.Close()

	models := make([]SessionDB, 0, 8)
	for rows.Next() {
		var model SessionDB
		if err := scanSession(rows, &model); err != nil {
			return nil, fmt.Errorf("unexpected session repository scan error: %w", err)
		}
		models = append(models, model)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("unexpected session repository query error: %w", err)
	}
	return ToDomainList(models), nil
}

func applyModify(builder sq.UpdateBuilder, modify entities.SessionModify) sq.UpdateBuilder {
	if modify.Location != nil {
		builder = builder.
			Set("lat", modify.Location.Lat).
			Set("lng", modify.Location.Lng).
			Set("geohash", geohash.Encode(modify.Location.Lat, modify.Location.Lng))
	}
	if modify.Busy != nil {
		builder = builder.Set("busy", *modify.Busy)
	}

	switch {
	case modify.ClearAssignedTask:
		builder = builder.
			Set("assigned_task", nil).
			Set("assigned_task_id", nil).
			Set("offer_deadline", nil)
	case modify.AssignedTask != nil:
		builder = builder.
			Set("assigned_task", FromDomainTask(modify.AssignedTask)).
			Set("assigned_task_id", modify.AssignedTask.ID).
			Set("offer_deadline", modify.AssignedTask.ConfirmationDeadline)
	}
	return builder
}

func scanSession(row pgx.Row, model *SessionDB) error {
	return row.Scan(
		&model.CourierID,
		&model.Lat,
		&model.Lng,
		&model.Geohash,
		&model.Busy,
		&model.AssignedTask,
		&model.AssignedTaskID,
		&model.OfferDeadline,
		&model.Version,
		&model.UpdatedAt,
	)
}
