package session

import (
	"context"
	"errors"
	"fmt"

	"courier-dispatch/internal/entities"
	"courier-dispatch/internal/repository/fanout"
	"courier-dispatch/internal/service/session"
	"courier-dispatch/pkg/logger"
	"courier-dispatch/pkg/retrier"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionChangedChannel - канал pg_notify, триггер на courier_sessions шлет в payload ID курьера.
const SessionChangedChannel = "courier_session_changed"

const refreshBuffer = 64

type sessionReader interface {
	Get(ctx context.Context, courierID string) (*entities.CourierSession, error)
}

// Listener держит отдельное соединение с LISTEN и раздает подписчикам свежие снимки сессий.
// Чтение и раздача идут в одной горутине, поэтому снимки одной сессии приходят по порядку.
type Listener struct {
	pool    *pgxpool.Pool
	reader  sessionReader
	retrier retrier.Retrier
	log     logger.Logger

	subs    *fanout.Registry
	refresh chan string
}

func NewListener(pool *pgxpool.Pool, reader sessionReader, retrier retrier.Retrier, log logger.Logger) *Listener {
	return &Listener{
		pool:    pool,
		reader:  reader,
		retrier: retrier,
		log:     log.With(logger.NewField("channel", SessionChangedChannel)),
		subs:    fanout.NewRegistry(),
		refresh: make(chan string, refreshBuffer),
	}
}

// Subscribe требует запущенный Run: начальный снимок читает горутина слушателя.
func (l *Listener) Subscribe(ctx context.Context, courierID string, onChange entities.SessionChangeFunc) (entities.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	unsubscribe := l.subs.Add(courierID, fanout.NewQueue(onChange))

	select {
	case l.refresh <- courierID:
	case <-ctx.Done():
		unsubscribe()
		return nil, ctx.Err()
	}

	return fanout.Handle(unsubscribe), nil
}

// Run слушает уведомления до отмены ctx, при обрыве соединения переподключается.
func (l *Listener) Run(ctx context.Context) error {
	for {
		var conn *pgxpool.Conn
		err := l.retrier.ExecuteWithContext(ctx, func(ctx context.Context) error {
			c, err := l.connect(ctx)
			if err != nil {
				l.log.Warn("session listener connect failed", logger.NewField("error", err))
				return err
			}
			conn = c
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("session listener: %w", err)
		}

		l.log.Info("session listener started")
		err = l.serve(ctx, conn)
		conn.Release()

		if ctx.Err() != nil {
			l.log.Info("session listener stopped")
			return nil
		}
		l.log.Warn("session listener connection lost", logger.NewField("error", err))
	}
}

func (l *Listener) connect(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	_, err = conn.Exec(ctx, "LISTEN "+SessionChangedChannel)
	if err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen: %w", err)
	}
	return conn, nil
}

func (l *Listener) serve(ctx context.Context, conn *pgxpool.Conn) error {
	// пока соединения не было, уведомления могли потеряться
	for _, courierID := range l.subs.CourierIDs() {
		l.deliver(ctx, courierID)
	}

	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifications := make(chan string)
	waitErr := make(chan error, 1)
	go func() {
		for {
			n, err := conn.Conn().WaitForNotification(waitCtx)
			if err != nil {
				waitErr <- err
				return
			}
			select {
			case notifications <- n.Payload:
			case <-waitCtx.Done():
				waitErr <- waitCtx.Err()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			cancel()
			<-waitErr
			return ctx.Err()
		case err := <-waitErr:
			return err
		case courierID := <-notifications:
			l.deliver(ctx, courierID)
		case courierID := <-l.refresh:
			l.deliver(ctx, courierID)
		}
	}
}

func (l *Listener) deliver(ctx context.Context, courierID string) {
	queues := l.subs.Queues(courierID)
	if len(queues) == 0 {
		return
	}

	current, err := l.reader.Get(ctx, courierID)
	if errors.Is(err, session.ErrSessionNotFound) {
		current, err = nil, nil
	}
	if err != nil {
		l.log.Warn("read changed session failed",
			logger.NewField("courier_id", courierID),
			logger.NewField("error", err),
		)
	}

	for _, q := range queues {
		q.Push(current.Clone(), err)
	}
}

// Store - репозиторий сессий вместе с подпиской на изменения.
type Store struct {
	*Repository
	*Listener
}

func NewStore(repository *Repository, listener *Listener) *Store {
	return &Store{
		Repository: repository,
		Listener:   listener,
	}
}
