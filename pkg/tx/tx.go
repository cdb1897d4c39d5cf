package tx

import (
	"context"
	"time"

	"github.com/avito-tech/go-transaction-manager/pgxv5"
	"github.com/avito-tech/go-transaction-manager/trm/manager"
	"github.com/avito-tech/go-transaction-manager/trm/settings"
	"github.com/jackc/pgx/v5"
)

// Manager открывает транзакции для операций над сессией курьера.
// Вложенный Do переиспользует транзакцию из контекста.
type Manager struct {
	internal *manager.Manager
	settings pgxv5.Settings
}

// New создаёт менеджер; timeout ограничивает одну транзакцию, 0 - без ограничения.
func New(db pgxv5.Transactional, timeout time.Duration) *Manager {
	opts := []settings.Opt{}
	if timeout > 0 {
		opts = append(opts, settings.WithTimeout(timeout))
	}

	txSettings := pgxv5.MustSettings(
		settings.Must(opts...),
		// конкурентные записи сессии разрешаются условием на version, а не уровнем изоляции
		pgxv5.WithTxOptions(pgx.TxOptions{IsoLevel: pgx.ReadCommitted}),
	)

	return &Manager{
		internal: manager.Must(pgxv5.NewDefaultFactory(db)),
		settings: txSettings,
	}
}

func (m *Manager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return m.internal.DoWithSettings(ctx, m.settings, fn)
}
