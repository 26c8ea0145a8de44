// notify.go — сигнал downstream-конвейеру о новой записи в очереди.
//
// Сигнал best-effort: долговечный источник истины — строка журнала
// со статусом queued, конвейер дополнительно опрашивает таблицу и
// переживает потерянное уведомление.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bigkaa/goforecast/intake-module/internal/repository"
)

// Notifier — абстракция сигнала «в очереди появилась работа».
// Отвязывает Intake Module от конкретного механизма автоматизации.
type Notifier interface {
	// NotifyQueued отправляет сигнал об одной принятой загрузке.
	// Вызывается ровно один раз, строго после коммита вставки в журнал.
	NotifyQueued(ctx context.Context, digest string) error
}

// PGNotifier — реализация Notifier через PostgreSQL NOTIFY.
// Payload — дайджест принятой загрузки, канал задаётся конфигурацией.
type PGNotifier struct {
	db      repository.DBTX
	channel string
	logger  *slog.Logger
}

// NewPGNotifier создаёт Notifier поверх pg_notify.
func NewPGNotifier(db repository.DBTX, channel string, logger *slog.Logger) *PGNotifier {
	return &PGNotifier{
		db:      db,
		channel: channel,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// NotifyQueued отправляет NOTIFY в канал конвейера.
func (n *PGNotifier) NotifyQueued(ctx context.Context, digest string) error {
	// Имя канала — параметр запроса, а не интерполяция в SQL
	_, err := n.db.Exec(ctx, `SELECT pg_notify($1, $2)`, n.channel, digest)
	if err != nil {
		return fmt.Errorf("ошибка pg_notify в канал %s: %w", n.channel, err)
	}

	n.logger.Debug("Сигнал downstream-конвейеру отправлен",
		slog.String("channel", n.channel),
	)
	return nil
}
