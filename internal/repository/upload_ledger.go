package repository

import (
	"context"
	"fmt"

	"github.com/bigkaa/goforecast/intake-module/internal/domain/model"
)

// UploadLedgerRepository — интерфейс журнала загрузок (таблица forecast_uploads).
// Журнал append-mostly: Intake Module только вставляет строки со статусом
// queued; обновление status/message принадлежит downstream-конвейеру.
type UploadLedgerRepository interface {
	// Append вставляет одну запись о принятой загрузке.
	Append(ctx context.Context, a *model.UploadAttempt) error
	// ListRecent возвращает не более limit последних записей,
	// новые первыми. Пустой журнал — пустой срез, не ошибка.
	ListRecent(ctx context.Context, limit int) ([]*model.UploadAttempt, error)
}

// uploadLedgerRepo — реализация UploadLedgerRepository.
type uploadLedgerRepo struct {
	db DBTX
}

// NewUploadLedgerRepository создаёт репозиторий журнала загрузок.
func NewUploadLedgerRepository(db DBTX) UploadLedgerRepository {
	return &uploadLedgerRepo{db: db}
}

func (r *uploadLedgerRepo) Append(ctx context.Context, a *model.UploadAttempt) error {
	query := `
		INSERT INTO forecast_uploads (digest, submitted_at, file_name, status, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		a.Digest, a.SubmittedAt, a.FileName, a.Status, a.Message,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("ошибка вставки записи журнала: %w", err)
	}
	return nil
}

func (r *uploadLedgerRepo) ListRecent(ctx context.Context, limit int) ([]*model.UploadAttempt, error) {
	// Ничья по submitted_at разрешается порядком вставки (id)
	query := `
		SELECT id, digest, submitted_at, file_name, status, message
		FROM forecast_uploads
		ORDER BY submitted_at DESC, id DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса журнала: %w", err)
	}
	defer rows.Close()

	attempts := make([]*model.UploadAttempt, 0, limit)
	for rows.Next() {
		a := &model.UploadAttempt{}
		if err := rows.Scan(&a.ID, &a.Digest, &a.SubmittedAt, &a.FileName, &a.Status, &a.Message); err != nil {
			return nil, fmt.Errorf("ошибка чтения записи журнала: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка обхода записей журнала: %w", err)
	}

	return attempts, nil
}
