// Пакет service — бизнес-логика Intake Module.
// intake.go — приём файла прогноза: staging, проверка дайджеста,
// запись в журнал, сигнал downstream-конвейеру.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/goforecast/intake-module/internal/api/errors"
	"github.com/bigkaa/goforecast/intake-module/internal/api/middleware"
	"github.com/bigkaa/goforecast/intake-module/internal/domain/model"
	"github.com/bigkaa/goforecast/intake-module/internal/repository"
	"github.com/bigkaa/goforecast/intake-module/internal/storage/staging"
	"github.com/bigkaa/goforecast/intake-module/internal/verify"
)

// IntakeParams — параметры приёма файла прогноза.
type IntakeParams struct {
	// Reader — поток данных файла
	Reader io.Reader
	// FileName — имя файла, заявленное клиентом (до санитизации)
	FileName string
	// ClaimedDigest — hex HMAC-SHA256, заявленный клиентом
	ClaimedDigest string
}

// IntakeResult — результат успешного приёма.
type IntakeResult struct {
	// Attempt — запись журнала, созданная для этой загрузки
	Attempt *model.UploadAttempt
	// StagedPath — абсолютный путь файла в staging
	StagedPath string
}

// IntakeError — ошибка приёма с HTTP-кодом.
type IntakeError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *IntakeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IntakeService — оркестрация приёма файлов прогнозов.
type IntakeService struct {
	store    *staging.Store
	verifier *verify.Verifier
	ledger   repository.UploadLedgerRepository
	notifier Notifier
	logger   *slog.Logger
}

// NewIntakeService создаёт сервис приёма.
func NewIntakeService(
	store *staging.Store,
	verifier *verify.Verifier,
	ledger repository.UploadLedgerRepository,
	notifier Notifier,
	logger *slog.Logger,
) *IntakeService {
	return &IntakeService{
		store:    store,
		verifier: verifier,
		ledger:   ledger,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "intake")),
	}
}

// Intake выполняет один приём: staging → проверка дайджеста → журнал →
// сигнал конвейеру. Каждый шаг выполняется только после успеха предыдущего.
// Ошибки терминальны для запроса и не фатальны для процесса; повторов нет —
// клиент отправляет файл заново.
func (s *IntakeService) Intake(ctx context.Context, p IntakeParams) (*IntakeResult, *IntakeError) {
	if p.Reader == nil {
		middleware.UploadsTotal.WithLabelValues("missing_file").Inc()
		return nil, &IntakeError{
			StatusCode: http.StatusBadRequest,
			Code:       apierrors.CodeMissingFile,
			Message:    "Поле 'file' обязательно",
		}
	}

	// Дайджест считается на лету по байтам, уходящим в staging:
	// проверяются ровно те байты, что легли на диск.
	mac := s.verifier.Hasher()
	tee := io.TeeReader(p.Reader, mac)

	saved, err := s.store.Save(p.FileName, tee)
	if err != nil {
		s.logger.Error("Ошибка записи в staging",
			slog.String("file_name", p.FileName),
			slog.String("error", err.Error()),
		)
		middleware.UploadsTotal.WithLabelValues("filesystem_error").Inc()
		return nil, &IntakeError{
			StatusCode: http.StatusInternalServerError,
			Code:       apierrors.CodeFilesystemError,
			Message:    "Не удалось сохранить файл",
		}
	}

	computed := verify.SumHex(mac)
	if !verify.Verify(computed, p.ClaimedDigest) {
		// Файл остаётся в staging: операторы могут исследовать
		// отклонённую загрузку, а корректная повторная загрузка
		// с тем же именем её заместит.
		s.logger.Warn("Дайджест не совпал",
			slog.String("file_name", saved.Name),
			slog.String("computed_prefix", verify.Prefix(computed)),
		)
		middleware.UploadsTotal.WithLabelValues("digest_mismatch").Inc()
		return nil, &IntakeError{
			StatusCode: http.StatusForbidden,
			Code:       apierrors.CodeDigestMismatch,
			Message: fmt.Sprintf("Дайджест не совпал (вычислен %s)",
				verify.Prefix(computed)),
		}
	}

	attempt := &model.UploadAttempt{
		Digest:      computed,
		SubmittedAt: time.Now().UTC(),
		FileName:    saved.Name,
		Status:      model.StatusQueued,
		Message:     model.QueuedMessage,
	}

	if err := s.ledger.Append(ctx, attempt); err != nil {
		s.logger.Error("Ошибка вставки в журнал загрузок",
			slog.String("file_name", saved.Name),
			slog.String("error", err.Error()),
		)
		middleware.UploadsTotal.WithLabelValues("ledger_error").Inc()
		return nil, &IntakeError{
			StatusCode: http.StatusInternalServerError,
			Code:       apierrors.CodeLedgerError,
			Message:    "Не удалось поставить загрузку в очередь",
		}
	}

	// Сигнал конвейеру — ровно один раз, строго после коммита вставки.
	// Неудача не откатывает приём: строка журнала уже долговечна.
	if err := s.notifier.NotifyQueued(ctx, attempt.Digest); err != nil {
		s.logger.Warn("Уведомление downstream-конвейера не доставлено",
			slog.String("digest_prefix", verify.Prefix(attempt.Digest)),
			slog.String("error", err.Error()),
		)
		middleware.NotifyFailuresTotal.Inc()
	}

	s.logger.Info("Файл прогноза принят",
		slog.String("file_name", saved.Name),
		slog.String("digest_prefix", verify.Prefix(attempt.Digest)),
		slog.Int64("size", saved.Size),
	)
	middleware.UploadsTotal.WithLabelValues("accepted").Inc()

	return &IntakeResult{
		Attempt:    attempt,
		StagedPath: saved.FullPath,
	}, nil
}
