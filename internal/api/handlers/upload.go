// upload.go — HTTP handler приёма файлов прогнозов.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	apierrors "github.com/bigkaa/goforecast/intake-module/internal/api/errors"
	"github.com/bigkaa/goforecast/intake-module/internal/service"
)

// UploadHandler — обработчик endpoint загрузки.
type UploadHandler struct {
	svc         *service.IntakeService
	maxFileSize int64
}

// NewUploadHandler создаёт обработчик загрузки.
func NewUploadHandler(svc *service.IntakeService, maxFileSize int64) *UploadHandler {
	return &UploadHandler{
		svc:         svc,
		maxFileSize: maxFileSize,
	}
}

// uploadResponse — тело ответа на успешную загрузку.
type uploadResponse struct {
	Message     string    `json:"message"`
	FileName    string    `json:"file_name"`
	Digest      string    `json:"digest"`
	Status      string    `json:"status"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// UploadForecast обрабатывает POST /api/v1/forecasts.
// Multipart form: file (обязательно), digest (обязательно, hex HMAC-SHA256).
func (h *UploadHandler) UploadForecast(w http.ResponseWriter, r *http.Request) {
	// Лимит на размер тела: файл + запас на заголовки multipart
	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize+(1<<20))

	if err := r.ParseMultipartForm(32 << 20); err != nil { // 32 MB buffer
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			apierrors.FileTooLarge(w, fmt.Sprintf("Файл превышает лимит %d байт", h.maxFileSize))
			return
		}
		apierrors.ValidationError(w, fmt.Sprintf("Ошибка парсинга multipart: %s", err.Error()))
		return
	}

	claimedDigest := r.FormValue("digest")
	if claimedDigest == "" {
		apierrors.ValidationError(w, "Поле 'digest' обязательно")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		apierrors.MissingFile(w, "Поле 'file' обязательно")
		return
	}
	defer file.Close()

	result, intakeErr := h.svc.Intake(r.Context(), service.IntakeParams{
		Reader:        file,
		FileName:      header.Filename,
		ClaimedDigest: claimedDigest,
	})
	if intakeErr != nil {
		apierrors.WriteError(w, intakeErr.StatusCode, intakeErr.Code, intakeErr.Message)
		return
	}

	resp := uploadResponse{
		Message:     "success",
		FileName:    result.Attempt.FileName,
		Digest:      result.Attempt.Digest,
		Status:      string(result.Attempt.Status),
		SubmittedAt: result.Attempt.SubmittedAt,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}
