// activity.go — HTTP handler списка последних загрузок.
// Презентационная выборка из журнала: дайджест усечён до короткого
// префикса, полный наружу не отдаётся.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	apierrors "github.com/bigkaa/goforecast/intake-module/internal/api/errors"
	"github.com/bigkaa/goforecast/intake-module/internal/repository"
	"github.com/bigkaa/goforecast/intake-module/internal/verify"
)

// Лимиты выборки последних загрузок.
const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// ActivityHandler — обработчик списка последних загрузок.
type ActivityHandler struct {
	ledger repository.UploadLedgerRepository
}

// NewActivityHandler создаёт обработчик списка последних загрузок.
func NewActivityHandler(ledger repository.UploadLedgerRepository) *ActivityHandler {
	return &ActivityHandler{ledger: ledger}
}

// activityItem — одна запись журнала в представлении для отображения.
type activityItem struct {
	Digest      string    `json:"digest"`
	FileName    string    `json:"file_name"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// activityResponse — тело ответа со списком последних загрузок.
type activityResponse struct {
	Items []activityItem `json:"items"`
	Limit int            `json:"limit"`
}

// RecentUploads обрабатывает GET /api/v1/forecasts/recent.
// Параметр limit: по умолчанию 20, максимум 100.
func (h *ActivityHandler) RecentUploads(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxRecentLimit {
			apierrors.ValidationError(w,
				"Параметр limit должен быть от 1 до "+strconv.Itoa(maxRecentLimit))
			return
		}
		limit = n
	}

	attempts, err := h.ledger.ListRecent(r.Context(), limit)
	if err != nil {
		apierrors.LedgerError(w, "Не удалось получить список загрузок")
		return
	}

	items := make([]activityItem, 0, len(attempts))
	for _, a := range attempts {
		items = append(items, activityItem{
			Digest:      verify.Prefix(a.Digest),
			FileName:    a.FileName,
			Status:      string(a.Status),
			Message:     a.Message,
			SubmittedAt: a.SubmittedAt,
		})
	}

	resp := activityResponse{
		Items: items,
		Limit: limit,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
