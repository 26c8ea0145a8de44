// health.go — обработчики health endpoints для Kubernetes probes.
package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/goforecast/intake-module/internal/config"
)

// ReadinessChecker — интерфейс проверки готовности внешней зависимости.
// Реализуется database.ReadinessChecker (PostgreSQL ping).
type ReadinessChecker interface {
	CheckReady() (status string, message string)
}

// HealthHandler реализует health endpoints: /health/live, /health/ready.
type HealthHandler struct {
	version string
	// stagingDir — путь к staging-директории (для проверки FS)
	stagingDir string
	// db — проверка готовности PostgreSQL
	db ReadinessChecker
}

// NewHealthHandler создаёт обработчик health endpoints.
func NewHealthHandler(stagingDir string, db ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		version:    config.Version,
		stagingDir: stagingDir,
		db:         db,
	}
}

// HealthLive обрабатывает GET /health/live.
// Возвращает 200, если процесс жив. Не проверяет зависимости.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "intake-module",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// HealthReady обрабатывает GET /health/ready.
// Проверяет: запись в staging-директорию, подключение к PostgreSQL.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	overallStatus := "ok"
	httpStatus := http.StatusOK

	fsCheck := h.checkStaging()
	if fsCheck["status"] != "ok" {
		overallStatus = "fail"
		httpStatus = http.StatusServiceUnavailable
	}

	dbStatus, dbMessage := h.db.CheckReady()
	if dbStatus != "ok" {
		overallStatus = "fail"
		httpStatus = http.StatusServiceUnavailable
	}

	resp := map[string]any{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   h.version,
		"service":   "intake-module",
		"checks": map[string]any{
			"staging": fsCheck,
			"postgresql": map[string]any{
				"status":  dbStatus,
				"message": dbMessage,
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(resp)
}

// checkStaging проверяет возможность записи в staging-директорию
// пробным файлом.
func (h *HealthHandler) checkStaging() map[string]any {
	probe := filepath.Join(h.stagingDir, ".health-"+uuid.New().String()[:8])

	if err := os.WriteFile(probe, []byte("probe"), 0o640); err != nil {
		return map[string]any{
			"status":  "fail",
			"message": "staging-директория недоступна для записи: " + err.Error(),
		}
	}
	os.Remove(probe)

	return map[string]any{
		"status":  "ok",
		"message": "запись доступна",
	}
}
