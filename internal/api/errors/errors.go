// Пакет errors — конструкторы стандартных ошибок в формате GoForecast.
// Единый формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError.
package errors

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок Intake Module.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeMissingFile     = "MISSING_FILE"
	CodeDigestMismatch  = "DIGEST_MISMATCH"
	CodeFileTooLarge    = "FILE_TOO_LARGE"
	CodeFilesystemError = "FILESYSTEM_ERROR"
	CodeLedgerError     = "LEDGER_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeInternalError   = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате GoForecast.
// statusCode — HTTP статус-код, code — машиночитаемый код, message — описание.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// MissingFile — 400 в запросе нет файлового поля.
func MissingFile(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeMissingFile, message)
}

// DigestMismatch — 403 дайджест не совпал с вычисленным.
func DigestMismatch(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, CodeDigestMismatch, message)
}

// FileTooLarge — 413 размер файла превышает лимит.
func FileTooLarge(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusRequestEntityTooLarge, CodeFileTooLarge, message)
}

// FilesystemError — 500 ошибка записи в staging.
func FilesystemError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeFilesystemError, message)
}

// LedgerError — 500 ошибка вставки в журнал загрузок.
func LedgerError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeLedgerError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
