// Пакет model — доменные модели Intake Module.
// UploadAttempt — запись журнала загрузок, одновременно элемент
// очереди для downstream-конвейера обработки прогнозов.
package model

import (
	"time"
)

// UploadStatus — статус попытки загрузки в журнале.
type UploadStatus string

const (
	// StatusQueued — файл принят, дайджест проверен, ожидает обработки.
	// Единственный статус, который выставляет Intake Module.
	StatusQueued UploadStatus = "queued"
	// StatusProcessing — взят в обработку downstream-конвейером
	StatusProcessing UploadStatus = "processing"
	// StatusSuccess — успешно обработан downstream-конвейером
	StatusSuccess UploadStatus = "success"
	// StatusFailed — обработка завершилась ошибкой
	StatusFailed UploadStatus = "failed"
)

// QueuedMessage — начальное сообщение для новой записи журнала.
const QueuedMessage = "queued"

// UploadAttempt — одна попытка загрузки файла прогноза.
// Строка создаётся единожды при успешной проверке дайджеста;
// после вставки status и message принадлежат downstream-конвейеру.
type UploadAttempt struct {
	// ID — суррогатный идентификатор записи (порядок вставки)
	ID int64 `json:"id"`

	// Digest — hex-представление HMAC-SHA256 файла.
	// Считается сервером по байтам, записанным в staging.
	Digest string `json:"digest"`

	// SubmittedAt — время приёма файла (UTC), назначается сервером.
	// После вставки не обновляется.
	SubmittedAt time.Time `json:"submitted_at"`

	// FileName — имя файла после санитизации (без компонентов пути)
	FileName string `json:"file_name"`

	// Status — статус обработки
	Status UploadStatus `json:"status"`

	// Message — человекочитаемое описание статуса
	Message string `json:"message"`
}
