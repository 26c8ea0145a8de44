// Пакет staging — запись принятых файлов прогнозов на диск.
// Файл хранится под санитизированным именем клиента: повторная загрузка
// с тем же именем молча замещает предыдущие байты (рабочий набор),
// при этом каждая загрузка даёт отдельную запись в журнале (аудит).
package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// maxNameLen — ограничение длины санитизированного имени.
// Соответствует ширине колонки name в таблице журнала.
const maxNameLen = 64

// Store — staging-хранилище файлов прогнозов на диске.
type Store struct {
	// dir — корневая директория staging (IM_STAGING_DIR)
	dir string
}

// SaveResult — результат записи файла в staging.
type SaveResult struct {
	// Name — санитизированное имя файла в staging-директории
	Name string
	// FullPath — абсолютный путь файла на диске
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
}

// New создаёт Store. Создаёт директорию, если она не существует.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать staging-директорию %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save записывает данные из reader в staging под санитизированным именем.
//
// Паттерн: temp файл → запись → fsync → atomic rename.
// Temp файл получает уникальный uuid-суффикс: параллельные загрузки
// под одним именем не делят временный файл, видимым становится целиком
// результат одного из writer-ов, смешение байтов исключено.
// При ошибке temp файл удаляется, по целевому пути частичных данных
// не появляется.
func (s *Store) Save(name string, r io.Reader) (*SaveResult, error) {
	safeName := SanitizeName(name)
	fullPath := filepath.Join(s.dir, safeName)
	tmpPath := fmt.Sprintf("%s.%s.tmp", fullPath, uuid.New().String()[:8])

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	// Атомарный rename: последняя запись под этим именем побеждает
	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		Name:     safeName,
		FullPath: fullPath,
		Size:     size,
	}, nil
}

// FullPath возвращает абсолютный путь файла в staging.
func (s *Store) FullPath(name string) string {
	return filepath.Join(s.dir, SanitizeName(name))
}

// Dir возвращает путь к staging-директории.
func (s *Store) Dir() string {
	return s.dir
}

// SanitizeName приводит имя клиента к безопасному имени файла.
// Отбрасывает компоненты пути (защита от traversal), оставляет только
// буквы, цифры, точку, дефис и подчёркивание, ограничивает длину.
// Пустой результат заменяется на "forecast".
func SanitizeName(name string) string {
	// Принимаем оба разделителя: клиенты бывают и Windows
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	var b strings.Builder
	for _, r := range name {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}

	result := strings.Trim(b.String(), ".")
	if result == "" {
		return "forecast"
	}
	if len(result) > maxNameLen {
		result = result[:maxNameLen]
	}
	return result
}
