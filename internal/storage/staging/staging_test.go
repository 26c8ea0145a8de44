package staging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestNew_CreatesDirectory проверяет создание staging-директории.
func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "staging")

	s, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания Store: %v", err)
	}
	if s.Dir() != dir {
		t.Errorf("ожидался путь %s, получен %s", dir, s.Dir())
	}

	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("директория не создана: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("путь не является директорией")
	}
}

// TestSave проверяет запись файла и содержимое на диске.
func TestSave(t *testing.T) {
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания Store: %v", err)
	}

	content := []byte("region,epiweek,value\nnat,202544,1.23\n")
	result, err := s.Save("forecast.csv", bytes.NewReader(content))
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	if result.Name != "forecast.csv" {
		t.Errorf("имя: ожидалось forecast.csv, получено %s", result.Name)
	}
	if result.Size != int64(len(content)) {
		t.Errorf("размер: ожидалось %d, получено %d", len(content), result.Size)
	}

	data, err := os.ReadFile(result.FullPath)
	if err != nil {
		t.Fatalf("ошибка чтения файла: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Error("содержимое файла не совпадает")
	}
}

// TestSave_Overwrite: повторная запись под тем же именем замещает байты,
// в директории остаётся один файл.
func TestSave_Overwrite(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания Store: %v", err)
	}

	if _, err := s.Save("weekly.csv", bytes.NewReader([]byte("первая версия"))); err != nil {
		t.Fatalf("ошибка первой записи: %v", err)
	}
	second := []byte("вторая версия")
	result, err := s.Save("weekly.csv", bytes.NewReader(second))
	if err != nil {
		t.Fatalf("ошибка второй записи: %v", err)
	}

	data, err := os.ReadFile(result.FullPath)
	if err != nil {
		t.Fatalf("ошибка чтения файла: %v", err)
	}
	if !bytes.Equal(data, second) {
		t.Error("после перезаписи ожидались байты второй загрузки")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ошибка чтения директории: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("ожидался один файл в staging, найдено %d", len(entries))
	}
}

// TestSave_NoTempLeftovers: после успешной записи temp файлов не остаётся.
func TestSave_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания Store: %v", err)
	}

	if _, err := s.Save("data.csv", bytes.NewReader([]byte("x"))); err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ошибка чтения директории: %v", err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("остался временный файл: %s", e.Name())
		}
	}
}

// TestSanitizeName проверяет защиту от path traversal и чистку имени.
func TestSanitizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"forecast.csv", "forecast.csv"},
		{"a/../../etc/passwd", "passwd"},
		{"../../../etc/shadow", "shadow"},
		{"..\\..\\windows\\system32\\cfg", "cfg"},
		{"dir/sub/file.csv", "file.csv"},
		{"we ird na me.csv", "weirdname.csv"},
		{"..", "forecast"},
		{"", "forecast"},
		{"<script>", "script"},
		{strings.Repeat("a", 100) + ".csv", strings.Repeat("a", 64)},
	}

	for _, c := range cases {
		if got := SanitizeName(c.in); got != c.want {
			t.Errorf("SanitizeName(%q): ожидалось %q, получено %q", c.in, c.want, got)
		}
	}
}

// TestSanitizeName_InsideDir: результат санитизации всегда остаётся
// внутри staging-директории.
func TestSanitizeName_InsideDir(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("ошибка создания Store: %v", err)
	}

	result, err := s.Save("a/../../etc/passwd", bytes.NewReader([]byte("harmless")))
	if err != nil {
		t.Fatalf("ошибка записи: %v", err)
	}

	rel, err := filepath.Rel(dir, result.FullPath)
	if err != nil {
		t.Fatalf("ошибка вычисления относительного пути: %v", err)
	}
	if strings.HasPrefix(rel, "..") {
		t.Errorf("файл записан вне staging-директории: %s", result.FullPath)
	}
}
