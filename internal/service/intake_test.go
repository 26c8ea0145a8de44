package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"

	apierrors "github.com/bigkaa/goforecast/intake-module/internal/api/errors"
	"github.com/bigkaa/goforecast/intake-module/internal/domain/model"
	"github.com/bigkaa/goforecast/intake-module/internal/storage/staging"
	"github.com/bigkaa/goforecast/intake-module/internal/verify"
)

// fakeLedger — журнал в памяти для тестов.
type fakeLedger struct {
	appendErr error
	attempts  []*model.UploadAttempt
}

func (f *fakeLedger) Append(_ context.Context, a *model.UploadAttempt) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	a.ID = int64(len(f.attempts) + 1)
	f.attempts = append(f.attempts, a)
	return nil
}

func (f *fakeLedger) ListRecent(_ context.Context, limit int) ([]*model.UploadAttempt, error) {
	n := len(f.attempts)
	result := make([]*model.UploadAttempt, 0, limit)
	for i := n - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, f.attempts[i])
	}
	return result, nil
}

// fakeNotifier — Notifier для тестов, запоминает вызовы.
type fakeNotifier struct {
	err     error
	digests []string
}

func (f *fakeNotifier) NotifyQueued(_ context.Context, digest string) error {
	if f.err != nil {
		return f.err
	}
	f.digests = append(f.digests, digest)
	return nil
}

// testSecret — общий секрет тестов.
const testSecret = "k"

// digestOf — эталонный HMAC-SHA256 в hex.
func digestOf(secret string, data []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// newTestService собирает IntakeService с staging в t.TempDir()
// и журналом/нотификатором в памяти.
func newTestService(t *testing.T, ledger *fakeLedger, notifier *fakeNotifier) (*IntakeService, *staging.Store) {
	t.Helper()

	store, err := staging.New(t.TempDir())
	if err != nil {
		t.Fatalf("ошибка создания staging: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewIntakeService(store, verify.New([]byte(testSecret)), ledger, notifier, logger)
	return svc, store
}

// TestIntake_Success — сквозной сценарий приёма: файл forecast.csv,
// корректный дайджест → запись queued, один сигнал конвейеру.
func TestIntake_Success(t *testing.T) {
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}
	svc, _ := newTestService(t, ledger, notifier)

	content := []byte("region,epiweek,value\nnat,202544,1.23\n")
	result, intakeErr := svc.Intake(context.Background(), IntakeParams{
		Reader:        bytes.NewReader(content),
		FileName:      "forecast.csv",
		ClaimedDigest: digestOf(testSecret, content),
	})
	if intakeErr != nil {
		t.Fatalf("ошибка приёма: %v", intakeErr)
	}

	if result.Attempt.FileName != "forecast.csv" {
		t.Errorf("имя файла: ожидалось forecast.csv, получено %s", result.Attempt.FileName)
	}
	if result.Attempt.Status != model.StatusQueued {
		t.Errorf("статус: ожидался queued, получен %s", result.Attempt.Status)
	}
	if result.Attempt.Message != model.QueuedMessage {
		t.Errorf("сообщение: ожидалось queued, получено %s", result.Attempt.Message)
	}
	if result.Attempt.SubmittedAt.IsZero() {
		t.Error("SubmittedAt не установлен")
	}

	if len(ledger.attempts) != 1 {
		t.Fatalf("ожидалась одна запись журнала, получено %d", len(ledger.attempts))
	}
	if len(notifier.digests) != 1 {
		t.Fatalf("ожидался ровно один сигнал конвейеру, получено %d", len(notifier.digests))
	}
	if notifier.digests[0] != result.Attempt.Digest {
		t.Error("сигнал конвейеру отправлен с другим дайджестом")
	}

	// Байты на диске совпадают с загруженными
	data, err := os.ReadFile(result.StagedPath)
	if err != nil {
		t.Fatalf("ошибка чтения staged-файла: %v", err)
	}
	if !bytes.Equal(data, content) {
		t.Error("содержимое staged-файла не совпадает")
	}
}

// TestIntake_DigestMismatch: неверный дайджест → нет записей журнала,
// нет сигналов, файл остаётся в staging для разбора операторами.
func TestIntake_DigestMismatch(t *testing.T) {
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}
	svc, store := newTestService(t, ledger, notifier)

	content := []byte("forecast bytes")
	_, intakeErr := svc.Intake(context.Background(), IntakeParams{
		Reader:        bytes.NewReader(content),
		FileName:      "bad.csv",
		ClaimedDigest: digestOf("другой-секрет", content),
	})
	if intakeErr == nil {
		t.Fatal("ожидалась ошибка DigestMismatch")
	}
	if intakeErr.Code != apierrors.CodeDigestMismatch {
		t.Errorf("код: ожидался %s, получен %s", apierrors.CodeDigestMismatch, intakeErr.Code)
	}

	if len(ledger.attempts) != 0 {
		t.Errorf("записей журнала быть не должно, получено %d", len(ledger.attempts))
	}
	if len(notifier.digests) != 0 {
		t.Errorf("сигналов быть не должно, получено %d", len(notifier.digests))
	}

	// Файл остаётся в staging
	if _, err := os.Stat(store.FullPath("bad.csv")); err != nil {
		t.Errorf("отклонённый файл должен остаться в staging: %v", err)
	}
}

// TestIntake_DigestMismatch_MessagePrefix: сообщение об ошибке содержит
// только короткий префикс вычисленного дайджеста.
func TestIntake_DigestMismatch_MessagePrefix(t *testing.T) {
	svc, _ := newTestService(t, &fakeLedger{}, &fakeNotifier{})

	content := []byte("payload")
	_, intakeErr := svc.Intake(context.Background(), IntakeParams{
		Reader:        bytes.NewReader(content),
		FileName:      "f.csv",
		ClaimedDigest: "00000000000000000000000000000000000000000000000000000000deadbeef",
	})
	if intakeErr == nil {
		t.Fatal("ожидалась ошибка DigestMismatch")
	}

	computed := digestOf(testSecret, content)
	prefix := computed[:verify.DigestPrefixLen]
	if !bytes.Contains([]byte(intakeErr.Message), []byte(prefix)) {
		t.Errorf("сообщение должно содержать префикс %s: %q", prefix, intakeErr.Message)
	}
	if bytes.Contains([]byte(intakeErr.Message), []byte(computed)) {
		t.Error("сообщение не должно содержать полный дайджест")
	}
}

// TestIntake_MissingFile: запрос без файла.
func TestIntake_MissingFile(t *testing.T) {
	svc, _ := newTestService(t, &fakeLedger{}, &fakeNotifier{})

	_, intakeErr := svc.Intake(context.Background(), IntakeParams{
		Reader:        nil,
		FileName:      "f.csv",
		ClaimedDigest: "abc",
	})
	if intakeErr == nil {
		t.Fatal("ожидалась ошибка MissingFile")
	}
	if intakeErr.Code != apierrors.CodeMissingFile {
		t.Errorf("код: ожидался %s, получен %s", apierrors.CodeMissingFile, intakeErr.Code)
	}
}

// TestIntake_NotifierFailure: сигнал конвейеру не доставлен —
// приём всё равно успешен, запись журнала существует.
func TestIntake_NotifierFailure(t *testing.T) {
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{err: errors.New("канал недоступен")}
	svc, _ := newTestService(t, ledger, notifier)

	content := []byte("forecast bytes")
	result, intakeErr := svc.Intake(context.Background(), IntakeParams{
		Reader:        bytes.NewReader(content),
		FileName:      "f.csv",
		ClaimedDigest: digestOf(testSecret, content),
	})
	if intakeErr != nil {
		t.Fatalf("приём должен быть успешным при отказе нотификатора: %v", intakeErr)
	}

	if len(ledger.attempts) != 1 {
		t.Errorf("ожидалась ровно одна запись queued, получено %d", len(ledger.attempts))
	}
	if result.Attempt.Status != model.StatusQueued {
		t.Errorf("статус: ожидался queued, получен %s", result.Attempt.Status)
	}
}

// TestIntake_LedgerFailure: ошибка вставки в журнал → терминальная
// ошибка, сигнал конвейеру не отправляется.
func TestIntake_LedgerFailure(t *testing.T) {
	ledger := &fakeLedger{appendErr: errors.New("БД недоступна")}
	notifier := &fakeNotifier{}
	svc, _ := newTestService(t, ledger, notifier)

	content := []byte("forecast bytes")
	_, intakeErr := svc.Intake(context.Background(), IntakeParams{
		Reader:        bytes.NewReader(content),
		FileName:      "f.csv",
		ClaimedDigest: digestOf(testSecret, content),
	})
	if intakeErr == nil {
		t.Fatal("ожидалась ошибка LedgerError")
	}
	if intakeErr.Code != apierrors.CodeLedgerError {
		t.Errorf("код: ожидался %s, получен %s", apierrors.CodeLedgerError, intakeErr.Code)
	}
	if len(notifier.digests) != 0 {
		t.Error("сигнал не должен отправляться при ошибке журнала")
	}
}

// TestIntake_OverwriteSameName: две загрузки под одним именем с разным
// содержимым — в staging остаются байты второй, в журнале две записи.
func TestIntake_OverwriteSameName(t *testing.T) {
	ledger := &fakeLedger{}
	notifier := &fakeNotifier{}
	svc, store := newTestService(t, ledger, notifier)

	first := []byte("первая версия")
	second := []byte("вторая версия")

	for _, content := range [][]byte{first, second} {
		_, intakeErr := svc.Intake(context.Background(), IntakeParams{
			Reader:        bytes.NewReader(content),
			FileName:      "weekly.csv",
			ClaimedDigest: digestOf(testSecret, content),
		})
		if intakeErr != nil {
			t.Fatalf("ошибка приёма: %v", intakeErr)
		}
	}

	if len(ledger.attempts) != 2 {
		t.Fatalf("ожидались две независимые записи журнала, получено %d", len(ledger.attempts))
	}
	for i, a := range ledger.attempts {
		if a.Status != model.StatusQueued {
			t.Errorf("запись %d: ожидался статус queued, получен %s", i, a.Status)
		}
	}
	if ledger.attempts[0].Digest == ledger.attempts[1].Digest {
		t.Error("разное содержимое должно давать разные дайджесты")
	}

	data, err := os.ReadFile(store.FullPath("weekly.csv"))
	if err != nil {
		t.Fatalf("ошибка чтения staged-файла: %v", err)
	}
	if !bytes.Equal(data, second) {
		t.Error("в staging должны быть байты второй загрузки")
	}
}
