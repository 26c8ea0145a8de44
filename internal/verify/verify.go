// Пакет verify — проверка целостности и подлинности загружаемых файлов.
// Дайджест — HMAC-SHA256 по байтам файла с общим секретом процесса.
// Сравнение с дайджестом клиента выполняется за константное время
// (hmac.Equal), без зависимости от позиции первого расхождения.
package verify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
)

// DigestPrefixLen — длина префикса дайджеста для отображения.
// Фиксированная и короткая: префикс попадает в сообщения об ошибках
// и в списки активности, полный дайджест наружу не отдаётся.
const DigestPrefixLen = 8

// Verifier — вычисление и проверка keyed-дайджеста файлов.
// Секрет загружается один раз при старте процесса и не меняется.
type Verifier struct {
	secret []byte
}

// New создаёт Verifier с общим секретом процесса.
func New(secret []byte) *Verifier {
	return &Verifier{secret: secret}
}

// Hasher возвращает новый streaming HMAC-SHA256 hasher.
// Используется для подсчёта дайджеста на лету при записи в staging,
// чтобы проверять ровно те байты, которые легли на диск.
func (v *Verifier) Hasher() hash.Hash {
	return hmac.New(sha256.New, v.secret)
}

// SumHex возвращает итоговый дайджест hasher-а в lowercase hex.
func SumHex(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}

// Verify сравнивает вычисленный дайджест (lowercase hex) с дайджестом,
// заявленным клиентом. Регистр hex-символов клиента не важен.
// Сравнение — константное по времени для совпадающей длины;
// некорректный hex или неверная длина дают false сразу (утекает только
// длина, не содержимое).
func Verify(computedHex, claimedHex string) bool {
	computed, err := hex.DecodeString(computedHex)
	if err != nil {
		return false
	}
	claimed, err := hex.DecodeString(strings.ToLower(strings.TrimSpace(claimedHex)))
	if err != nil {
		return false
	}
	return hmac.Equal(computed, claimed)
}

// VerifyBytes вычисляет дайджест по данным и сравнивает с заявленным.
func (v *Verifier) VerifyBytes(data []byte, claimedHex string) bool {
	h := v.Hasher()
	h.Write(data)
	return Verify(SumHex(h), claimedHex)
}

// Prefix возвращает короткий префикс дайджеста для отображения.
// Формат: первые DigestPrefixLen символов и многоточие.
func Prefix(digestHex string) string {
	if len(digestHex) <= DigestPrefixLen {
		return digestHex
	}
	return digestHex[:DigestPrefixLen] + "…"
}
