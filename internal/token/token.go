// Package token выпускает и проверяет capability-токены доступа к объектам
// на storage-узлах.
//
// Формат токена: fileId|mode|expiryEpochMillis|nonce|HMAC(fileId, expiry, secret).
// Токен из одной строки-секрета без полей принимается как legacy-токен
// доверенного оператора.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/iudanet/gophdir/internal/models"
)

// AccessMode режим доступа, на который выдан токен
type AccessMode string

const (
	ModeRead   AccessMode = "read"
	ModeWrite  AccessMode = "write"
	ModeDelete AccessMode = "delete"
	// ModePurge удаление всех объектов владельца, fileId = owner id
	ModePurge AccessMode = "purge"
)

const (
	fieldSeparator = "|"
	fieldCount     = 5

	// DefaultTTL срок жизни токена по умолчанию
	DefaultTTL = 10 * time.Second

	// nonceGrace запас хранения nonce после истечения токена
	nonceGrace = time.Second
)

// Issuer выпускает токены, подписанные общим секретом
type Issuer struct {
	now    func() time.Time
	secret []byte
	ttl    time.Duration
}

// NewIssuer создает Issuer; ttl <= 0 заменяется на DefaultTTL
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue выпускает одноразовый токен на режим mode для объекта fileID
func (i *Issuer) Issue(fileID string, mode AccessMode) string {
	expiry := i.now().Add(i.ttl).UnixMilli()
	return strings.Join([]string{
		fileID,
		string(mode),
		strconv.FormatInt(expiry, 10),
		uuid.New().String(),
		sign(i.secret, fileID, expiry),
	}, fieldSeparator)
}

// Validator проверяет токены и отклоняет повторное использование nonce
type Validator struct {
	now    func() time.Time
	seen   *cache.Cache
	secret []byte
}

// NewValidator создает Validator с пустым множеством недавно виденных nonce
func NewValidator(secret string) *Validator {
	return &Validator{
		secret: []byte(secret),
		seen:   cache.New(DefaultTTL, time.Minute),
		now:    time.Now,
	}
}

// Validate проверяет, что token разрешает режим mode для объекта fileID.
// Проверки по порядку: повтор nonce, режим, срок действия, подпись.
// Любая ошибка оборачивает models.ErrForbidden.
func (v *Validator) Validate(tok, fileID string, mode AccessMode) error {
	if !strings.Contains(tok, fieldSeparator) {
		if tok != "" && subtle.ConstantTimeCompare([]byte(tok), v.secret) == 1 {
			return nil
		}
		return fmt.Errorf("%w: invalid token", models.ErrForbidden)
	}

	parts := strings.Split(tok, fieldSeparator)
	if len(parts) != fieldCount {
		return fmt.Errorf("%w: malformed token", models.ErrForbidden)
	}
	tokenMode, expiryField, nonce, signature := parts[1], parts[2], parts[3], parts[4]

	if _, replayed := v.seen.Get(nonce); replayed {
		return fmt.Errorf("%w: token already used", models.ErrForbidden)
	}

	if AccessMode(tokenMode) != mode {
		return fmt.Errorf("%w: token grants %q, not %q", models.ErrForbidden, tokenMode, mode)
	}

	expiry, err := strconv.ParseInt(expiryField, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed token expiry", models.ErrForbidden)
	}
	now := v.now()
	if now.UnixMilli() >= expiry {
		return fmt.Errorf("%w: token expired", models.ErrForbidden)
	}

	if !hmac.Equal([]byte(signature), []byte(sign(v.secret, fileID, expiry))) {
		return fmt.Errorf("%w: token signature mismatch", models.ErrForbidden)
	}

	ttl := time.UnixMilli(expiry).Sub(now) + nonceGrace
	if err := v.seen.Add(nonce, struct{}{}, ttl); err != nil {
		// параллельная проверка с тем же nonce успела раньше
		return fmt.Errorf("%w: token already used", models.ErrForbidden)
	}

	return nil
}

// sign создает HMAC-SHA256 подпись над fileId и сроком действия
func sign(secret []byte, fileID string, expiry int64) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(fileID))
	h.Write([]byte(fieldSeparator))
	h.Write([]byte(strconv.FormatInt(expiry, 10)))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
