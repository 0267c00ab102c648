package storage

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DownloadSigner issues expiring HMAC tokens binding a record id to its stored file.
type DownloadSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewDownloadSigner constructs a signer; a non-positive TTL defaults to 24h.
func NewDownloadSigner(secret string, ttl time.Duration) *DownloadSigner {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DownloadSigner{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Sign returns a token of the form "<expiry>.<signature>".
func (s *DownloadSigner) Sign(id, name string) (string, error) {
	if id == "" || name == "" {
		return "", fmt.Errorf("id and name required")
	}
	if len(s.secret) == 0 {
		return "", fmt.Errorf("signing secret missing")
	}
	exp := strconv.FormatInt(s.now().Add(s.ttl).Unix(), 10)
	return exp + "." + s.mac(id, name, exp), nil
}

// Verify checks the token signature and expiry for the given record and file.
func (s *DownloadSigner) Verify(token, id, name string) error {
	exp, sig, ok := strings.Cut(token, ".")
	if !ok || exp == "" || sig == "" {
		return fmt.Errorf("invalid token format")
	}
	expUnix, err := strconv.ParseInt(exp, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid token expiry")
	}
	if !hmac.Equal([]byte(sig), []byte(s.mac(id, name, exp))) {
		return fmt.Errorf("invalid token signature")
	}
	if s.now().After(time.Unix(expUnix, 0)) {
		return fmt.Errorf("token expired")
	}
	return nil
}

func (s *DownloadSigner) mac(id, name, exp string) string {
	h := hmac.New(sha256.New, s.secret)
	_, _ = h.Write([]byte(id + "|" + name + "|" + exp))
	return hex.EncodeToString(h.Sum(nil))
}
