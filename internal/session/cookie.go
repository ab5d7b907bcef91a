package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const cookieName = "subtitles_session"

// CookieManager stores a session ID in an HMAC-signed cookie.
type CookieManager struct {
	hmacKey []byte
	secure  bool
	domain  string
	maxAge  int
}

func NewCookieManager(hmacKey []byte, secure bool, domain string, maxAge time.Duration) *CookieManager {
	if maxAge <= 0 {
		maxAge = DefaultTTL
	}
	return &CookieManager{
		hmacKey: hmacKey,
		secure:  secure,
		domain:  domain,
		maxAge:  int(maxAge.Seconds()),
	}
}

func (m *CookieManager) Get(c echo.Context) (string, error) {
	cookie, err := c.Cookie(cookieName)
	if err != nil {
		return "", err
	}
	return m.VerifyValue(cookie.Value)
}

func (m *CookieManager) Set(c echo.Context, sessionID string) {
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    m.SignValue(sessionID),
		Path:     "/",
		Domain:   m.domain,
		MaxAge:   m.maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *CookieManager) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		Domain:   m.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (m *CookieManager) SignValue(value string) string {
	mac := hmac.New(sha256.New, m.hmacKey)
	mac.Write([]byte(value))
	sig := base64.URLEncoding.EncodeToString(mac.Sum(nil))
	return base64.URLEncoding.EncodeToString([]byte(value)) + "." + sig
}

func (m *CookieManager) VerifyValue(signed string) (string, error) {
	parts := strings.SplitN(signed, ".", 2)
	if len(parts) != 2 {
		return "", errors.New("invalid signature format")
	}

	payload, err := base64.URLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, m.hmacKey)
	mac.Write(payload)
	expectedSig := base64.URLEncoding.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(parts[1]), []byte(expectedSig)) {
		return "", errors.New("invalid signature")
	}

	return string(payload), nil
}
