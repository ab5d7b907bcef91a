package session

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestCookieManager_SignAndVerify(t *testing.T) {
	m := NewCookieManager([]byte("secret-key"), false, "", 0)

	tests := []struct {
		name  string
		value string
	}{
		{name: "session id", value: "sess_abc123"},
		{name: "empty", value: ""},
		{name: "unicode", value: "sess 世界"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signed := m.SignValue(tt.value)
			if !strings.Contains(signed, ".") {
				t.Error("signed value should contain separator '.'")
			}
			got, err := m.VerifyValue(signed)
			if err != nil {
				t.Fatalf("verification failed: %v", err)
			}
			if got != tt.value {
				t.Errorf("expected %q, got %q", tt.value, got)
			}
		})
	}
}

func TestCookieManager_VerifyValue_Invalid(t *testing.T) {
	m := NewCookieManager([]byte("secret-key"), false, "", 0)
	other := NewCookieManager([]byte("other-key"), false, "", 0)

	tests := []struct {
		name   string
		signed string
	}{
		{name: "no separator", signed: "noseparator"},
		{name: "wrong signature", signed: "c2Vzcw==.wrongsig"},
		{name: "invalid base64", signed: "!!!invalid.sig"},
		{name: "other key", signed: other.SignValue("sess_1")},
		{name: "empty", signed: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.VerifyValue(tt.signed); err == nil {
				t.Error("expected error for invalid signed value")
			}
		})
	}
}

func TestCookieManager_SetAndGet(t *testing.T) {
	m := NewCookieManager([]byte("test-key"), true, "example.com", time.Hour)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	m.Set(c, "sess_42")

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	cookie := cookies[0]
	if cookie.Name != cookieName {
		t.Errorf("cookie name = %q", cookie.Name)
	}
	if !cookie.HttpOnly || !cookie.Secure {
		t.Error("cookie should be HttpOnly and Secure")
	}
	if cookie.MaxAge != 3600 {
		t.Errorf("MaxAge = %d, want 3600", cookie.MaxAge)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	c = e.NewContext(req, httptest.NewRecorder())

	id, err := m.Get(c)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if id != "sess_42" {
		t.Errorf("id = %q, want sess_42", id)
	}
}

func TestCookieManager_GetMissing(t *testing.T) {
	m := NewCookieManager([]byte("test-key"), false, "", 0)
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	if _, err := m.Get(c); err == nil {
		t.Error("expected error when cookie is absent")
	}
}

func TestCookieManager_Clear(t *testing.T) {
	m := NewCookieManager([]byte("test-key"), false, "", 0)
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	m.Clear(c)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected 1 cookie, got %d", len(cookies))
	}
	if cookies[0].MaxAge >= 0 {
		t.Errorf("expected negative MaxAge, got %d", cookies[0].MaxAge)
	}
}
