package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/eleven-am/voice-subtitles/internal/shared"
	"github.com/labstack/echo/v4"
)

// Verifier answers whether a request comes from a password-verified browser.
// The client-supplied isPasswordVerified flag is only believed when this
// returns true.
type Verifier struct {
	store   *Store
	cookies *CookieManager
	logger  *slog.Logger
}

func NewVerifier(store *Store, cookies *CookieManager, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		store:   store,
		cookies: cookies,
		logger:  logger.With("component", "session"),
	}
}

func (v *Verifier) Verified(c echo.Context) bool {
	sess, err := v.Current(c)
	return err == nil && sess.Verified
}

// Current loads the session named by the request cookie and extends it.
func (v *Verifier) Current(c echo.Context) (*Session, error) {
	if v == nil || v.store == nil {
		return nil, shared.ErrNotFound
	}
	id, err := v.cookies.Get(c)
	if err != nil {
		return nil, shared.ErrUnauthorized
	}

	ctx := c.Request().Context()
	sess, err := v.store.GetSession(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			v.logger.Warn("session lookup failed", "error", err)
		}
		return nil, err
	}

	if err := v.store.TouchSession(ctx, sess); err != nil {
		v.logger.Warn("session refresh failed", "session_id", sess.ID, "error", err)
	}
	return sess, nil
}

func (v *Verifier) Establish(c echo.Context) (*Session, error) {
	sess := &Session{
		Verified:   true,
		RemoteAddr: c.RealIP(),
		UserAgent:  c.Request().UserAgent(),
	}
	if err := v.store.CreateSession(c.Request().Context(), sess); err != nil {
		return nil, err
	}
	v.cookies.Set(c, sess.ID)
	return sess, nil
}

func (v *Verifier) Revoke(c echo.Context) error {
	defer v.cookies.Clear(c)
	id, err := v.cookies.Get(c)
	if err != nil {
		return nil
	}
	return v.store.DeleteSession(c.Request().Context(), id)
}

func (v *Verifier) Count(ctx context.Context) (int, error) {
	return v.store.CountSessions(ctx)
}
