package session

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/eleven-am/voice-subtitles/internal/shared"
	"github.com/labstack/echo/v4"
)

type Handler struct {
	verifier *Verifier
	password string
	logger   *slog.Logger
}

func NewHandler(verifier *Verifier, password string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		verifier: verifier,
		password: password,
		logger:   logger.With("handler", "session"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/verify-password", h.VerifyPassword)
	g.POST("/logout", h.Logout)
	g.GET("/session", h.Status)
}

type VerifyPasswordRequest struct {
	Password string `json:"password"`
}

type VerifyPasswordResponse struct {
	Success            bool   `json:"success"`
	Message            string `json:"message"`
	CanUseServerAPIKey bool   `json:"canUseServerApiKey"`
}

type StatusResponse struct {
	Verified bool `json:"verified"`
}

func (h *Handler) VerifyPassword(c echo.Context) error {
	var req VerifyPasswordRequest
	if err := c.Bind(&req); err != nil {
		return shared.BadRequest("invalid_body", "Invalid request body")
	}

	if h.password == "" {
		return c.JSON(http.StatusInternalServerError, VerifyPasswordResponse{
			Message: "server access password is not configured",
		})
	}

	if subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.password)) != 1 {
		h.logger.Info("password verification failed", "remote_addr", c.RealIP())
		return c.JSON(http.StatusUnauthorized, VerifyPasswordResponse{
			Message: "incorrect password",
		})
	}

	sess, err := h.verifier.Establish(c)
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		return shared.InternalError("session_failed", "Failed to create session")
	}

	h.logger.Info("password verified", "session_id", sess.ID, "remote_addr", sess.RemoteAddr)
	return c.JSON(http.StatusOK, VerifyPasswordResponse{
		Success:            true,
		Message:            "password verified",
		CanUseServerAPIKey: true,
	})
}

func (h *Handler) Logout(c echo.Context) error {
	if err := h.verifier.Revoke(c); err != nil {
		h.logger.Error("failed to delete session", "error", err)
		return shared.InternalError("logout_failed", "Failed to end session")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Verified: h.verifier.Verified(c)})
}
