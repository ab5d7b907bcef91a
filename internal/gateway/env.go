package gateway

import (
	"net/http"
	"sort"
	"strings"

	"github.com/eleven-am/voice-subtitles/internal/transcription"
	"github.com/labstack/echo/v4"
)

func (h *Handler) CheckAPIKey(c echo.Context) error {
	return c.JSON(http.StatusOK, CheckAPIKeyResponse{HasAPIKey: h.opts.ServerAPIKey != ""})
}

// CheckEnv lists the names, never the values, of environment variables that
// look like transcription settings.
func (h *Handler) CheckEnv(c echo.Context) error {
	hasKey := h.opts.ServerAPIKey != ""

	vars := []EnvVar{}
	for _, kv := range h.opts.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if strings.Contains(name, "SILICON") || strings.Contains(name, "API") {
			vars = append(vars, EnvVar{Name: name, Exists: true})
		}
	}
	sort.Slice(vars, func(i, j int) bool { return vars[i].Name < vars[j].Name })

	message := "environment variable " + serverKeyEnv + " is not set"
	if hasKey {
		message = "environment variable " + serverKeyEnv + " is set"
	}

	return c.JSON(http.StatusOK, CheckEnvResponse{
		HasAPIKey: hasKey,
		Message:   message,
		EnvVars:   vars,
	})
}

// TestAPIKey reports the server key's shape without calling the service.
func (h *Handler) TestAPIKey(c echo.Context) error {
	cred := transcription.Credential{Key: h.opts.ServerAPIKey, Source: transcription.SourceServer}
	resp := TestAPIKeyResponse{
		Success:   true,
		HasAPIKey: !cred.Empty(),
	}
	if !cred.Empty() {
		length, prefix := cred.Masked()
		resp.KeyLength = length
		resp.KeyPrefix = &prefix
	}
	return c.JSON(http.StatusOK, resp)
}
