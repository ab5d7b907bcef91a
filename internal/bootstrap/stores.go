package bootstrap

import (
	"log/slog"

	"github.com/eleven-am/voice-subtitles/internal/session"
	"github.com/eleven-am/voice-subtitles/internal/usage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideSessionStore(redisClient *redis.Client, cfg *Config) *session.Store {
	return session.NewStore(redisClient, cfg.SessionTTL)
}

func ProvideCookieManager(cfg *Config) *session.CookieManager {
	return session.NewCookieManager(cfg.HMACKey, cfg.CookieSecure, cfg.CookieDomain, cfg.SessionTTL)
}

func ProvideVerifier(store *session.Store, cookies *session.CookieManager, logger *slog.Logger) *session.Verifier {
	return session.NewVerifier(store, cookies, logger)
}

func ProvideUsageStore(db *gorm.DB) *usage.Store {
	return usage.NewStore(db)
}

func ProvideUsageRecorder(store *usage.Store, logger *slog.Logger) *usage.Recorder {
	return usage.NewRecorder(store, logger)
}

func RunMigrations(usageStore *usage.Store) error {
	return usageStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideSessionStore,
		ProvideCookieManager,
		ProvideVerifier,
		ProvideUsageStore,
		ProvideUsageRecorder,
	),
	fx.Invoke(RunMigrations),
)
