package providers

import (
	"github.com/samber/do/v2"

	"github.com/knowyournotes/catalog-server/internal/auth"
	"github.com/knowyournotes/catalog-server/internal/config"
	"github.com/knowyournotes/catalog-server/internal/logger"
)

// AuthKey is the hex-encoded PASETO key shared with the identity service.
type AuthKey string

// ProvideAuthKey returns the configured token key. Outside production a
// missing key falls back to one stored under the data path.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.TokenKey != "" {
		return AuthKey(cfg.Auth.TokenKey), nil
	}

	keyHex, err := auth.LoadOrGenerateKeyHex(cfg.Store.DataPath)
	if err != nil {
		return "", err
	}
	log.Warn("AUTH_TOKEN_KEY not set, using local development key",
		"path", cfg.Store.DataPath,
	)
	return AuthKey(keyHex), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	key := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService(string(key), cfg.Auth.Issuer, cfg.Auth.Audience)
}
