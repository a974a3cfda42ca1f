package sokoni

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// Config carries everything the core components need. It is parsed once and
// passed into constructors; nothing reads process-wide state ambiently.
type Config struct {
	SigningKey string `env:"SOKONI_SIGNING_KEY" envDefault:"dev-jwt-secret"`
	Issuer     string `env:"SOKONI_TOKEN_ISSUER" envDefault:"sokoni"`

	// LoginTokenTTL applies to interactive logins, ServiceTokenTTL to
	// service-to-service tokens. Both mechanisms coexist.
	LoginTokenTTL   time.Duration `env:"SOKONI_LOGIN_TOKEN_TTL" envDefault:"168h"`
	ServiceTokenTTL time.Duration `env:"SOKONI_SERVICE_TOKEN_TTL" envDefault:"1h"`

	DatabaseDSN string `env:"SOKONI_DATABASE_DSN" envDefault:"file:sokoni.db?cache=shared"`
	ListenAddr  string `env:"SOKONI_LISTEN_ADDR" envDefault:":5000"`

	// PlatformCommission is the platform's cut of each payment.
	PlatformCommission float64 `env:"SOKONI_PLATFORM_COMMISSION" envDefault:"0.20"`

	SettingsPath string `env:"SOKONI_SETTINGS_PATH" envDefault:"settings.json"`

	Debug bool `env:"SOKONI_DEBUG" envDefault:"false"`
}

// LoadConfig parses the configuration from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return cfg, errors.Wrap(err, errors.CategoryBadInput, "failed to parse environment configuration")
	}

	if cfg.PlatformCommission < 0 || cfg.PlatformCommission >= 1 {
		return cfg, errors.New("platform commission must be in [0, 1)", errors.CategoryValidation).
			WithTextCode(TextCodeValidation)
	}

	return cfg, nil
}
