package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode   `env:"MODE" envDefault:"offline" validate:"oneof=offline online"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080" validate:"required"`

	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite" validate:"oneof=sqlite postgres"`
	DBDSN    string `env:"DB_DSN"`

	AuthHMACSecret string        `env:"AUTH_HMAC_SECRET" envDefault:"dev-secret-change-me" validate:"required"`
	TokenTTL       time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"12h" validate:"gt=0"`
	AdminUser      string        `env:"ADMIN_USER" envDefault:"admin" validate:"required"`
	AdminPassHash  string        `env:"ADMIN_PASS_HASH" envDefault:"$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"` // bcrypt
	RoleFromDB     bool          `env:"ROLE_FROM_DB" envDefault:"true"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:3010"`

	// PendingScoreCron is a standard 5-field cron spec; "off" disables the job.
	PendingScoreCron string `env:"PENDING_SCORE_CRON" envDefault:"*/15 * * * *"`
	SiteID           string `env:"SITE_ID" envDefault:"local" validate:"required"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`
}

var validate = validator.New()

// Load reads an optional .env file, then the process environment.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		// variables already set in the environment win over the file
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromEnv()
}

// FromEnv parses and validates the process environment.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Mode = Mode(strings.ToLower(string(cfg.Mode)))
	cfg.CORSOrigins = trimAll(cfg.CORSOrigins)
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Mode == ModeOnline && cfg.AuthHMACSecret == "dev-secret-change-me" {
		return Config{}, errors.New("invalid config: AUTH_HMAC_SECRET must be set in online mode")
	}
	return cfg, nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
