package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/tulenlabs/tulen-connect/internal/platform"
)

// Config is the process configuration, read once at startup from the
// environment (with optional .env support for local development).
type Config struct {
	AppName  string `env:"CONNECT_APP_NAME" envDefault:"tulen-connect"`
	HTTPHost string `env:"CONNECT_HTTP_HOST" envDefault:"127.0.0.1"`
	HTTPPort string `env:"CONNECT_HTTP_PORT" envDefault:"8080"`

	// AppBaseURL is the dashboard frontend origin the OAuth callback
	// redirects back to after an exchange.
	AppBaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:3000"`

	DBDriver string `env:"CONNECT_DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"CONNECT_DB_DSN" envDefault:"connect.db"`

	// AdminPassword protects the dashboard and /api routes when set.
	AdminPassword string `env:"CONNECT_ADMIN_PASSWORD"`

	// ProfileConfig optionally points at a YAML file overriding the built-in
	// token endpoint profiles.
	ProfileConfig string `env:"CONNECT_PROFILE_CONFIG"`

	// SweepInterval drives the background refresh sweep; zero disables it.
	SweepInterval time.Duration `env:"CONNECT_SWEEP_INTERVAL" envDefault:"0"`

	FacebookAdsClientID      string `env:"FACEBOOK_ADS_CLIENT_ID"`
	FacebookAdsClientSecret  string `env:"FACEBOOK_ADS_CLIENT_SECRET"`
	GoogleAdsClientID        string `env:"GOOGLE_ADS_CLIENT_ID"`
	GoogleAdsClientSecret    string `env:"GOOGLE_ADS_CLIENT_SECRET"`
	GoogleSheetsClientID     string `env:"GOOGLE_SHEETS_CLIENT_ID"`
	GoogleSheetsClientSecret string `env:"GOOGLE_SHEETS_CLIENT_SECRET"`
	GoHighLevelClientID      string `env:"GOHIGHLEVEL_CLIENT_ID"`
	GoHighLevelClientSecret  string `env:"GOHIGHLEVEL_CLIENT_SECRET"`
	GoogleAIClientID         string `env:"GOOGLE_AI_CLIENT_ID"`
	GoogleAIClientSecret     string `env:"GOOGLE_AI_CLIENT_SECRET"`
}

// Load reads configuration from the environment, loading .env first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad is Load for main(); it exits on a malformed environment.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

// ClientCredentials returns the env-configured OAuth client pair for a
// platform. Empty strings mean the pair is not configured via environment;
// an admin-managed credential row may still exist in the database.
func (c *Config) ClientCredentials(name string) (clientID, clientSecret string) {
	switch name {
	case platform.FacebookAds:
		return c.FacebookAdsClientID, c.FacebookAdsClientSecret
	case platform.GoogleAds:
		return c.GoogleAdsClientID, c.GoogleAdsClientSecret
	case platform.GoogleSheets:
		return c.GoogleSheetsClientID, c.GoogleSheetsClientSecret
	case platform.GoHighLevel:
		return c.GoHighLevelClientID, c.GoHighLevelClientSecret
	case platform.GoogleAI:
		return c.GoogleAIClientID, c.GoogleAIClientSecret
	}
	return "", ""
}
