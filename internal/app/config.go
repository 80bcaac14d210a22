package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

// Config represents the runtime configuration for the TaskHub backend.
type Config struct {
	Server      ServerConfig     `mapstructure:"server"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Auth        AuthConfig       `mapstructure:"auth"`
	Email       EmailConfig      `mapstructure:"email"`
	Invitations InvitationConfig `mapstructure:"invitations"`
	Monitoring  MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port          int    `mapstructure:"port"`
	LogLevel      string `mapstructure:"log_level"`
	ClientBaseURL string `mapstructure:"client_base_url"`
	UploadDir     string `mapstructure:"upload_dir"`
	CORSOrigin    string `mapstructure:"cors_origin"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures all authentication-related settings.
type AuthConfig struct {
	JWT    JWTSettings    `mapstructure:"jwt"`
	Cookie CookieSettings `mapstructure:"cookie"`
}

// JWTSettings configures the access/refresh token pair. The two secrets must
// be set and must differ; tokens of one kind never verify as the other.
type JWTSettings struct {
	AccessSecret  string        `mapstructure:"access_secret"`
	RefreshSecret string        `mapstructure:"refresh_secret"`
	Issuer        string        `mapstructure:"issuer"`
	AccessTTL     time.Duration `mapstructure:"access_token_ttl"`
	RefreshTTL    time.Duration `mapstructure:"refresh_token_ttl"`
}

// CookieSettings controls how token cookies are written.
type CookieSettings struct {
	Domain string `mapstructure:"domain"`
	Secure bool   `mapstructure:"secure"`
}

// EmailConfig captures outbound email settings.
type EmailConfig struct {
	SMTP SMTPConfig `mapstructure:"smtp"`
}

// SMTPConfig defines SMTP dialer settings for sending email.
type SMTPConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	UseTLS   bool          `mapstructure:"use_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// InvitationConfig tunes the invitation lifecycle.
type InvitationConfig struct {
	Expiry time.Duration `mapstructure:"expiry"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("TASKHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate reports every configuration problem at once rather than stopping
// at the first.
func (c *Config) Validate() error {
	var err error

	if strings.TrimSpace(c.Auth.JWT.AccessSecret) == "" {
		err = multierr.Append(err, errors.New("config: auth.jwt.access_secret is required"))
	}
	if strings.TrimSpace(c.Auth.JWT.RefreshSecret) == "" {
		err = multierr.Append(err, errors.New("config: auth.jwt.refresh_secret is required"))
	}
	if c.Auth.JWT.AccessSecret != "" && c.Auth.JWT.AccessSecret == c.Auth.JWT.RefreshSecret {
		err = multierr.Append(err, errors.New("config: auth.jwt access and refresh secrets must differ"))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("config: server.port %d is out of range", c.Server.Port))
	}
	if c.Email.SMTP.Enabled && strings.TrimSpace(c.Email.SMTP.Host) == "" {
		err = multierr.Append(err, errors.New("config: email.smtp.host is required when smtp is enabled"))
	}

	return err
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.client_base_url", "http://localhost:5173")
	v.SetDefault("server.upload_dir", "./uploads/avatars")
	v.SetDefault("server.cors_origin", "http://localhost:5173")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/taskhub.sqlite")

	v.SetDefault("auth.jwt.access_token_ttl", "15m")
	v.SetDefault("auth.jwt.refresh_token_ttl", "168h") // 7 days
	v.SetDefault("auth.jwt.issuer", "taskhub")
	v.SetDefault("auth.cookie.secure", false)

	v.SetDefault("email.smtp.enabled", false)
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.use_tls", true)
	v.SetDefault("email.smtp.timeout", "10s")

	v.SetDefault("invitations.expiry", "168h") // 7 days

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
