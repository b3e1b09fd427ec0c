package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all configuration for the service
type Config struct {
	Server    ServerConfig    `mapstructure:",squash"`
	Database  DatabaseConfig  `mapstructure:",squash"`
	Redis     RedisConfig     `mapstructure:",squash"`
	JWT       JWTConfig       `mapstructure:",squash"`
	OTP       OTPConfig       `mapstructure:",squash"`
	SMTP      SMTPConfig      `mapstructure:",squash"`
	Scheduler SchedulerConfig `mapstructure:",squash"`
	Logging   LoggingConfig   `mapstructure:",squash"`
	Business  BusinessConfig  `mapstructure:",squash"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"SERVER_HOST"`
	Port         string        `mapstructure:"SERVER_PORT"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"DATABASE_HOST"`
	Port            string        `mapstructure:"DATABASE_PORT"`
	Name            string        `mapstructure:"DATABASE_NAME"`
	User            string        `mapstructure:"DATABASE_USER"`
	Password        string        `mapstructure:"DATABASE_PASSWORD"`
	SSLMode         string        `mapstructure:"DATABASE_SSLMODE"`
	MaxOpenConns    int           `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `mapstructure:"DATABASE_CONN_MAX_LIFETIME"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"JWT_SECRET"`
	Issuer     string        `mapstructure:"JWT_ISSUER"`
	AccessTTL  time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	RefreshTTL time.Duration `mapstructure:"JWT_REFRESH_TTL"`
}

type OTPConfig struct {
	TTL time.Duration `mapstructure:"OTP_TTL"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"SMTP_HOST"`
	Port     string `mapstructure:"SMTP_PORT"`
	Username string `mapstructure:"SMTP_USERNAME"`
	Password string `mapstructure:"SMTP_PASSWORD"`
	From     string `mapstructure:"SMTP_FROM"`
}

type SchedulerConfig struct {
	Timezone     string `mapstructure:"SCHEDULER_TIMEZONE"`
	ReminderDays int    `mapstructure:"SCHEDULER_REMINDER_DAYS"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type BusinessConfig struct {
	MinPrincipal    string `mapstructure:"LOAN_MIN_PRINCIPAL"`
	MaxPrincipal    string `mapstructure:"LOAN_MAX_PRINCIPAL"`
	MinTenureMonths int    `mapstructure:"LOAN_MIN_TENURE_MONTHS"`
	MaxTenureMonths int    `mapstructure:"LOAN_MAX_TENURE_MONTHS"`
}

// Load reads configuration from environment variables and an optional .env
// file.
func Load() (*Config, error) {
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("DATABASE_HOST", "localhost")
	viper.SetDefault("DATABASE_PORT", "5432")
	viper.SetDefault("DATABASE_NAME", "loans")
	viper.SetDefault("DATABASE_USER", "postgres")
	viper.SetDefault("DATABASE_PASSWORD", "")
	viper.SetDefault("DATABASE_SSLMODE", "disable")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DATABASE_CONN_MAX_LIFETIME", "30m")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	// Registered empty so environment overrides are picked up by Unmarshal.
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("JWT_ISSUER", "loan-management")
	viper.SetDefault("JWT_ACCESS_TTL", "15m")
	viper.SetDefault("JWT_REFRESH_TTL", "168h")
	viper.SetDefault("OTP_TTL", "5m")
	viper.SetDefault("SMTP_HOST", "")
	viper.SetDefault("SMTP_PORT", "587")
	viper.SetDefault("SMTP_USERNAME", "")
	viper.SetDefault("SMTP_PASSWORD", "")
	viper.SetDefault("SMTP_FROM", "no-reply@loans.local")
	viper.SetDefault("SCHEDULER_TIMEZONE", "UTC")
	viper.SetDefault("SCHEDULER_REMINDER_DAYS", 3)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("LOAN_MIN_PRINCIPAL", "1000")
	viper.SetDefault("LOAN_MAX_PRINCIPAL", "100000")
	viper.SetDefault("LOAN_MIN_TENURE_MONTHS", 3)
	viper.SetDefault("LOAN_MAX_TENURE_MONTHS", 24)

	viper.AutomaticEnv()

	// Optional .env file, same keys as the environment.
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.OTP.TTL <= 0 {
		return fmt.Errorf("OTP_TTL must be a positive duration")
	}
	if c.Scheduler.ReminderDays <= 0 {
		return fmt.Errorf("SCHEDULER_REMINDER_DAYS must be greater than 0")
	}

	minPrincipal, err := decimal.NewFromString(c.Business.MinPrincipal)
	if err != nil {
		return fmt.Errorf("LOAN_MIN_PRINCIPAL must be a valid decimal: %w", err)
	}
	maxPrincipal, err := decimal.NewFromString(c.Business.MaxPrincipal)
	if err != nil {
		return fmt.Errorf("LOAN_MAX_PRINCIPAL must be a valid decimal: %w", err)
	}
	if maxPrincipal.LessThan(minPrincipal) {
		return fmt.Errorf("LOAN_MAX_PRINCIPAL must not be below LOAN_MIN_PRINCIPAL")
	}
	if c.Business.MinTenureMonths < 1 {
		return fmt.Errorf("LOAN_MIN_TENURE_MONTHS must be at least 1")
	}
	if c.Business.MaxTenureMonths < c.Business.MinTenureMonths {
		return fmt.Errorf("LOAN_MAX_TENURE_MONTHS must not be below LOAN_MIN_TENURE_MONTHS")
	}

	return nil
}

// DSN returns the Postgres connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// MinPrincipalDecimal returns the lower principal bound as decimal.
func (c *BusinessConfig) MinPrincipalDecimal() decimal.Decimal {
	min, _ := decimal.NewFromString(c.MinPrincipal)
	return min
}

// MaxPrincipalDecimal returns the upper principal bound as decimal.
func (c *BusinessConfig) MaxPrincipalDecimal() decimal.Decimal {
	max, _ := decimal.NewFromString(c.MaxPrincipal)
	return max
}
