package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // certification.timezone must resolve on hosts without zoneinfo

	"github.com/spf13/viper"
)

// Config application-wide configuration
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"db"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Log           LogConfig           `mapstructure:"log"`
	Certification CertificationConfig `mapstructure:"certification"`
}

// ServerConfig HTTP server configuration
type ServerConfig struct {
	Port            int        `mapstructure:"port"`
	MaxBodyBytes    int64      `mapstructure:"max_body_bytes"`
	PublicRateLimit int        `mapstructure:"public_rate_limit"` // requests per minute per client IP
	CORS            CORSConfig `mapstructure:"cors"`
}

// CORSConfig cross-origin configuration
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL configuration
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// DSN builds the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT configuration for the admin API
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// LogConfig logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CertificationConfig batch and scoring configuration
type CertificationConfig struct {
	LifetimeMonths int           `mapstructure:"lifetime_months"`
	Timezone       string        `mapstructure:"timezone"`
	Workers        int           `mapstructure:"workers"` // <= 0 means one per CPU
	CompanyTimeout time.Duration `mapstructure:"company_timeout"`
	LockTTL        time.Duration `mapstructure:"lock_ttl"`

	Active     ActiveThresholds     `mapstructure:"active"`
	Compliance ComplianceThresholds `mapstructure:"compliance"`
	Changes    ChangesThresholds    `mapstructure:"changes"`
	Validation ValidationThresholds `mapstructure:"validation"`
	RealTime   RealTimeThresholds   `mapstructure:"real_time"`
	Scoring    ScoringThresholds    `mapstructure:"scoring"`
}

// ActiveThresholds "be active" criterion
type ActiveThresholds struct {
	MinActiveDays        int `mapstructure:"min_active_days"`
	MinActivitiesPerDay  int `mapstructure:"min_activities_per_day"`
	MinDrivers           int `mapstructure:"min_drivers"`
	DriversPercentage    int `mapstructure:"drivers_percentage"`
	SmallCompanyMaxUsers int `mapstructure:"small_company_max_users"`
}

// ComplianceThresholds "be compliant" criterion, tolerances in minutes
type ComplianceThresholds struct {
	MaxAlertsAllowed              int `mapstructure:"max_alerts_allowed"`
	DailyRestToleranceMinutes     int `mapstructure:"daily_rest_tolerance_minutes"`
	WorkDayToleranceMinutes       int `mapstructure:"work_day_tolerance_minutes"`
	BreakToleranceMinutes         int `mapstructure:"break_tolerance_minutes"`
	UninterruptedToleranceMinutes int `mapstructure:"uninterrupted_tolerance_minutes"`
	CalendarWeekToleranceMinutes  int `mapstructure:"calendar_week_tolerance_minutes"`
	MaxAlertsAllowedPercentage    int `mapstructure:"max_alerts_allowed_percentage"`
}

// ChangesThresholds "not too many changes" criterion
type ChangesThresholds struct {
	MaxChangesPercentage int `mapstructure:"max_changes_percentage"`
}

// ValidationThresholds "validates regularly" criterion
type ValidationThresholds struct {
	MaxDelayDays  int `mapstructure:"max_delay_days"`
	MinPercentage int `mapstructure:"min_percentage"`
}

// RealTimeThresholds "logs in real time" criterion
type RealTimeThresholds struct {
	ToleranceMinutes int `mapstructure:"tolerance_minutes"`
	MinPercentage    int `mapstructure:"min_percentage"`
}

// ScoringThresholds percentage-based reporting model
type ScoringThresholds struct {
	RealTimeToleranceMinutes int `mapstructure:"real_time_tolerance_minutes"`
	MinPercentage            int `mapstructure:"min_percentage"`
}

// Load reads configuration from file and environment.
// Precedence: environment > config file > defaults
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── defaults ──
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.public_rate_limit", 60)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "mobilic")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "24h")
	v.SetDefault("auth.issuer", "mobilic")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	setCertificationDefaults(v)

	// ── config file ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── environment ──
	v.SetEnvPrefix("MOBILIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setCertificationDefaults(v *viper.Viper) {
	v.SetDefault("certification.lifetime_months", 6)
	v.SetDefault("certification.timezone", "Europe/Paris")
	v.SetDefault("certification.workers", 0)
	v.SetDefault("certification.company_timeout", "5m")
	v.SetDefault("certification.lock_ttl", "2h")

	v.SetDefault("certification.active.min_active_days", 10)
	v.SetDefault("certification.active.min_activities_per_day", 2)
	v.SetDefault("certification.active.min_drivers", 3)
	v.SetDefault("certification.active.drivers_percentage", 20)
	v.SetDefault("certification.active.small_company_max_users", 3)

	v.SetDefault("certification.compliance.max_alerts_allowed", 0)
	v.SetDefault("certification.compliance.daily_rest_tolerance_minutes", 15)
	v.SetDefault("certification.compliance.work_day_tolerance_minutes", 15)
	v.SetDefault("certification.compliance.break_tolerance_minutes", 5)
	v.SetDefault("certification.compliance.uninterrupted_tolerance_minutes", 15)
	v.SetDefault("certification.compliance.calendar_week_tolerance_minutes", 15)
	v.SetDefault("certification.compliance.max_alerts_allowed_percentage", 10)

	v.SetDefault("certification.changes.max_changes_percentage", 10)

	v.SetDefault("certification.validation.max_delay_days", 7)
	v.SetDefault("certification.validation.min_percentage", 90)

	v.SetDefault("certification.real_time.tolerance_minutes", 15)
	v.SetDefault("certification.real_time.min_percentage", 90)

	v.SetDefault("certification.scoring.real_time_tolerance_minutes", 60)
	v.SetDefault("certification.scoring.min_percentage", 65)
}

// DefaultCertification returns the certification section with its default values.
func DefaultCertification() CertificationConfig {
	return CertificationConfig{
		LifetimeMonths: 6,
		Timezone:       "Europe/Paris",
		CompanyTimeout: 5 * time.Minute,
		LockTTL:        2 * time.Hour,
		Active: ActiveThresholds{
			MinActiveDays:        10,
			MinActivitiesPerDay:  2,
			MinDrivers:           3,
			DriversPercentage:    20,
			SmallCompanyMaxUsers: 3,
		},
		Compliance: ComplianceThresholds{
			MaxAlertsAllowed:              0,
			DailyRestToleranceMinutes:     15,
			WorkDayToleranceMinutes:       15,
			BreakToleranceMinutes:         5,
			UninterruptedToleranceMinutes: 15,
			CalendarWeekToleranceMinutes:  15,
			MaxAlertsAllowedPercentage:    10,
		},
		Changes:    ChangesThresholds{MaxChangesPercentage: 10},
		Validation: ValidationThresholds{MaxDelayDays: 7, MinPercentage: 90},
		RealTime:   RealTimeThresholds{ToleranceMinutes: 15, MinPercentage: 90},
		Scoring:    ScoringThresholds{RealTimeToleranceMinutes: 60, MinPercentage: 65},
	}
}

// Validate checks settings every entrypoint depends on
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid config: server.port must be within 1-65535")
	}
	return c.Certification.Validate()
}

// ValidateAuth checks the signing settings required by the HTTP server
func (c *Config) ValidateAuth() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("invalid config: auth.jwt_secret must not be empty")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("invalid config: auth.jwt_secret must be at least 16 characters")
	}
	return nil
}

// Validate checks the certification section
func (c *CertificationConfig) Validate() error {
	if c.LifetimeMonths < 1 {
		return fmt.Errorf("invalid config: certification.lifetime_months must be >= 1")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid config: certification.timezone %q: %w", c.Timezone, err)
	}
	if c.CompanyTimeout <= 0 {
		return fmt.Errorf("invalid config: certification.company_timeout must be positive")
	}
	for name, pct := range map[string]int{
		"active.drivers_percentage":                c.Active.DriversPercentage,
		"compliance.max_alerts_allowed_percentage": c.Compliance.MaxAlertsAllowedPercentage,
		"changes.max_changes_percentage":           c.Changes.MaxChangesPercentage,
		"validation.min_percentage":                c.Validation.MinPercentage,
		"real_time.min_percentage":                 c.RealTime.MinPercentage,
		"scoring.min_percentage":                   c.Scoring.MinPercentage,
	} {
		if pct < 0 || pct > 100 {
			return fmt.Errorf("invalid config: certification.%s must be within 0-100", name)
		}
	}
	if c.Validation.MaxDelayDays < 1 {
		return fmt.Errorf("invalid config: certification.validation.max_delay_days must be >= 1")
	}
	return nil
}

// Location returns the timezone used to cut evaluation days.
func (c *CertificationConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
