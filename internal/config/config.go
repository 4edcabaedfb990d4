package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"

	"github.com/civicportal/lifecycle-engine/internal/domain/eligibility"
	"github.com/civicportal/lifecycle-engine/internal/domain/entity"
	"github.com/civicportal/lifecycle-engine/internal/domain/ranking"
	"github.com/civicportal/lifecycle-engine/internal/domain/screening"
	"github.com/civicportal/lifecycle-engine/internal/domain/workflow"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Policy   PolicyConfig   `mapstructure:"policy"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// EngineConfig holds lifecycle engine tuning
type EngineConfig struct {
	MaxConflictRetries int           `mapstructure:"max_conflict_retries"`
	AsyncTimeout       time.Duration `mapstructure:"async_timeout"`
	// RankingRefreshInterval of zero disables the periodic ranking refresher
	RankingRefreshInterval time.Duration `mapstructure:"ranking_refresh_interval"`
}

// PolicyConfig holds the versioned eligibility, readiness and ranking rules
type PolicyConfig struct {
	Version   string           `mapstructure:"version"`
	Programs  []ProgramConfig  `mapstructure:"programs"`
	Manifests []ManifestConfig `mapstructure:"manifests"`
	Ranking   RankingConfig    `mapstructure:"ranking"`
}

// ProgramConfig holds the thresholds of one housing program
type ProgramConfig struct {
	ID                string  `mapstructure:"id"`
	IncomeCeiling     float64 `mapstructure:"income_ceiling"`
	MinResidencyYears float64 `mapstructure:"min_residency_years"`
}

// ManifestConfig lists required fields and documents for a domain stage
type ManifestConfig struct {
	Domain            string   `mapstructure:"domain"`
	Stage             string   `mapstructure:"stage"`
	RequiredFields    []string `mapstructure:"required_fields"`
	RequiredDocuments []string `mapstructure:"required_documents"`
	CriticalDocuments []string `mapstructure:"critical_documents"`
}

// RankingConfig holds the waitlist scoring weights
type RankingConfig struct {
	Sectors          map[string]float64 `mapstructure:"sectors"`
	PerDependent     float64            `mapstructure:"per_dependent"`
	ResidencyPerYear float64            `mapstructure:"residency_per_year"`
	ResidencyCap     float64            `mapstructure:"residency_cap"`
	IncomeReference  float64            `mapstructure:"income_reference"`
	IncomeWeight     float64            `mapstructure:"income_weight"`
	IncomeCap        float64            `mapstructure:"income_cap"`
}

// Load loads configuration from file, .env and environment variables
func Load(configPath string) (*Config, error) {
	if err := gotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/lifecycle.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Engine defaults
	v.SetDefault("engine.max_conflict_retries", 3)
	v.SetDefault("engine.async_timeout", 30*time.Second)
	v.SetDefault("engine.ranking_refresh_interval", 0)
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("server.port", "SERVER_PORT")
	_ = v.BindEnv("database.path", "DATABASE_PATH")
	_ = v.BindEnv("logger.level", "LOG_LEVEL")
	_ = v.BindEnv("engine.max_conflict_retries", "ENGINE_MAX_CONFLICT_RETRIES")
	_ = v.BindEnv("policy.version", "POLICY_VERSION")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Engine.MaxConflictRetries < 1 {
		return fmt.Errorf("engine.max_conflict_retries must be at least 1")
	}
	if c.Policy.Version == "" {
		return fmt.Errorf("policy.version is required")
	}

	if _, err := eligibility.NewPolicySet(c.ToEligibilityPolicies()); err != nil {
		return err
	}
	manifests, err := c.ToManifests()
	if err != nil {
		return err
	}
	if _, err := screening.NewReadinessChecker(manifests); err != nil {
		return err
	}
	if err := c.ToRankingWeights().Validate(); err != nil {
		return err
	}

	return nil
}

// ToEligibilityPolicies converts program thresholds into domain policies.
// Every program carries the policy version.
func (c *Config) ToEligibilityPolicies() []eligibility.Policy {
	policies := make([]eligibility.Policy, 0, len(c.Policy.Programs))
	for _, p := range c.Policy.Programs {
		policies = append(policies, eligibility.Policy{
			Version:           c.Policy.Version,
			ProgramID:         p.ID,
			IncomeCeiling:     p.IncomeCeiling,
			MinResidencyYears: p.MinResidencyYears,
		})
	}
	return policies
}

// ToManifests converts manifest entries into domain manifests
func (c *Config) ToManifests() ([]screening.Manifest, error) {
	manifests := make([]screening.Manifest, 0, len(c.Policy.Manifests))
	for _, m := range c.Policy.Manifests {
		domain := workflow.Domain(m.Domain)
		if !domain.IsApplicationDomain() {
			return nil, workflow.NewConfigurationError("manifest", "unknown domain %q", m.Domain)
		}
		manifests = append(manifests, screening.Manifest{
			Domain:            domain,
			Stage:             m.Stage,
			RequiredFields:    m.RequiredFields,
			RequiredDocuments: m.RequiredDocuments,
			CriticalDocuments: m.CriticalDocuments,
		})
	}
	return manifests, nil
}

// ToRankingWeights converts the scoring table into domain weights
func (c *Config) ToRankingWeights() ranking.Weights {
	sectors := make(map[entity.SectorTag]float64, len(c.Policy.Ranking.Sectors))
	for tag, weight := range c.Policy.Ranking.Sectors {
		sectors[entity.SectorTag(tag)] = weight
	}
	return ranking.Weights{
		Version:          c.Policy.Version,
		Sectors:          sectors,
		PerDependent:     c.Policy.Ranking.PerDependent,
		ResidencyPerYear: c.Policy.Ranking.ResidencyPerYear,
		ResidencyCap:     c.Policy.Ranking.ResidencyCap,
		IncomeReference:  c.Policy.Ranking.IncomeReference,
		IncomeWeight:     c.Policy.Ranking.IncomeWeight,
		IncomeCap:        c.Policy.Ranking.IncomeCap,
	}
}

// ProgramIDs returns the configured housing program ids
func (c *Config) ProgramIDs() []string {
	ids := make([]string, 0, len(c.Policy.Programs))
	for _, p := range c.Policy.Programs {
		ids = append(ids, p.ID)
	}
	return ids
}
