package ctd

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gilchrisn/connect-the-dots/pkg/models"
	"github.com/gilchrisn/connect-the-dots/pkg/ranking"
	"github.com/gilchrisn/connect-the-dots/pkg/seeds"
)

// Config manages run configuration using Viper
type Config struct {
	v *viper.Viper
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	v := viper.New()

	// Seed selection
	v.SetDefault("seeds.kmx", 15)
	v.SetDefault("seeds.present_in_perc", 0.5)

	// Walk parameters
	v.SetDefault("walk.p1", 1.0)
	v.SetDefault("walk.threshold_diff", 0.01)
	v.SetDefault("walk.miss_budget", -1.0) // log2(|G|)

	// Performance parameters
	v.SetDefault("performance.num_workers", runtime.NumCPU())

	// Scoring and output
	v.SetDefault("scoring.patient", "")
	v.SetDefault("output.include_not_in_s", false)

	// Logging parameters
	v.SetDefault("logging.level", "info")

	v.SetEnvPrefix("CTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Config{v: v}
}

// LoadFromFile loads configuration from file
func (c *Config) LoadFromFile(path string) error {
	c.v.SetConfigFile(path)
	if err := c.v.ReadInConfig(); err != nil {
		return models.Configurationf("reading config %s: %v", path, err)
	}
	return nil
}

// Viper exposes the underlying instance for flag binding.
func (c *Config) Viper() *viper.Viper { return c.v }

// Set allows dynamic configuration changes
func (c *Config) Set(key string, value interface{}) {
	c.v.Set(key, value)
}

func (c *Config) Kmx() int               { return c.v.GetInt("seeds.kmx") }
func (c *Config) PresentInPerc() float64 { return c.v.GetFloat64("seeds.present_in_perc") }
func (c *Config) P1() float64            { return c.v.GetFloat64("walk.p1") }
func (c *Config) ThresholdDiff() float64 { return c.v.GetFloat64("walk.threshold_diff") }
func (c *Config) MissBudget() float64    { return c.v.GetFloat64("walk.miss_budget") }
func (c *Config) NumWorkers() int        { return c.v.GetInt("performance.num_workers") }
func (c *Config) Patient() string        { return c.v.GetString("scoring.patient") }
func (c *Config) IncludeNotInS() bool    { return c.v.GetBool("output.include_not_in_s") }
func (c *Config) LogLevel() string       { return c.v.GetString("logging.level") }

// SeedParams returns the seed derivation parameters.
func (c *Config) SeedParams() seeds.Params {
	return seeds.Params{TopK: c.Kmx(), PresentInPerc: c.PresentInPerc()}
}

// WalkParams returns the walk parameters.
func (c *Config) WalkParams() ranking.Params {
	return ranking.Params{P1: c.P1(), ThresholdDiff: c.ThresholdDiff(), MissBudget: c.MissBudget()}
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.NumWorkers() < 1 {
		return models.Configurationf("performance.num_workers must be at least 1, got %d", c.NumWorkers())
	}
	if c.Kmx() < 1 {
		return models.Configurationf("seeds.kmx must be at least 1, got %d", c.Kmx())
	}
	if p := c.PresentInPerc(); p < 0 || p > 1 {
		return models.Configurationf("seeds.present_in_perc must be in [0,1], got %g", p)
	}
	if p := c.P1(); p < 0 || p > 1 {
		return models.Configurationf("walk.p1 must be in [0,1], got %g", p)
	}
	if t := c.ThresholdDiff(); t <= 0 {
		return models.Configurationf("walk.threshold_diff must be positive, got %g", t)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel()); err != nil {
		return models.Configurationf("logging.level: %v", err)
	}
	return nil
}

// String summarises the effective configuration for logs.
func (c *Config) String() string {
	return fmt.Sprintf("kmx=%d present_in_perc=%g p1=%g threshold_diff=%g workers=%d include_not_in_s=%t",
		c.Kmx(), c.PresentInPerc(), c.P1(), c.ThresholdDiff(), c.NumWorkers(), c.IncludeNotInS())
}

// CreateLogger creates a zerolog logger based on config
func (c *Config) CreateLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(c.LogLevel())
	if err != nil {
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}).Level(level).With().Timestamp().Str("service", "ctd").Logger()
}
