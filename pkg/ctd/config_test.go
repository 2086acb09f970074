package ctd

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gilchrisn/connect-the-dots/pkg/models"
	"github.com/gilchrisn/connect-the-dots/pkg/ranking"
	"github.com/gilchrisn/connect-the-dots/pkg/seeds"
)

func TestConfigDefaults(t *testing.T) {
	c := NewConfig()

	assert.Equal(t, 15, c.Kmx())
	assert.Equal(t, 0.5, c.PresentInPerc())
	assert.Equal(t, 1.0, c.P1())
	assert.Equal(t, 0.01, c.ThresholdDiff())
	assert.Equal(t, runtime.NumCPU(), c.NumWorkers())
	assert.False(t, c.IncludeNotInS())
	assert.Equal(t, "", c.Patient())
	assert.Equal(t, "info", c.LogLevel())
	assert.NoError(t, c.Validate())

	assert.Equal(t, seeds.Params{TopK: 15, PresentInPerc: 0.5}, c.SeedParams())
	assert.Equal(t, ranking.Params{P1: 1.0, ThresholdDiff: 0.01, MissBudget: -1}, c.WalkParams())
}

func TestConfigEnvironmentOverride(t *testing.T) {
	t.Setenv("CTD_SEEDS_KMX", "7")
	t.Setenv("CTD_OUTPUT_INCLUDE_NOT_IN_S", "true")

	c := NewConfig()
	assert.Equal(t, 7, c.Kmx())
	assert.True(t, c.IncludeNotInS())
}

func TestConfigLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctd.yaml")
	content := "walk:\n  p1: 0.8\n  threshold_diff: 0.05\nperformance:\n  num_workers: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	c := NewConfig()
	require.NoError(t, c.LoadFromFile(path))
	assert.Equal(t, 0.8, c.P1())
	assert.Equal(t, 0.05, c.ThresholdDiff())
	assert.Equal(t, 3, c.NumWorkers())
	assert.Equal(t, 15, c.Kmx())

	err := NewConfig().LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, models.ErrConfiguration))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"no workers", "performance.num_workers", 0},
		{"kmx zero", "seeds.kmx", 0},
		{"perc above one", "seeds.present_in_perc", 1.5},
		{"negative p1", "walk.p1", -0.1},
		{"p1 above one", "walk.p1", 1.01},
		{"zero threshold", "walk.threshold_diff", 0.0},
		{"bad log level", "logging.level", "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			c.Set(tt.key, tt.value)
			err := c.Validate()
			assert.True(t, errors.Is(err, models.ErrConfiguration), "got %v", err)
		})
	}
}
