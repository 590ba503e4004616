package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)
	assert.Equal(t, Default().ShortTick, cfg.ShortTick)
	assert.Equal(t, Default().LongTick, cfg.LongTick)
}

func TestLoadOverridesFromViper(t *testing.T) {
	v := viper.New()
	v.Set("short_tick", 5*time.Millisecond)
	v.Set("node_id", "n1")
	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Millisecond, cfg.ShortTick)
	assert.Equal(t, "n1", cfg.NodeID)
}

func TestValidateRejectsBadBackoffWindow(t *testing.T) {
	v := viper.New()
	v.Set("backoff_min", 100*time.Millisecond)
	v.Set("backoff_max", 10*time.Millisecond)
	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidateRejectsNonPositiveTicks(t *testing.T) {
	v := viper.New()
	v.Set("short_tick", 0)
	_, err := Load(v)
	assert.Error(t, err)
}
