package container

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gosim/app"
	"gosim/internal/config"
	"gosim/internal/testkit"
)

func testConfig() *config.Config {
	return &config.Config{
		Database:   config.DatabaseConfig{URL: "sqlite://:memory:", MaxOpenConns: 1},
		Simulation: config.SimulationConfig{Workers: 2, Digits: 3, MaxRows: 1000},
		Logging:    config.LoggingConfig{Level: "ERROR"},
	}
}

func TestNew_RejectsNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestContainer_StoresRunsOnceOpened(t *testing.T) {
	ctx := context.Background()
	c, err := New(testConfig())
	require.NoError(t, err)
	assert.Nil(t, c.RunRepo)

	require.NoError(t, c.Open(ctx))
	defer c.Shutdown(ctx)
	require.NotNil(t, c.RunRepo)

	res, err := c.Studies.RunStudy(ctx, testkit.TwoGroupStudy(5, 1), app.ExecuteOptions{})
	require.NoError(t, err)

	stored, err := c.RunRepo.GetRun(ctx, res.Run.Manifest.RunID)
	require.NoError(t, err)
	assert.Equal(t, res.Run.Trials, stored.Trials)
	assert.NotNil(t, c.APIServer())
}
