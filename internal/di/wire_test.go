package di

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/qhybrid/internal/config"
	"github.com/aristath/qhybrid/internal/domain"
	"github.com/aristath/qhybrid/internal/events"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                 8080,
		MaxQubits:            8,
		CoherenceTime:        time.Second,
		DecoherenceRate:      0.001,
		Tier1Capacity:        4,
		Tier2Capacity:        8,
		Tier3Capacity:        16,
		DefaultMemorySize:    32,
		HistoryLimit:         10,
		HistoryRetention:     time.Hour,
		StatusReportSchedule: "@every 30s",
		RetentionSchedule:    "@every 10m",
		Seed:                 1,
	}
}

func TestWire(t *testing.T) {
	container, jobs, err := Wire(testConfig(), zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, container)
	require.NotNil(t, jobs)

	assert.NotNil(t, container.EventBus)
	assert.NotNil(t, container.Core)
	assert.Equal(t, 2, container.Scheduler.Len())
	assert.NotNil(t, jobs.StatusReport)
	assert.NotNil(t, jobs.HistoryRetention)

	assert.Equal(t, 8, container.Core.Status().Quantum.MaxQubits)
	assert.Equal(t, 32, container.Core.CacheStats().MemorySize)
}

func TestWire_JobsReachTheCore(t *testing.T) {
	container, jobs, err := Wire(testConfig(), zerolog.Nop())
	require.NoError(t, err)

	ch, unsubscribe := container.EventBus.Subscribe(events.StatusReported)
	defer unsubscribe()

	require.NoError(t, container.Scheduler.RunNow(jobs.StatusReport))
	event := <-ch
	assert.Equal(t, events.StatusReported, event.Type)

	require.NoError(t, container.Scheduler.RunNow(jobs.HistoryRetention))
}

func TestWire_InvalidCore(t *testing.T) {
	cfg := testConfig()
	cfg.Tier1Capacity = 0

	_, _, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestWire_InvalidSchedule(t *testing.T) {
	cfg := testConfig()
	cfg.RetentionSchedule = "sometimes"

	_, _, err := Wire(cfg, zerolog.Nop())
	assert.Error(t, err)
}
