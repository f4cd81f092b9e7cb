package utils

import (
	"bytes"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestTimer_WarnsWhenSlow(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.WarnLevel)

	timer := NewTimer("simulation_tick", time.Nanosecond, log)
	time.Sleep(time.Millisecond)
	elapsed := timer.Stop()

	assert.GreaterOrEqual(t, elapsed, time.Millisecond)
	assert.Contains(t, buf.String(), "Slow operation detected")
	assert.Contains(t, buf.String(), "simulation_tick")
}

func TestTimer_ZeroThresholdNeverWarns(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.WarnLevel)

	NewTimer("task", 0, log).Stop()
	assert.Empty(t, buf.String())
}

func TestOperationTimer_LogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)

	OperationTimer("simulation_reset", log)()
	assert.Contains(t, buf.String(), "simulation_reset")
	assert.Contains(t, buf.String(), "Operation completed")
}

func TestPerformanceMetrics_Record(t *testing.T) {
	pm := PerformanceMetrics{OperationName: "simulation_tick"}

	pm.Record(3 * time.Millisecond)
	pm.Record(1 * time.Millisecond)
	pm.Record(2 * time.Millisecond)

	assert.Equal(t, int64(3), pm.CallCount)
	assert.Equal(t, 6*time.Millisecond, pm.TotalDuration)
	assert.Equal(t, time.Millisecond, pm.MinDuration)
	assert.Equal(t, 3*time.Millisecond, pm.MaxDuration)
	assert.Equal(t, 2*time.Millisecond, pm.AvgDuration)

	var buf bytes.Buffer
	pm.LogMetrics(zerolog.New(&buf))
	assert.Contains(t, buf.String(), "Performance metrics summary")

	pm.Reset()
	assert.Equal(t, PerformanceMetrics{OperationName: "simulation_tick"}, pm)

	buf.Reset()
	pm.LogMetrics(zerolog.New(&buf))
	assert.Empty(t, buf.String())
}
