package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/logger"
	"helmet-orchestrator-be/pkg/broadcast"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSensor = errors.New("sensor unavailable")

type scriptedReader struct {
	mu    sync.Mutex
	cpu   float64
	mem   float64
	temp  float64
	batt  float64
	fails map[string]bool
}

func (r *scriptedReader) value(metric string, v float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fails[metric] {
		return 0, errSensor
	}
	return v, nil
}

func (r *scriptedReader) CPU(context.Context) (float64, error) {
	return r.value(entity.MetricCPU, r.cpu)
}

func (r *scriptedReader) Memory(context.Context) (float64, error) {
	return r.value(entity.MetricMemory, r.mem)
}

func (r *scriptedReader) Temperature(context.Context) (float64, error) {
	return r.value(entity.MetricTemperature, r.temp)
}

func (r *scriptedReader) Battery(context.Context) (float64, error) {
	return r.value(entity.MetricBattery, r.batt)
}

type memoryLogs struct {
	mu   sync.Mutex
	logs []entity.TelemetryLog
}

func (m *memoryLogs) Create(_ context.Context, l *entity.TelemetryLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, *l)
	return nil
}

func newTestCollector(reader Reader, logs LogWriter, opts Options) (*Collector, *broadcast.Broadcaster, *time.Time) {
	board := broadcast.New(broadcast.DefaultQueueDepth, "test")
	c := NewCollector(reader, board, logs, logger.NewNopLogger(), opts)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	return c, board, &clock
}

func TestCollectPublishesSample(t *testing.T) {
	reader := &scriptedReader{cpu: 12.5, mem: 40, temp: 45, batt: 88}
	c, board, _ := newTestCollector(reader, nil, Options{})

	sample := c.Collect(context.Background())
	assert.Equal(t, 12.5, sample.CPUPercent)
	assert.Equal(t, 40.0, sample.MemPercent)
	assert.Equal(t, 45.0, sample.TemperatureC)
	assert.Equal(t, 88.0, sample.BatteryPercent)
	assert.Empty(t, sample.Stale)
	assert.Equal(t, sample, board.Snapshot().Telemetry)
}

func TestFailedReadCarriesPreviousValueThenGoesStale(t *testing.T) {
	reader := &scriptedReader{cpu: 30, mem: 40, temp: 45, batt: 90}
	c, _, _ := newTestCollector(reader, nil, Options{StaleAfterMisses: 3})

	c.Collect(context.Background())
	reader.mu.Lock()
	reader.fails = map[string]bool{entity.MetricBattery: true}
	reader.mu.Unlock()

	for i := 0; i < 2; i++ {
		s := c.Collect(context.Background())
		assert.Equal(t, 90.0, s.BatteryPercent)
		assert.False(t, s.IsStale(entity.MetricBattery))
	}

	s := c.Collect(context.Background())
	assert.Equal(t, 90.0, s.BatteryPercent)
	assert.Equal(t, []string{entity.MetricBattery}, s.Stale)

	reader.mu.Lock()
	reader.fails = nil
	reader.batt = 70
	reader.mu.Unlock()

	s = c.Collect(context.Background())
	assert.Equal(t, 70.0, s.BatteryPercent)
	assert.Empty(t, s.Stale)
}

func TestThermalTrendRaisesAlarm(t *testing.T) {
	reader := &scriptedReader{temp: 40}
	c, _, clock := newTestCollector(reader, nil, Options{TrendWindow: 5, ThermalAlarmRate: 5})

	// +1 °C every 6 s is 10 °C/min.
	var s entity.TelemetrySample
	for i := 0; i < 5; i++ {
		reader.mu.Lock()
		reader.temp = 40 + float64(i)
		reader.mu.Unlock()
		s = c.Collect(context.Background())
		*clock = clock.Add(6 * time.Second)
	}
	assert.InDelta(t, 10, s.ThermalTrendCPerMin, 0.01)
	assert.True(t, s.ThermalAlarm)

	// Flat readings push the rising points out of the window.
	for i := 0; i < 5; i++ {
		s = c.Collect(context.Background())
		*clock = clock.Add(6 * time.Second)
	}
	assert.InDelta(t, 0, s.ThermalTrendCPerMin, 0.01)
	assert.False(t, s.ThermalAlarm)
}

func TestEveryNthSampleIsLogged(t *testing.T) {
	reader := &scriptedReader{cpu: 10}
	logs := &memoryLogs{}
	c, _, _ := newTestCollector(reader, logs, Options{LogEvery: 3})

	for i := 0; i < 7; i++ {
		c.Collect(context.Background())
	}
	assert.Len(t, logs.logs, 2)
	assert.Equal(t, 10.0, logs.logs[0].CPUPercent)
}

func TestRunStopsWithContext(t *testing.T) {
	reader := &scriptedReader{cpu: 10}
	board := broadcast.New(broadcast.DefaultQueueDepth, "test")
	c := NewCollector(reader, board, nil, logger.NewNopLogger(), Options{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return board.Published() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}
