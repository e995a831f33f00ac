// Package telemetry samples device health on a fixed period and feeds the
// status broadcaster. Failed reads carry the previous value forward and are
// flagged stale after repeated misses.
package telemetry

import (
	"context"
	"time"

	"helmet-orchestrator-be/internal/entity"
	"helmet-orchestrator-be/internal/pkg/logger"
	"helmet-orchestrator-be/pkg/broadcast"
)

const module = "TelemetryCollector"

type Sink interface {
	Publish(patches ...broadcast.Patch)
}

// LogWriter persists sampled readings. Optional.
type LogWriter interface {
	Create(ctx context.Context, log *entity.TelemetryLog) error
}

type Options struct {
	Interval         time.Duration
	StaleAfterMisses int
	TrendWindow      int
	ThermalAlarmRate float64
	LogEvery         int
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = time.Second
	}
	if o.StaleAfterMisses <= 0 {
		o.StaleAfterMisses = 3
	}
	if o.TrendWindow < 2 {
		o.TrendWindow = 30
	}
	if o.ThermalAlarmRate <= 0 {
		o.ThermalAlarmRate = 5
	}
	return o
}

type tempPoint struct {
	at    time.Time
	value float64
}

type Collector struct {
	reader Reader
	sink   Sink
	logs   LogWriter
	logger logger.ILogger
	opts   Options

	last    entity.TelemetrySample
	misses  map[string]int
	temps   []tempPoint
	samples int
	now     func() time.Time
}

func NewCollector(reader Reader, sink Sink, logs LogWriter, log logger.ILogger, opts Options) *Collector {
	return &Collector{
		reader: reader,
		sink:   sink,
		logs:   logs,
		logger: log,
		opts:   opts.withDefaults(),
		misses: make(map[string]int),
		now:    time.Now,
	}
}

// Run samples immediately and then once per interval until ctx ends.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.Interval)
	defer ticker.Stop()

	c.Collect(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			c.Collect(ctx)
		}
	}
}

// Collect takes one sample, publishes it and returns it.
func (c *Collector) Collect(ctx context.Context) entity.TelemetrySample {
	readCtx, cancel := context.WithTimeout(ctx, c.opts.Interval)
	defer cancel()

	sample := c.last
	sample.Timestamp = c.now()
	sample.Stale = nil

	sample.CPUPercent = c.read(readCtx, entity.MetricCPU, c.reader.CPU, sample.CPUPercent)
	sample.MemPercent = c.read(readCtx, entity.MetricMemory, c.reader.Memory, sample.MemPercent)
	sample.BatteryPercent = c.read(readCtx, entity.MetricBattery, c.reader.Battery, sample.BatteryPercent)

	sample.TemperatureC = c.read(readCtx, entity.MetricTemperature, c.reader.Temperature, sample.TemperatureC)
	if c.misses[entity.MetricTemperature] == 0 {
		c.observeTemperature(sample.Timestamp, sample.TemperatureC)
	}

	for _, metric := range []string{entity.MetricCPU, entity.MetricMemory, entity.MetricTemperature, entity.MetricBattery} {
		if c.misses[metric] >= c.opts.StaleAfterMisses {
			sample.Stale = append(sample.Stale, metric)
		}
	}

	sample.ThermalTrendCPerMin = c.trend()
	alarm := sample.ThermalTrendCPerMin > c.opts.ThermalAlarmRate
	if alarm && !c.last.ThermalAlarm {
		c.logger.Warn(module, "Temperature rising rapidly", map[string]interface{}{
			"temperature_c":   sample.TemperatureC,
			"trend_c_per_min": sample.ThermalTrendCPerMin,
		})
	}
	sample.ThermalAlarm = alarm

	c.last = sample
	c.sink.Publish(broadcast.WithTelemetry(sample))

	c.samples++
	if c.logs != nil && c.opts.LogEvery > 0 && c.samples%c.opts.LogEvery == 0 {
		if err := c.logs.Create(ctx, &entity.TelemetryLog{
			CPUPercent:     sample.CPUPercent,
			MemPercent:     sample.MemPercent,
			TemperatureC:   sample.TemperatureC,
			BatteryPercent: sample.BatteryPercent,
			RecordedAt:     sample.Timestamp,
		}); err != nil {
			c.logger.Warn(module, "Failed to write telemetry log", map[string]interface{}{"error": err.Error()})
		}
	}
	return sample
}

func (c *Collector) read(ctx context.Context, metric string, fn func(context.Context) (float64, error), previous float64) float64 {
	v, err := fn(ctx)
	if err != nil {
		c.misses[metric]++
		if c.misses[metric] == c.opts.StaleAfterMisses {
			c.logger.Warn(module, "Metric is stale", map[string]interface{}{
				"metric": metric,
				"misses": c.misses[metric],
				"error":  err.Error(),
			})
		}
		return previous
	}
	if c.misses[metric] >= c.opts.StaleAfterMisses {
		c.logger.Info(module, "Metric recovered", map[string]interface{}{"metric": metric})
	}
	c.misses[metric] = 0
	return v
}

func (c *Collector) observeTemperature(at time.Time, value float64) {
	c.temps = append(c.temps, tempPoint{at: at, value: value})
	if len(c.temps) > c.opts.TrendWindow {
		c.temps = c.temps[len(c.temps)-c.opts.TrendWindow:]
	}
}

// trend is the least-squares slope of the temperature window in °C/min.
func (c *Collector) trend() float64 {
	n := float64(len(c.temps))
	if n < 2 {
		return 0
	}
	origin := c.temps[0].at
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range c.temps {
		x := p.at.Sub(origin).Minutes()
		sumX += x
		sumY += p.value
		sumXY += x * p.value
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
