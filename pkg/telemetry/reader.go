package telemetry

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// Reader samples one device metric per call. Implementations return an
// error rather than a zero value when a metric cannot be read.
type Reader interface {
	CPU(ctx context.Context) (float64, error)
	Memory(ctx context.Context) (float64, error)
	Temperature(ctx context.Context) (float64, error)
	Battery(ctx context.Context) (float64, error)
}

// SystemReader reads the host through gopsutil and the battery from sysfs.
type SystemReader struct {
	batteryPath string
}

func NewSystemReader(batteryPath string) *SystemReader {
	return &SystemReader{batteryPath: batteryPath}
}

func (r *SystemReader) CPU(ctx context.Context) (float64, error) {
	pct, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(pct) == 0 {
		return 0, fmt.Errorf("cpu: no samples")
	}
	return pct[0], nil
}

func (r *SystemReader) Memory(ctx context.Context) (float64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.UsedPercent, nil
}

// Temperature prefers a CPU sensor and falls back to the hottest zone.
func (r *SystemReader) Temperature(ctx context.Context) (float64, error) {
	temps, err := host.SensorsTemperaturesWithContext(ctx)
	if len(temps) == 0 {
		if err == nil {
			err = fmt.Errorf("temperature: no sensors")
		}
		return 0, err
	}

	hottest := temps[0].Temperature
	for _, t := range temps {
		key := strings.ToLower(t.SensorKey)
		if strings.Contains(key, "cpu") || strings.Contains(key, "coretemp") {
			return t.Temperature, nil
		}
		hottest = max(hottest, t.Temperature)
	}
	return hottest, nil
}

func (r *SystemReader) Battery(_ context.Context) (float64, error) {
	raw, err := os.ReadFile(r.batteryPath)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		return 0, fmt.Errorf("battery: %w", err)
	}
	return v, nil
}
