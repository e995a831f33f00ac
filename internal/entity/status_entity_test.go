package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribeScene(t *testing.T) {
	tests := []struct {
		name    string
		labels  map[string]int
		caption string
		want    string
	}{
		{"nothing", nil, "", "I don't see any objects right now."},
		{"single", map[string]int{"dog": 1}, "", "I can see 1 dog."},
		{"ordered by count", map[string]int{"car": 1, "person": 3, "bus": 2}, "", "I can see 3 people, 2 buses and 1 car."},
		{"ties by name", map[string]int{"box": 2, "bench": 2}, "", "I can see 2 benches and 2 boxes."},
		{"zero counts skipped", map[string]int{"car": 0, "tree": 4}, "", "I can see 4 trees."},
		{"with caption", map[string]int{"person": 1}, "  Someone waves.  ", "I can see 1 person. Someone waves."},
		{"caption only", nil, "Empty corridor.", "I don't see any objects right now. Empty corridor."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DescribeScene(DetectionSummary{ByLabel: tt.labels}, tt.caption)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsOverlayCommand(t *testing.T) {
	for _, c := range []string{OverlayShowHUD, OverlayShowDetections, OverlayShowCrosshair, OverlayHideAll} {
		assert.True(t, IsOverlayCommand(c), c)
	}
	assert.False(t, IsOverlayCommand("show_map"))
	assert.False(t, IsOverlayCommand(""))
}
