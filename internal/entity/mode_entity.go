package entity

import "strings"

// Mode is the device's top-level operating state.
type Mode string

const (
	ModeNormal      Mode = "normal"
	ModeNightVision Mode = "night_vision"
	ModeNavigation  Mode = "navigation"
	ModeEmergency   Mode = "emergency"
)

var modeAliases = map[string]Mode{
	"normal":       ModeNormal,
	"default":      ModeNormal,
	"night_vision": ModeNightVision,
	"nightvision":  ModeNightVision,
	"night":        ModeNightVision,
	"navigation":   ModeNavigation,
	"nav":          ModeNavigation,
	"emergency":    ModeEmergency,
}

// ParseMode resolves a wire name or alias. The second return is false for
// unknown names.
func ParseMode(s string) (Mode, bool) {
	m, ok := modeAliases[strings.ToLower(strings.TrimSpace(s))]
	return m, ok
}

func (m Mode) IsValid() bool {
	switch m {
	case ModeNormal, ModeNightVision, ModeNavigation, ModeEmergency:
		return true
	}
	return false
}

func (m Mode) String() string {
	return string(m)
}
