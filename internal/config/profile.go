package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Profile is the device configuration handed to the collaborators. The
// orchestrator only surfaces its name.
type Profile struct {
	Name             string `yaml:"-" json:"name"`
	CameraSource     string `yaml:"camera_source" json:"camera_source"`
	InferenceDevice  string `yaml:"inference_device" json:"inference_device"`
	MicrophoneDevice string `yaml:"microphone_device" json:"microphone_device"`
	Fullscreen       bool   `yaml:"fullscreen" json:"fullscreen"`
}

func DefaultProfile(name string) Profile {
	return Profile{
		Name:             name,
		CameraSource:     "0",
		InferenceDevice:  "cpu",
		MicrophoneDevice: "default",
		Fullscreen:       true,
	}
}

// LoadProfile reads <dir>/<name>.yaml. A missing file yields the default
// profile under the requested name; a malformed one is an error.
func LoadProfile(dir, name string) (Profile, error) {
	path := filepath.Join(dir, name+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultProfile(name), nil
		}
		return Profile{}, fmt.Errorf("read profile %s: %w", path, err)
	}

	p := DefaultProfile(name)
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile %s: %w", path, err)
	}
	p.Name = name
	return p, nil
}
