package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"compliance-calendar/internal/tzutil"
)

const DefaultBaseURL = "http://localhost:8080"

// Profile is the calctl configuration file, usually
// ~/.config/calctl/config.yaml.
type Profile struct {
	BaseURL  string        `yaml:"base_url"`
	Token    string        `yaml:"token"`
	TimeZone string        `yaml:"timezone"`
	Timeout  time.Duration `yaml:"timeout"`
}

func DefaultProfilePath() string {
	if p := strings.TrimSpace(os.Getenv("CALCTL_CONFIG")); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "calctl.yaml"
	}
	return filepath.Join(dir, "calctl", "config.yaml")
}

// LoadProfile reads path and overlays CALCTL_* environment variables. A
// missing file is not an error.
func LoadProfile(path string) (Profile, error) {
	var p Profile
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &p); err != nil {
			return Profile{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Profile{}, err
	}

	p.BaseURL = getenvDefault("CALCTL_BASE_URL", p.BaseURL)
	p.Token = getenvDefault("CALCTL_TOKEN", p.Token)
	p.TimeZone = getenvDefault("CALCTL_TZ", p.TimeZone)
	p.Timeout = getenvDuration("CALCTL_TIMEOUT", p.Timeout)
	p.applyDefaults()
	return p, nil
}

func (p *Profile) applyDefaults() {
	if p.BaseURL == "" {
		p.BaseURL = DefaultBaseURL
	}
	if p.Timeout <= 0 {
		p.Timeout = 30 * time.Second
	}
	p.TimeZone = tzutil.ResolveTimeZone(p.TimeZone)
}

func SaveProfile(path string, p Profile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
