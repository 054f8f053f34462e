package camera

import "fmt"

// Config holds capture parameters shared by the source backends.
type Config struct {
	Width     int `json:"width"`     // frame width in pixels
	Height    int `json:"height"`    // frame height in pixels
	Framerate int `json:"framerate"` // target FPS at the source
	Quality   int `json:"quality"`   // JPEG quality 1-100
}

// DefaultConfig matches the device sensor's native capture mode.
func DefaultConfig() Config {
	return Config{
		Width:     240,
		Height:    240,
		Framerate: 15,
		Quality:   85,
	}
}

// LowResConfig trades detail for decode speed on constrained hosts.
func LowResConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 160
	cfg.Height = 120
	cfg.Quality = 70
	return cfg
}

// HDConfig is for development on machines with headroom.
func HDConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 1280
	cfg.Height = 720
	return cfg
}

// Presets returns the named capture configurations.
func Presets() map[string]Config {
	return map[string]Config{
		"default": DefaultConfig(),
		"lowres":  LowResConfig(),
		"hd":      HDConfig(),
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// Validate checks parameter ranges.
func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("camera: invalid resolution %dx%d", c.Width, c.Height)
	}
	if c.Framerate <= 0 {
		return fmt.Errorf("camera: invalid framerate %d", c.Framerate)
	}
	if c.Quality < 1 || c.Quality > 100 {
		return fmt.Errorf("camera: quality %d outside 1-100", c.Quality)
	}
	return nil
}
