package config

import (
	"encoding/json"
	"fmt"
)

// Runtime-overridable setting keys. Values live in the user_settings table
// as JSON and are merged over the YAML config at the start of each cycle.
const (
	KeyUpdateMinutes = "update_minutes"
	KeyContextSteps  = "context_steps"
	KeyProvider      = "provider"
	KeyModel         = "model"
	KeyTemperature   = "temperature"
	KeyMaxTokens     = "max_tokens"
	KeyImagesEnabled = "images_enabled"
	KeyImageInterval = "image_interval"
	KeyImageModel    = "image_model"
	KeyImageSize     = "image_size"
	KeyImageQuality  = "image_quality"
)

var settingKeys = map[string]bool{
	KeyUpdateMinutes: true,
	KeyContextSteps:  true,
	KeyProvider:      true,
	KeyModel:         true,
	KeyTemperature:   true,
	KeyMaxTokens:     true,
	KeyImagesEnabled: true,
	KeyImageInterval: true,
	KeyImageModel:    true,
	KeyImageSize:     true,
	KeyImageQuality:  true,
}

var imageSizes = map[string]bool{
	"1024x1024": true,
	"1792x1024": true,
	"1024x1792": true,
}

var imageQualities = map[string]bool{
	"standard": true,
	"hd":       true,
}

var providers = map[string]bool{
	"openai": true,
	"ollama": true,
}

// ValidateSetting rejects unknown keys and out-of-range values before
// anything is written. The error message is the reason returned to the
// caller.
func ValidateSetting(key string, value json.RawMessage) error {
	if !settingKeys[key] {
		return fmt.Errorf("unknown setting %q", key)
	}

	switch key {
	case KeyUpdateMinutes, KeyContextSteps, KeyImageInterval, KeyMaxTokens:
		n, err := intValue(value)
		if err != nil {
			return fmt.Errorf("%s must be an integer", key)
		}
		if n < 1 {
			return fmt.Errorf("%s must be >= 1", key)
		}
	case KeyTemperature:
		var f float64
		if err := json.Unmarshal(value, &f); err != nil {
			return fmt.Errorf("%s must be a number", key)
		}
		if f < 0 || f > 2 {
			return fmt.Errorf("%s must be between 0 and 2", key)
		}
	case KeyImagesEnabled:
		var b bool
		if err := json.Unmarshal(value, &b); err != nil {
			return fmt.Errorf("%s must be a boolean", key)
		}
	case KeyProvider:
		s, err := strValue(value)
		if err != nil || !providers[s] {
			return fmt.Errorf("%s must be one of: openai, ollama", key)
		}
	case KeyImageSize:
		s, err := strValue(value)
		if err != nil || !imageSizes[s] {
			return fmt.Errorf("%s must be one of: 1024x1024, 1792x1024, 1024x1792", key)
		}
	case KeyImageQuality:
		s, err := strValue(value)
		if err != nil || !imageQualities[s] {
			return fmt.Errorf("%s must be one of: standard, hd", key)
		}
	case KeyModel, KeyImageModel:
		s, err := strValue(value)
		if err != nil || s == "" {
			return fmt.Errorf("%s must be a non-empty string", key)
		}
	}

	return nil
}

// ApplyOverrides returns a copy of the config with stored runtime settings
// merged in. Unparseable values are skipped; they cannot appear through the
// settings endpoint, which validates first.
func (c *Config) ApplyOverrides(values map[string]json.RawMessage) *Config {
	merged := *c

	for key, raw := range values {
		switch key {
		case KeyUpdateMinutes:
			if n, err := intValue(raw); err == nil {
				merged.Story.UpdateMinutes = n
			}
		case KeyContextSteps:
			if n, err := intValue(raw); err == nil {
				merged.Story.ContextSteps = n
			}
		case KeyProvider:
			if s, err := strValue(raw); err == nil {
				merged.Generation.Provider = s
			}
		case KeyModel:
			if s, err := strValue(raw); err == nil {
				merged.Generation.Model = s
			}
		case KeyTemperature:
			var f float64
			if err := json.Unmarshal(raw, &f); err == nil {
				merged.Generation.Temperature = f
			}
		case KeyMaxTokens:
			if n, err := intValue(raw); err == nil {
				merged.Generation.MaxTokens = n
			}
		case KeyImagesEnabled:
			var b bool
			if err := json.Unmarshal(raw, &b); err == nil {
				merged.Images.Enabled = b
			}
		case KeyImageInterval:
			if n, err := intValue(raw); err == nil {
				merged.Images.Interval = n
			}
		case KeyImageModel:
			if s, err := strValue(raw); err == nil {
				merged.Images.Model = s
			}
		case KeyImageSize:
			if s, err := strValue(raw); err == nil {
				merged.Images.Size = s
			}
		case KeyImageQuality:
			if s, err := strValue(raw); err == nil {
				merged.Images.Quality = s
			}
		}
	}

	return &merged
}

func intValue(raw json.RawMessage) (int, error) {
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func strValue(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", err
	}
	return s, nil
}
