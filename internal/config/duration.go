package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration accepts Go duration strings ("30s", "24h") in YAML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		d.Duration = parsed
		return nil
	}
	var n int64
	if err := value.Decode(&n); err == nil {
		// Bare numbers are taken as seconds.
		d.Duration = time.Duration(n) * time.Second
		return nil
	}
	return fmt.Errorf("invalid duration value %q", value.Value)
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}
