package provider

import (
	"fmt"
	"sort"
	"strings"
)

// Config carries keyword configuration for a client constructor. Values
// are looked up by the typed accessors below; constructors decide which
// keys they accept.
type Config map[string]any

// Clone returns a shallow copy of the config. A nil config clones to an
// empty, non-nil config.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// String returns the string value for key and whether it was present as
// a string.
func (c Config) String(key string) (string, bool) {
	v, ok := c[key].(string)
	return v, ok
}

// Float returns the float64 value for key. Integer values are widened.
func (c Config) Float(key string) (float64, bool) {
	switch v := c[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	}
	return 0, false
}

// Int returns the int value for key. Whole float values are narrowed,
// which matters for configs decoded from JSON or YAML.
func (c Config) Int(key string) (int, bool) {
	switch v := c[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

// Bool returns the bool value for key.
func (c Config) Bool(key string) (bool, bool) {
	v, ok := c[key].(bool)
	return v, ok
}

// CheckKeys returns an error naming any config key outside the allowed
// set. Constructors use it so that a misspelled key fails construction
// instead of being ignored.
func CheckKeys(cfg Config, allowed ...string) error {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		allowedSet[k] = struct{}{}
	}
	var unknown []string
	for k := range cfg {
		if _, ok := allowedSet[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("unknown config keys: %s", strings.Join(unknown, ", "))
}
