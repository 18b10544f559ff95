package deferlog

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// OptionsFromEnv builds Options from environment variables. prefix defaults
// to "DEFERLOG_" when empty. Recognised variables are {prefix}CAPACITY
// (slot count), STRICT (bool), STRICT_TIMEOUT (Go duration), and
// SYNC_DRAIN (bool). Missing or invalid values leave the corresponding
// option at its zero value.
func OptionsFromEnv(prefix string) Options {
	if prefix == "" {
		prefix = "DEFERLOG_"
	}
	var opts Options
	if value, ok := lookupEnv(prefix, "CAPACITY"); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil && parsed > 0 {
			opts.Capacity = parsed
		}
	}
	if value, ok := lookupEnv(prefix, "STRICT"); ok {
		if parsed, ok := parseEnvBool(value); ok {
			opts.Strict = parsed
		}
	}
	if value, ok := lookupEnv(prefix, "STRICT_TIMEOUT"); ok {
		if parsed, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && parsed > 0 {
			opts.StrictTimeout = parsed
		}
	}
	if value, ok := lookupEnv(prefix, "SYNC_DRAIN"); ok {
		if parsed, ok := parseEnvBool(value); ok {
			opts.SynchronousDrain = parsed
		}
	}
	return opts
}

// NewFromEnv builds a pipeline configured from DEFERLOG_* environment
// variables.
func NewFromEnv(sink Sink) *Pipeline {
	return NewWithOptions(sink, OptionsFromEnv(""))
}

func lookupEnv(prefix, key string) (string, bool) {
	return os.LookupEnv(prefix + key)
}

func parseEnvBool(value string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true, true
	case "0", "false", "no", "off":
		return false, true
	default:
		return false, false
	}
}
