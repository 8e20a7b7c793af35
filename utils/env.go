package utils

import (
	"fmt"
	"os"
	"strings"
	"time"
)

func GetEnvVar(envVar string) (string, error) {
	value, found := os.LookupEnv(envVar)
	if !found || value == "" {
		return "", fmt.Errorf("env var '%s' not specified", envVar)
	}
	return value, nil
}

func GetEnvVarWithDefault(envVar, defaultValue string) string {
	value, found := os.LookupEnv(envVar)
	if !found {
		return defaultValue
	}
	return value
}

func GetEnvDurationWithDefault(envVar string, defaultValue time.Duration) (time.Duration, error) {
	value, found := os.LookupEnv(envVar)
	if !found {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("env var '%s': %w", envVar, err)
	}
	return d, nil
}

// GetEnvListWithDefault splits a comma separated value, dropping empty items.
func GetEnvListWithDefault(envVar string, defaultValue []string) []string {
	value, found := os.LookupEnv(envVar)
	if !found {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
