package main

import (
	"strings"

	"fyne.io/fyne/v2"

	"github.com/oukeidos/kamekai/internal/config"
	"github.com/oukeidos/kamekai/internal/logger"
)

const prefEndpoint = "Endpoint"

// endpointFromPreferences returns the endpoint saved by a previous run, or
// the configured one when nothing valid is saved.
func endpointFromPreferences(prefs fyne.Preferences, cfg *config.Config) string {
	saved := normalizeEndpoint(prefs.String(prefEndpoint))
	if saved == "" {
		return cfg.Endpoint
	}
	probe := config.Config{Endpoint: saved}
	if err := probe.ValidateEndpoint(); err != nil {
		logger.Warn("Ignoring saved endpoint", "endpoint", saved, "error", err)
		prefs.RemoveValue(prefEndpoint)
		return cfg.Endpoint
	}
	return saved
}

// saveEndpoint validates and stores endpoint. It returns the normalized value.
func saveEndpoint(prefs fyne.Preferences, endpoint string) (string, error) {
	probe := config.Config{Endpoint: normalizeEndpoint(endpoint)}
	if err := probe.ValidateEndpoint(); err != nil {
		return "", err
	}
	prefs.SetString(prefEndpoint, probe.Endpoint)
	return probe.Endpoint, nil
}

func normalizeEndpoint(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), "/")
}
