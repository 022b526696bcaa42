package configs

import (
	"flag"
	"os"

	"github.com/pulsewall/pulsewall/internal/infrastructure/env"
)

// DetermineConfigPath resolves the config file location from the --config
// flag, the PULSEWALL_CONFIG env var, or a list of conventional locations.
// Returns "" when nothing is found; Load falls back to defaults + env.
func DetermineConfigPath() string {
	var configPath string

	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	if configPath == "" {
		configPath = env.GetString("PULSEWALL_CONFIG", "")
	}

	if configPath == "" {
		candidates := []string{
			"./config.yaml",
			"./config.yml",
			"/etc/pulsewall/config.yaml",
			"/app/config.yaml", // common in Docker
		}

		for _, p := range candidates {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	return configPath
}
