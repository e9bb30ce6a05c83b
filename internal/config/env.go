package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"git.home.luguber.info/inful/seriesgen/internal/logfields"
)

// envFiles are tried in order. Existing process variables are never
// overridden.
var envFiles = []string{".env", ".env.local"}

func loadEnvFiles() {
	for _, path := range envFiles {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			slog.Warn("Could not load env file", logfields.File(path), logfields.Error(err))
			continue
		}
		slog.Debug("Loaded environment variables", logfields.File(path))
	}
}
