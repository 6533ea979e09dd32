package config

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// loadEnvFiles loads .env and .env.local from dir. Variables already present in
// the process environment are not overwritten.
func loadEnvFiles(dir string) {
	var files []string
	for _, name := range []string{".env", ".env.local"} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			files = append(files, p)
		}
	}
	if len(files) == 0 {
		return
	}
	if err := godotenv.Load(files...); err != nil {
		slog.Warn("Failed to load environment files", "files", files, "error", err)
		return
	}
	slog.Debug("Loaded environment files", "files", files)
}
