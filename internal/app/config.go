package app

import (
	"github.com/taskboard/server/internal/shared/config"
)

// LoadConfig loads application configuration. An explicit path wins over
// the default search locations.
func LoadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
