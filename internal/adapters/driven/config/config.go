// Package config loads docwatch settings from a TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Settings holds all application configuration with sensible defaults.
type Settings struct {
	// Watch configures the folder observed for documents.
	Watch struct {
		// Folder is the watch root, created on demand if missing.
		Folder string `toml:"folder"`

		// Workers is the size of the event consumer pool.
		Workers int `toml:"workers"`

		// QueueSize bounds the pending filesystem event queue.
		QueueSize int `toml:"queue_size"`
	} `toml:"watch"`

	// Storage configures the document store.
	Storage struct {
		// DataDir holds the SQLite database. Empty means
		// ~/.docwatch/data.
		DataDir string `toml:"data_dir"`
	} `toml:"storage"`

	// OpenAI configures the enrichment client.
	OpenAI struct {
		// APIKey authenticates against the API. Falls back to the
		// OPENAI_API_KEY environment variable when unset.
		APIKey string `toml:"api_key"`

		// Model selects the chat model.
		Model string `toml:"model"`

		// BaseURL overrides the API endpoint for compatible servers.
		BaseURL string `toml:"base_url"`
	} `toml:"openai"`
}

// Default returns settings with all defaults applied.
func Default() *Settings {
	var s Settings
	s.Watch.Folder = defaultPath("inbox")
	s.Watch.Workers = 4
	s.Watch.QueueSize = 256
	s.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	return &s
}

// Load reads settings from the TOML file at path, applying defaults for
// anything unset. A missing file yields pure defaults; path == "" uses
// ~/.docwatch/config.toml.
func Load(path string) (*Settings, error) {
	if path == "" {
		path = defaultPath("config.toml")
	}

	s := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	// Re-apply fall-backs clobbered by empty values in the file.
	if s.Watch.Workers <= 0 {
		s.Watch.Workers = 4
	}
	if s.Watch.QueueSize <= 0 {
		s.Watch.QueueSize = 256
	}
	if s.OpenAI.APIKey == "" {
		s.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if s.Watch.Folder == "" {
		s.Watch.Folder = defaultPath("inbox")
	}

	return s, nil
}

// defaultPath returns a path under the docwatch home directory.
func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".docwatch", name)
	}
	return filepath.Join(home, ".docwatch", name)
}
