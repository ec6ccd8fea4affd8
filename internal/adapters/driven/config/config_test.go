package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	s := Default()

	assert.NotEmpty(t, s.Watch.Folder)
	assert.Equal(t, 4, s.Watch.Workers)
	assert.Equal(t, 256, s.Watch.QueueSize)
}

func TestLoad_MissingFileYieldsDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.toml"))

	require.NoError(t, err)
	assert.Equal(t, 4, s.Watch.Workers)
	assert.Equal(t, 256, s.Watch.QueueSize)
}

func TestLoad_ReadsValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[watch]
folder = "/srv/inbox"
workers = 8
queue_size = 64

[storage]
data_dir = "/srv/data"

[openai]
api_key = "sk-from-file"
model = "gpt-4o"
base_url = "https://proxy.example.com/v1"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/srv/inbox", s.Watch.Folder)
	assert.Equal(t, 8, s.Watch.Workers)
	assert.Equal(t, 64, s.Watch.QueueSize)
	assert.Equal(t, "/srv/data", s.Storage.DataDir)
	assert.Equal(t, "sk-from-file", s.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", s.OpenAI.Model)
	assert.Equal(t, "https://proxy.example.com/v1", s.OpenAI.BaseURL)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[watch]
folder = "/srv/inbox"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "/srv/inbox", s.Watch.Folder)
	assert.Equal(t, 4, s.Watch.Workers)
	assert.Equal(t, 256, s.Watch.QueueSize)
}

func TestLoad_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	s, err := Load(filepath.Join(t.TempDir(), "absent.toml"))

	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", s.OpenAI.APIKey)
}

func TestLoad_FileKeyBeatsEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[openai]\napi_key = \"sk-from-file\"\n"), 0o644))

	s, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", s.OpenAI.APIKey)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not [valid toml"), 0o644))

	_, err := Load(path)

	assert.Error(t, err)
}
