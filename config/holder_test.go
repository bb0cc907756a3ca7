package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guxiaodai/restpf/config"
)

func TestHolder_Reload(t *testing.T) {
	path := write(t, "restpf.yaml", "logging:\n  level: info\n")
	h, err := config.NewHolder(path, zerolog.Nop())
	require.NoError(t, err)
	defer h.Stop()
	assert.Equal(t, "info", h.Get().Logging.Level)

	var got []string
	h.OnChange(func(c *config.Config) { got = append(got, c.Logging.Level) })

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  level: debug\n"), 0o600))
	require.NoError(t, h.Reload())
	assert.Equal(t, "debug", h.Get().Logging.Level)
	assert.Equal(t, []string{"debug"}, got)
}

func TestHolder_ReloadKeepsPreviousOnError(t *testing.T) {
	path := write(t, "restpf.yaml", "server:\n  language: ja\n")
	h, err := config.NewHolder(path, zerolog.Nop())
	require.NoError(t, err)
	defer h.Stop()

	called := false
	h.OnChange(func(*config.Config) { called = true })

	require.NoError(t, os.WriteFile(path, []byte("server:\n  language: fr\n"), 0o600))
	assert.ErrorContains(t, h.Reload(), "reload config")
	assert.Equal(t, "ja", h.Get().Server.Language)
	assert.False(t, called)
}

func TestHolder_WatchFile(t *testing.T) {
	path := write(t, "restpf.yaml", "server:\n  language: en\n")
	h, err := config.NewHolder(path, zerolog.Nop())
	require.NoError(t, err)
	defer h.Stop()

	changed := make(chan string, 4)
	h.OnChange(func(c *config.Config) {
		select {
		case changed <- c.Server.Language:
		default:
		}
	})
	require.NoError(t, h.WatchFile())

	require.NoError(t, os.WriteFile(path, []byte("server:\n  language: ja\n"), 0o600))
	// A truncating write may be observed before the new content lands.
	deadline := time.After(5 * time.Second)
	for {
		select {
		case lang := <-changed:
			if lang == "ja" {
				return
			}
		case <-deadline:
			t.Fatal("no reload after write")
		}
	}
}

func TestHolder_MissingFile(t *testing.T) {
	_, err := config.NewHolder("does-not-exist.yaml", zerolog.Nop())
	assert.ErrorContains(t, err, "read config")
}

func TestHolder_StopTwice(t *testing.T) {
	h, err := config.NewHolder(write(t, "restpf.yaml", ""), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, h.WatchFile())
	h.Stop()
	h.Stop()
}
