package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	whatsthat "github.com/whatsthat-app/whatsthat-go"
)

func TestSetConfigValue(t *testing.T) {
	cfg := &Config{}

	require.NoError(t, setConfigValue(cfg, "default.base_url", "http://localhost:3333/api/1.0.0"))
	require.NoError(t, setConfigValue(cfg, "default.env", "dev"))
	require.NoError(t, setConfigValue(cfg, "default.log_level", "debug"))
	require.NoError(t, setConfigValue(cfg, "storage.path", "/tmp/state.db"))

	assert.Equal(t, "http://localhost:3333/api/1.0.0", cfg.Default.BaseURL)
	assert.Equal(t, "dev", cfg.Default.Env)
	assert.Equal(t, "debug", cfg.Default.LogLevel)
	assert.Equal(t, "/tmp/state.db", cfg.Storage.Path)

	assert.True(t, cfg.trailingSpace())
	require.NoError(t, setConfigValue(cfg, "default.trailing_space", "false"))
	assert.False(t, cfg.trailingSpace())

	assert.Error(t, setConfigValue(cfg, "base_url", "x"))
	assert.Error(t, setConfigValue(cfg, "default.nope", "x"))
	assert.Error(t, setConfigValue(cfg, "storage.nope", "x"))
	assert.Error(t, setConfigValue(cfg, "other.field", "x"))
	assert.Error(t, setConfigValue(cfg, "default.log_level", "loud"))
	assert.Error(t, setConfigValue(cfg, "default.trailing_space", "maybe"))
}

func TestUnsetConfigValue(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, setConfigValue(cfg, "default.base_url", "http://example.test"))
	require.NoError(t, setConfigValue(cfg, "default.log_level", "debug"))
	require.NoError(t, setConfigValue(cfg, "default.trailing_space", "false"))
	require.NoError(t, setConfigValue(cfg, "storage.path", "/tmp/state.db"))

	for _, key := range []string{"default.base_url", "default.log_level", "default.trailing_space", "storage.path"} {
		require.NoError(t, unsetConfigValue(cfg, key), key)
	}
	assert.Equal(t, &Config{}, cfg)
	assert.True(t, cfg.trailingSpace())

	assert.Error(t, unsetConfigValue(cfg, "default.nope"))
}

func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("WHATSTHAT_HOME", dir)

	cfg, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, &Config{}, cfg)

	require.NoError(t, setConfigValue(cfg, "default.base_url", "http://example.test/api/1.0.0"))
	require.NoError(t, setConfigValue(cfg, "default.trailing_space", "false"))
	require.NoError(t, saveConfig(cfg))

	loaded, err := loadConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://example.test/api/1.0.0", loaded.Default.BaseURL)
	assert.False(t, loaded.trailingSpace())

	path, err := statePath(loaded)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "state.db"), path)
}

func TestParseIndex(t *testing.T) {
	i, err := parseIndex("1")
	require.NoError(t, err)
	assert.Equal(t, 0, i)

	i, err = parseIndex("3")
	require.NoError(t, err)
	assert.Equal(t, 2, i)

	for _, bad := range []string{"0", "-1", "x", ""} {
		_, err := parseIndex(bad)
		assert.Error(t, err, bad)
	}
}

func TestReadSecret(t *testing.T) {
	var out bytes.Buffer
	got, err := readSecret(strings.NewReader("ignored\n"), &out, "Password: ", "flag")
	require.NoError(t, err)
	assert.Equal(t, "flag", got)
	assert.Empty(t, out.String())

	got, err = readSecret(strings.NewReader("Pikachu1!\r\n"), &out, "Password: ", "")
	require.NoError(t, err)
	assert.Equal(t, "Pikachu1!", got)
	assert.Equal(t, "Password: ", out.String())
}

func TestRenderTimeline(t *testing.T) {
	var buf bytes.Buffer
	renderTimeline(&buf, nil)
	assert.Equal(t, "No messages yet.\n", buf.String())

	buf.Reset()
	renderTimeline(&buf, []whatsthat.TimelineItem{
		{Separator: true, Date: "Tue Mar 05 2024"},
		{Message: whatsthat.Message{MessageID: "1", Text: "hi "}, Mine: true, Time: "09:15"},
		{Message: whatsthat.Message{MessageID: "2", Text: "hey"}, Author: "Misty", Time: "09:16"},
	})
	assert.Equal(t, "-- Tue Mar 05 2024 --\n[09:15] #1 me: hi\n[09:16] #2 Misty: hey\n", buf.String())
}

func TestErrorText(t *testing.T) {
	assert.Equal(t, "Chat name cannot be empty.", errorText(whatsthat.ValidateChatName("")))
	assert.Equal(t, "boom", errorText(assertError("boom")))
}

type assertError string

func (e assertError) Error() string { return string(e) }
