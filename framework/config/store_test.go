package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-qudo/framework/config"
	"github.com/km-arc/go-qudo/framework/errdefs"
)

func TestStore_SetOnce(t *testing.T) {
	s := config.NewStore()

	require.NoError(t, s.Set("resource", "a"))
	err := s.Set("resource", "b")
	assert.ErrorIs(t, err, config.ErrKeyExists)
	assert.True(t, errdefs.IsRegistration(err))
	assert.Equal(t, "a", s.GetString("resource", ""))
}

func TestStore_MergeSkipsExistingKeys(t *testing.T) {
	s := config.NewStore()
	require.NoError(t, s.Set("b", 1))

	skipped := s.Merge(map[string]any{"a": 1, "b": 2, "c": 3})
	assert.Equal(t, []string{"b"}, skipped)
	assert.Equal(t, []string{"a", "b", "c"}, s.Keys())
	assert.Equal(t, 1, s.GetInt("b", 0))
}

func TestStore_LoadEnvFiles(t *testing.T) {
	s := config.NewStore()
	require.NoError(t, s.LoadEnvFiles("QUDO_", "testdata/components.env"))

	assert.Equal(t, "https://example.com", s.GetString("resource", ""))
	assert.Equal(t, 7000, s.GetInt("cache.port", 0))
	assert.Equal(t, "cache.internal", s.GetString("cache.host", ""))
	assert.False(t, s.Has("other_var"))
}

func TestStore_LoadEnvFilesMissingFile(t *testing.T) {
	err := config.NewStore().LoadEnvFiles("QUDO_", "testdata/nope.env")
	assert.Error(t, err)
}

func TestStore_LoadEnviron(t *testing.T) {
	t.Setenv("QUDOTEST_CLIENT__TIMEOUT", "2s")

	s := config.NewStore()
	s.LoadEnviron("QUDOTEST_")
	assert.Equal(t, "2s", s.GetString("client.timeout", ""))
}

func TestStore_LoadYAMLFlattens(t *testing.T) {
	s := config.NewStore()
	require.NoError(t, s.LoadYAMLFile("testdata/components.yml"))

	assert.Equal(t, 6380, s.GetInt("cache.port", 0))
	assert.Equal(t, 2, s.GetInt("cache.db", 0))
	assert.Equal(t, "5s", s.GetString("client.timeout", ""))
	assert.Equal(t, "https://fallback.example.com", s.GetString("resource", ""))
}

func TestStore_FirstLoaderWins(t *testing.T) {
	s := config.NewStore()
	require.NoError(t, s.LoadEnvFiles("QUDO_", "testdata/components.env"))
	require.NoError(t, s.LoadYAMLFile("testdata/components.yml"))

	assert.Equal(t, "https://example.com", s.GetString("resource", ""))
	assert.Equal(t, 7000, s.GetInt("cache.port", 0))
	assert.Equal(t, 2, s.GetInt("cache.db", 0), "keys only in yaml still load")
}

func TestStore_LoadYAMLRejectsGarbage(t *testing.T) {
	err := config.NewStore().LoadYAML([]byte("- not\n- a mapping"))
	assert.Error(t, err)
}

func TestStore_Options(t *testing.T) {
	s := config.NewStore()
	s.Merge(map[string]any{
		"resource":        "https://example.com",
		"port":            1,
		"cache.port":      7000,
		"cache.tls.cert":  "ignored: nested deeper",
		"client.resource": "https://client.example.com",
	})

	assert.Equal(t, map[string]any{
		"resource": "https://example.com",
		"port":     7000,
	}, s.Options("cache"))

	assert.Equal(t, map[string]any{
		"resource": "https://client.example.com",
		"port":     1,
	}, s.Options("client"))
}

func TestStore_TypedGettersFallBack(t *testing.T) {
	s := config.NewStore()
	s.Merge(map[string]any{"debug": "true", "n": "x", "flag": true})

	assert.True(t, s.GetBool("debug", false))
	assert.True(t, s.GetBool("flag", false))
	assert.Equal(t, 5, s.GetInt("n", 5))
	assert.Equal(t, "d", s.GetString("missing", "d"))

	all := s.All()
	all["debug"] = "false"
	assert.True(t, s.GetBool("debug", false))
}
