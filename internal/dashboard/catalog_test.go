package dashboard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogNames(t *testing.T) {
	names := DefaultCatalog().Names()
	assert.Len(t, names, 7)
	assert.Equal(t, "Ecommerce API", names[0])
	assert.Equal(t, "Weather API", names[len(names)-1])
}

func TestLoadCatalogOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
apis:
  Jokes API:
    cost_per_call: 0.01
    quota_daily: 100
    rate_limit_per_second: 1
  Search API:
    cost_per_call: 0.003
    quota_daily: 0
`), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, APIConfig{CostPerCall: 0.01, QuotaDaily: 100, RateLimitPerSecond: 1}, c["Jokes API"])
	assert.Equal(t, 0, c["Search API"].QuotaDaily)
	assert.Equal(t, 10000, c["Image API"].QuotaDaily)
}

func TestLoadCatalogErrors(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("apis: [unclosed"), 0o600))
	_, err = LoadCatalog(bad)
	assert.Error(t, err)
}
