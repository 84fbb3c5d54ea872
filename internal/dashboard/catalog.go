package dashboard

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// APIConfig is the commercial envelope of one APIHub API.
type APIConfig struct {
	CostPerCall        float64 `yaml:"cost_per_call" json:"cost_per_call"`
	QuotaDaily         int     `yaml:"quota_daily" json:"quota_daily"`
	RateLimitPerSecond int     `yaml:"rate_limit_per_second" json:"rate_limit_per_second"`
}

// Catalog maps API names, as they appear in usage logs, to their configuration.
type Catalog map[string]APIConfig

func DefaultCatalog() Catalog {
	return Catalog{
		"Image API":         {CostPerCall: 0.002, QuotaDaily: 10000, RateLimitPerSecond: 10},
		"Video API":         {CostPerCall: 0.001, QuotaDaily: 5000, RateLimitPerSecond: 5},
		"Weather API":       {CostPerCall: 0.0005, QuotaDaily: 20000, RateLimitPerSecond: 20},
		"Ecommerce API":     {CostPerCall: 0.001, QuotaDaily: 15000, RateLimitPerSecond: 15},
		"QR Code API":       {CostPerCall: 0.001, QuotaDaily: 8000, RateLimitPerSecond: 8},
		"Profile Photo API": {CostPerCall: 0.001, QuotaDaily: 7000, RateLimitPerSecond: 7},
		"Jokes API":         {CostPerCall: 0.001, QuotaDaily: 25000, RateLimitPerSecond: 25},
	}
}

type catalogFile struct {
	APIs map[string]APIConfig `yaml:"apis"`
}

// LoadCatalog reads a YAML file of the form
//
//	apis:
//	  Image API: {cost_per_call: 0.002, quota_daily: 10000, rate_limit_per_second: 10}
//
// and lays it over the defaults. An empty path returns the defaults.
func LoadCatalog(path string) (Catalog, error) {
	c := DefaultCatalog()
	if path == "" {
		return c, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read api catalog: %w", err)
	}
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse api catalog %s: %w", path, err)
	}
	for name, cfg := range f.APIs {
		c[name] = cfg
	}
	return c, nil
}

// Names returns the API names in alphabetical order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for n := range c {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
