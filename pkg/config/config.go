package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/mbhatt/pageweight/pkg/metrics"
)

// DefaultFile is looked up in the working directory when no config file is
// given. A missing default file falls back to Default().
const DefaultFile = "pageweight.yaml"

type Config struct {
	Version int `json:"version"`
	// PerResource emits one metric triple per resource in addition to the
	// page totals.
	PerResource bool `json:"per_resource"`
	// DataSaving emits the overall data-saving percentage.
	DataSaving bool `json:"data_saving"`
	// Store persists each run in the local run database.
	Store bool `json:"store"`
	// PrometheusListen, when set, serves the run's metrics in prometheus
	// exposition format on this address after the report is printed.
	PrometheusListen string `json:"prometheus_listen"`
}

func Default() Config {
	return Config{
		Version:    1,
		DataSaving: true,
		Store:      true,
	}
}

func Load(path string) (Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultFile {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config file: %v", err)
	}
	var c Config
	if err := yaml.Unmarshal(content, &c); err != nil {
		return Config{}, fmt.Errorf("parse config file: %v", err)
	}
	if c.Version != 1 {
		return Config{}, fmt.Errorf("invalid config version '%v'", c.Version)
	}
	return c, nil
}

func (c Config) MeterConfig() metrics.Config {
	return metrics.Config{
		PerResource: c.PerResource,
		DataSaving:  c.DataSaving,
	}
}
