package app

import (
	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/pm-catalog/internal/catalog"
)

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Locale      string   `default:"en-US" usage:"Locale tag used for reports and discount totals"`
	DataDir     string   `default:"data" usage:"Directory with product and review files" flag:"data-dir"`
	ReportsDir  string   `default:"reports" usage:"Directory receiving product reports" flag:"reports-dir"`
	TempDir     string   `default:"temp" usage:"Directory holding catalog snapshots" flag:"temp-dir"`
	ReportFile  string   `default:"product%d.txt" usage:"Report file name pattern, takes the product id" flag:"report-file"`
	LoadWorkers int      `default:"4" usage:"Files parsed concurrently while loading" flag:"load-workers"`
	Imports     []string `usage:"Gzipped review exports imported after loading" flag:"imports"`
	Snapshot    bool     `default:"false" usage:"Dump the catalog to a snapshot and restore it before exiting"`
	Export      bool     `default:"false" usage:"Write the catalog back to the data directory before exiting"`
}

// LoadConfig loads configuration from environment variables, flags and YAML
// config files.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/shop/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	if cfg.LoadWorkers <= 0 {
		return nil, errors.Errorf("load workers must be positive, got %d", cfg.LoadWorkers)
	}
	return &cfg, nil
}

// Catalog returns the catalog layout described by c.
func (c *Config) Catalog() catalog.Config {
	return catalog.Config{
		DataDir:     c.DataDir,
		ReportsDir:  c.ReportsDir,
		TempDir:     c.TempDir,
		ReportFile:  c.ReportFile,
		LoadWorkers: c.LoadWorkers,
	}
}
