package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/bindle-sh/bindle/pkg/pipeline"
)

// defaultConfigFile is the project config file name looked up in the
// build root when --config is not given.
const defaultConfigFile = "bindle.toml"

// Config is the bindle.toml project file: the pipeline options plus
// CLI-only output settings.
type Config struct {
	pipeline.Options

	// OutDir is the directory bundle artifacts are written to.
	OutDir string `toml:"out_dir"`
}

// loadConfig reads a TOML config file. When path is empty, the default
// file is probed in root and a missing file is not an error.
func loadConfig(path, root string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, defaultConfigFile)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}
