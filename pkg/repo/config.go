package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Tie-break policy names. Only breadth-first is implemented; the setting
// exists so a compatibility mode can be added without changing call sites.
const (
	TiebreakBreadthFirst = "breadth-first"

	BisectWalkFirstParent = "first-parent"
)

// Config stores repository-local settings.
type Config struct {
	User   UserConfig   `toml:"user"`
	Merge  MergeConfig  `toml:"merge"`
	Bisect BisectConfig `toml:"bisect"`
}

// UserConfig identifies the author recorded on new commits.
type UserConfig struct {
	Name string `toml:"name"`
}

// MergeConfig controls merge-base selection.
type MergeConfig struct {
	// Tiebreak picks among multiple lowest common ancestors in a
	// criss-cross history. "breadth-first" selects the first common
	// ancestor discovered during the distance-ordered walk from theirs.
	Tiebreak string `toml:"tiebreak"`
}

// BisectConfig controls bisection candidate selection.
type BisectConfig struct {
	// Walk names the ancestry path used for candidates. "first-parent"
	// follows only first parents from bad back to good.
	Walk string `toml:"walk"`
}

func defaultConfig() *Config {
	return &Config{
		Merge:  MergeConfig{Tiebreak: TiebreakBreadthFirst},
		Bisect: BisectConfig{Walk: BisectWalkFirstParent},
	}
}

func (r *Repo) configPath() string {
	return filepath.Join(r.StrataDir, "config.toml")
}

// ReadConfig reads .strata/config.toml. A missing file yields defaults.
func (r *Repo) ReadConfig() (*Config, error) {
	data, err := os.ReadFile(r.configPath())
	if err != nil {
		if os.IsNotExist(err) {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := defaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("read config: unmarshal: %w", err)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return cfg, nil
}

// WriteConfig atomically writes .strata/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = defaultConfig()
	}
	if err := validateConfig(cfg); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("write config: marshal: %w", err)
	}

	tmp, err := os.CreateTemp(r.StrataDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}

func validateConfig(cfg *Config) error {
	if cfg.Merge.Tiebreak != "" && cfg.Merge.Tiebreak != TiebreakBreadthFirst {
		return fmt.Errorf("unsupported merge.tiebreak %q", cfg.Merge.Tiebreak)
	}
	if cfg.Bisect.Walk != "" && cfg.Bisect.Walk != BisectWalkFirstParent {
		return fmt.Errorf("unsupported bisect.walk %q", cfg.Bisect.Walk)
	}
	return nil
}
