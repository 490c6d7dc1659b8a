package heuristic

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// Config is the tunable surface of the local heuristics
type Config struct {
	MinLength        int      `yaml:"min_length"`
	Keywords         []string `yaml:"keywords"`
	TrickeryPatterns []string `yaml:"trickery_patterns"`
}

// DefaultConfig returns the built-in heuristic settings
func DefaultConfig() Config {
	return Config{
		MinLength: 20,
		Keywords: []string{
			"build", "create", "develop", "solve", "help", "make", "launch", "sell", "offer",
			"platform", "app", "application", "tool", "service", "business", "startup",
			"product", "market", "customer", "solution", "problem", "idea", "users",
			"connect", "marketplace", "subscription", "network", "software", "website",
			"company", "saas", "delivery", "community", "automate", "device",
		},
		TrickeryPatterns: []string{
			`ignore (all |any )?(previous|prior|above) (instructions|prompts?)`,
			`(give|award|grant) me (\d+ )?(wrinkle )?points`,
			`system prompt`,
			`you are now`,
			`pretend (to be|you are)`,
			`jailbreak`,
			`(approve|accept|validate) (my|this) idea`,
			`developer mode`,
			`act as (an? )?(unrestricted|different)`,
		},
	}
}

// LoadConfig reads a YAML file and overlays it on DefaultConfig. Empty path
// returns the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, goerr.Wrap(err, "failed to read heuristic config", goerr.V("path", path))
	}

	var override Config
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Config{}, goerr.Wrap(err, "failed to parse heuristic config", goerr.V("path", path))
	}

	if override.MinLength > 0 {
		cfg.MinLength = override.MinLength
	}
	if len(override.Keywords) > 0 {
		cfg.Keywords = override.Keywords
	}
	if len(override.TrickeryPatterns) > 0 {
		cfg.TrickeryPatterns = override.TrickeryPatterns
	}

	return cfg, nil
}
