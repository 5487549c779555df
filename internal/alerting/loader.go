package alerting

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadRulesFromFile loads alert rules from a YAML file.
func LoadRulesFromFile(path string) ([]*Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rules file: %w", err)
	}
	defer f.Close()

	return LoadRules(f)
}

// LoadRules loads alert rules from a reader.
func LoadRules(r io.Reader) ([]*Rule, error) {
	var config RulesConfig
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to parse rules YAML: %w", err)
	}

	if len(config.Rules) == 0 {
		return nil, fmt.Errorf("rules file defines no rules")
	}
	for i, rule := range config.Rules {
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("invalid rule at index %d: %w", i, err)
		}
	}

	return config.Rules, nil
}
