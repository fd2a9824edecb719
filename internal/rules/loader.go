package rules

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// rulePackFile is the on-disk shape of one YAML rule pack.
type rulePackFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadDir loads every *.yaml file under dir as a rule pack and merges
// them in override > framework-specific > generic precedence
// (spec §4.5): files named "generic.yaml" load first, per-framework
// files next, and any file under an "overrides/" subdirectory loads
// last and wins ties at equal priority by sorting after the rest.
func LoadDir(dir string) (*RulePack, error) {
	generic, framework, overrides, err := collectRuleFiles(dir)
	if err != nil {
		return nil, err
	}

	var merged []Rule
	for _, path := range generic {
		rs, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		merged = append(merged, rs...)
	}
	for _, path := range framework {
		rs, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		merged = append(merged, rs...)
	}
	for _, path := range overrides {
		rs, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		merged = append(merged, rs...)
	}

	return NewRulePack(merged)
}

func collectRuleFiles(dir string) (generic, framework, overrides []string, err error) {
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if filepath.Ext(path) != ".yaml" && filepath.Ext(path) != ".yml" {
			return nil
		}

		rel, _ := filepath.Rel(dir, path)
		switch {
		case filepath.Dir(rel) == "overrides":
			overrides = append(overrides, path)
		case filepath.Base(path) == "generic.yaml" || filepath.Base(path) == "generic.yml":
			generic = append(generic, path)
		default:
			framework = append(framework, path)
		}
		return nil
	})
	return generic, framework, overrides, err
}

func loadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file rulePackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	return file.Rules, nil
}
