package match

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"loglens/core"

	"github.com/xeipuuv/gojsonschema"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// LoadRules loads rule definitions from a JSON or YAML file. JSON files are
// validated against the embedded schema before decoding; validation failures
// are fatal because a malformed file is a deployment error, not a rule
// error. Per-rule semantic problems are left to the compiler, which reports
// them as diagnostics.
func LoadRules(filename string, logger *zap.SugaredLogger) ([]core.Rule, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data, isYAML(filename), logger)
}

// ParseRules decodes rule definitions from raw bytes.
func ParseRules(data []byte, asYAML bool, logger *zap.SugaredLogger) ([]core.Rule, error) {
	if !asYAML {
		schemaLoader := gojsonschema.NewStringLoader(ruleSchema)
		documentLoader := gojsonschema.NewBytesLoader(data)

		result, err := gojsonschema.Validate(schemaLoader, documentLoader)
		if err != nil {
			return nil, fmt.Errorf("failed to validate rules against schema: %w", err)
		}
		if !result.Valid() {
			var errors []string
			for _, desc := range result.Errors() {
				errors = append(errors, desc.String())
			}
			return nil, fmt.Errorf("rules validation failed: %s", strings.Join(errors, "; "))
		}
	}

	var rules core.Rules
	if asYAML {
		err := yaml.Unmarshal(data, &rules)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
		}
	} else {
		err := json.Unmarshal(data, &rules)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal rules: %w", err)
		}
	}

	logger.Infof("Loaded %d rule definitions", len(rules.Rules))
	return rules.Rules, nil
}

func isYAML(filename string) bool {
	return strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml")
}
