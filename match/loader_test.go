package match

import (
	"os"
	"path/filepath"
	"testing"

	"loglens/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const rulesJSON = `{
  "rules": [
    {
      "id": "cs-error",
      "name": "C# compile error",
      "type": "single_line",
      "severity": "error",
      "weight": 0.8,
      "pattern": {
        "regex": "error CS(?P<error_code>\\d+): (?P<message>.*)",
        "capture_groups": ["error_code", "message"]
      }
    },
    {
      "id": "unity-exception",
      "type": "multi_line",
      "severity": "fatal",
      "segments": [
        {"order": 0, "pattern": "Exception:", "required": true},
        {"order": 1, "pattern": "^at ", "required": true, "max_line_distance": 3}
      ]
    },
    {
      "id": "deadlock",
      "type": "correlation",
      "severity": "fatal",
      "patterns": {
        "primary": "crash in thread (?P<thread_id>\\d+)",
        "related": "held by (?P<holder>\\d+)"
      },
      "correlation": {
        "max_distance": 5,
        "conditions": ["${thread_id} == ${holder}"]
      }
    }
  ]
}`

const rulesYAML = `rules:
  - id: yaml-rule
    type: single_line
    severity: warning
    pattern:
      regex: 'deprecated'
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRules_JSON(t *testing.T) {
	path := writeTemp(t, "rules.json", rulesJSON)

	rules, err := LoadRules(path, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, "cs-error", rules[0].ID)
	assert.Equal(t, core.RuleTypeSingleLine, rules[0].Type)
	assert.Equal(t, 0.8, rules[0].Weight)
	assert.Equal(t, []string{"error_code", "message"}, rules[0].Pattern.CaptureGroups)

	assert.Equal(t, core.RuleTypeMultiLine, rules[1].Type)
	require.Len(t, rules[1].Segments, 2)
	assert.True(t, rules[1].Segments[0].Required)
	assert.Equal(t, 3, rules[1].Segments[1].MaxLineDistance)

	assert.Equal(t, core.RuleTypeCorrelation, rules[2].Type)
	assert.Equal(t, 5, rules[2].Correlation.MaxDistance)
}

func TestLoadRules_YAML(t *testing.T) {
	path := writeTemp(t, "rules.yaml", rulesYAML)

	rules, err := LoadRules(path, zap.NewNop().Sugar())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "yaml-rule", rules[0].ID)
	assert.Equal(t, core.SeverityWarning, rules[0].Severity)
}

func TestLoadRules_SchemaRejectsUnknownSeverity(t *testing.T) {
	bad := `{"rules": [{"id": "x", "type": "single_line", "severity": "catastrophic", "pattern": {"regex": "a"}}]}`
	path := writeTemp(t, "rules.json", bad)

	_, err := LoadRules(path, zap.NewNop().Sugar())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadRules_SchemaRejectsMissingID(t *testing.T) {
	bad := `{"rules": [{"type": "single_line", "severity": "error", "pattern": {"regex": "a"}}]}`
	path := writeTemp(t, "rules.json", bad)

	_, err := LoadRules(path, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestLoadRules_MalformedJSON(t *testing.T) {
	path := writeTemp(t, "rules.json", `{"rules": [`)
	_, err := LoadRules(path, zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestLoadRules_MissingFile(t *testing.T) {
	_, err := LoadRules(filepath.Join(t.TempDir(), "nope.json"), zap.NewNop().Sugar())
	assert.Error(t, err)
}

func TestLoadRules_LoadedRulesCompile(t *testing.T) {
	path := writeTemp(t, "rules.json", rulesJSON)
	rules, err := LoadRules(path, zap.NewNop().Sugar())
	require.NoError(t, err)

	set, diags := Compile(rules, DefaultCompilerOptions(), zap.NewNop().Sugar())
	require.Empty(t, diags)
	assert.Equal(t, 3, set.Len())
}
