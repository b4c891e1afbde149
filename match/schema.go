package match

// ruleSchema is the JSON schema rule files are validated against before
// decoding. YAML rule files skip schema validation and rely on the decoder
// plus per-rule validation instead.
const ruleSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["rules"],
  "properties": {
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type", "severity"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "type": {"enum": ["single_line", "multi_line", "correlation"]},
          "severity": {"enum": ["fatal", "error", "warning"]},
          "weight": {"type": "number", "minimum": 0, "maximum": 1},
          "pattern": {
            "type": "object",
            "required": ["regex"],
            "properties": {
              "regex": {"type": "string", "minLength": 1},
              "flags": {"type": "string"},
              "capture_groups": {"type": "array", "items": {"type": "string"}}
            }
          },
          "segments": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["order", "pattern"],
              "properties": {
                "order": {"type": "integer", "minimum": 0},
                "pattern": {"type": "string", "minLength": 1},
                "capture_groups": {"type": "array", "items": {"type": "string"}},
                "required": {"type": "boolean"},
                "max_line_distance": {"type": "integer", "minimum": 0}
              }
            }
          },
          "patterns": {
            "type": "object",
            "required": ["primary", "related"],
            "properties": {
              "primary": {"type": "string", "minLength": 1},
              "related": {"type": "string", "minLength": 1}
            }
          },
          "correlation": {
            "type": "object",
            "properties": {
              "max_distance": {"type": "integer", "minimum": 1},
              "conditions": {"type": "array", "items": {"type": "string"}}
            }
          }
        }
      }
    }
  }
}`
