package validation

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/bosmethod/bos/pkg/models"
)

// strictFlowsSchema describes fully valid import data. Input that conforms
// skips the repair walk entirely; anything else falls through to it, so
// schema failures here are never surfaced as user errors.
const strictFlowsSchema = `{
  "type": "object",
  "required": ["flows"],
  "properties": {
    "flows": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "name"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"},
          "stages": {
            "type": ["array", "null"],
            "items": {
              "type": "object",
              "required": ["id", "name"],
              "properties": {
                "id": {"type": "string", "minLength": 1},
                "name": {"type": "string", "minLength": 1},
                "steps": {
                  "type": ["array", "null"],
                  "items": {
                    "type": "object",
                    "required": ["id", "name", "score"],
                    "properties": {
                      "id": {"type": "string", "minLength": 1},
                      "name": {"type": "string", "minLength": 1},
                      "description": {"type": "string"},
                      "stakeholders": {
                        "type": ["array", "null"],
                        "items": {
                          "type": "object",
                          "required": ["name", "role", "type"],
                          "properties": {
                            "name": {"type": "string", "minLength": 1},
                            "role": {"type": "string", "minLength": 1},
                            "type": {"enum": ["people", "business", "vendor"]},
                            "relationship": {"type": "string"}
                          }
                        }
                      },
                      "dependencies": {
                        "type": ["object", "null"],
                        "additionalProperties": {"type": "string"}
                      },
                      "impacts": {
                        "type": ["object", "null"],
                        "additionalProperties": {
                          "type": "array",
                          "items": {
                            "type": "object",
                            "required": ["description"],
                            "properties": {
                              "category": {"type": "string"},
                              "description": {"type": "string", "minLength": 1},
                              "severity": {"type": "string"}
                            }
                          }
                        }
                      },
                      "telemetryMappings": {
                        "type": ["array", "null"],
                        "items": {
                          "type": "object",
                          "required": ["dataSource", "telemetryRequired"],
                          "properties": {
                            "dataSource": {"type": "string", "minLength": 1},
                            "telemetryRequired": {"type": "string", "minLength": 1},
                            "telemetryType": {"type": "string"}
                          }
                        }
                      },
                      "signals": {
                        "type": ["array", "null"],
                        "items": {
                          "type": "object",
                          "required": ["name", "type"],
                          "properties": {
                            "name": {"type": "string", "minLength": 1},
                            "type": {"type": "string", "minLength": 1},
                            "owner": {"type": "string"},
                            "metricName": {"type": "string"},
                            "threshold": {"type": "string"},
                            "description": {"type": "string"},
                            "dependencyId": {"type": "string"}
                          }
                        }
                      },
                      "services": {
                        "type": ["array", "null"],
                        "items": {
                          "type": "object",
                          "required": ["name", "technical_description", "technical_flow"],
                          "properties": {
                            "name": {"type": "string", "minLength": 1},
                            "technical_description": {"type": "string", "minLength": 1},
                            "technical_flow": {"type": "string", "minLength": 1}
                          }
                        }
                      },
                      "score": {"type": "number", "minimum": 0, "maximum": 100}
                    }
                  }
                }
              }
            }
          }
        }
      }
    }
  }
}`

var compileStrictSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(strictFlowsSchema))
})

// tryStrictDecode checks raw against the strict schema and, on conformance,
// decodes it straight into typed flows. The bool reports whether the fast
// path applied.
func tryStrictDecode(raw any) ([]models.Flow, bool) {
	schema, err := compileStrictSchema()
	if err != nil {
		slog.Debug("strict import schema failed to compile", "error", err)

		return nil, false
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil || !result.Valid() {
		if err == nil {
			slog.Debug("import data did not match strict schema, using repair path",
				"violations", len(result.Errors()))
		}

		return nil, false
	}

	body, err := json.Marshal(raw)
	if err != nil {
		return nil, false
	}

	var envelope struct {
		Flows []models.Flow `json:"flows"`
	}

	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, false
	}

	// The repair walk keys every impact by its category; items decoded here
	// carry whatever the payload said, so realign them.
	for fi := range envelope.Flows {
		for si := range envelope.Flows[fi].Stages {
			for ti := range envelope.Flows[fi].Stages[si].Steps {
				for category, impacts := range envelope.Flows[fi].Stages[si].Steps[ti].Impacts {
					for ii := range impacts {
						impacts[ii].Category = category
					}
				}
			}
		}
	}

	return envelope.Flows, true
}
