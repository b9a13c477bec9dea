// Package migration upgrades older persisted or exported data shapes to the
// current schema before validation. Load and import paths run it
// transparently, so callers only ever see current-schema flows.
package migration

import (
	"errors"
	"fmt"

	"github.com/bosmethod/bos/pkg/models"
	"github.com/bosmethod/bos/pkg/validation"
)

// ErrNoValidFlows indicates migration plus validation produced nothing usable.
var ErrNoValidFlows = errors.New("no valid flows found after migration")

// Legacy shape upgrades applied before validation:
//
//   - {methodology: ...} envelope unwrapped (handled by the validator's
//     candidate detection; normalization here keeps step payloads current)
//   - step "dependencies" as a list upgraded to the category-keyed map
//   - step "telemetry" key renamed to "telemetryMappings"

// MigrateDataWithValidation normalizes legacy shapes in raw and runs the
// result through schema validation. The returned result carries migration
// notices in Warnings alongside the validator's own repairs.
func MigrateDataWithValidation(raw any) validation.Result {
	normalized, notices := Normalize(raw)

	result := validation.ValidateImportData(normalized)
	if len(notices) > 0 {
		result.Warnings = append(notices, result.Warnings...)
	}

	return result
}

// MigrateData is the error-returning convenience form used by load paths
// that cannot surface partial recovery to a user.
func MigrateData(raw any) ([]models.Flow, error) {
	result := MigrateDataWithValidation(raw)
	if result.Valid {
		return result.Data, nil
	}

	if len(result.RecoveredData) > 0 {
		return result.RecoveredData, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrNoValidFlows, result.Errors)
}

// Normalize rewrites legacy step fields in place-equivalent copies of the
// parsed structure. It never fails: unrecognized values pass through for the
// validator to classify.
func Normalize(raw any) (any, []string) {
	var notices []string

	switch value := raw.(type) {
	case []any:
		for i, flow := range value {
			value[i] = normalizeFlow(flow, fmt.Sprintf("flows[%d]", i), &notices)
		}

		return value, notices
	case map[string]any:
		if flows, ok := value["flows"].([]any); ok {
			for i, flow := range flows {
				flows[i] = normalizeFlow(flow, fmt.Sprintf("flows[%d]", i), &notices)
			}

			return value, notices
		}

		if legacy, ok := value["methodology"]; ok {
			normalized, innerNotices := Normalize(legacy)
			notices = append(notices, innerNotices...)

			return map[string]any{"methodology": normalized}, notices
		}
	}

	return raw, notices
}

func normalizeFlow(raw any, context string, notices *[]string) any {
	flow, ok := raw.(map[string]any)
	if !ok {
		return raw
	}

	stages, ok := flow["stages"].([]any)
	if !ok {
		return flow
	}

	for i, stage := range stages {
		stageObj, ok := stage.(map[string]any)
		if !ok {
			continue
		}

		steps, ok := stageObj["steps"].([]any)
		if !ok {
			continue
		}

		for j, step := range steps {
			stepObj, ok := step.(map[string]any)
			if !ok {
				continue
			}

			stepContext := fmt.Sprintf("%s.stages[%d].steps[%d]", context, i, j)
			normalizeStep(stepObj, stepContext, notices)
		}
	}

	return flow
}

func normalizeStep(step map[string]any, context string, notices *[]string) {
	if deps, ok := step["dependencies"].([]any); ok {
		step["dependencies"] = upgradeDependencyList(deps)
		*notices = append(*notices, context+": legacy dependency list converted to category map")
	}

	if telemetry, present := step["telemetry"]; present {
		if _, alsoPresent := step["telemetryMappings"]; !alsoPresent {
			step["telemetryMappings"] = telemetry
			*notices = append(*notices, context+": legacy telemetry field renamed to telemetryMappings")
		}

		delete(step, "telemetry")
	}
}

// upgradeDependencyList converts the legacy list-of-dependencies form to the
// enhanced category-keyed map. String entries become uncategorized
// dependencies; object entries contribute their category/name fields.
func upgradeDependencyList(deps []any) map[string]any {
	upgraded := make(map[string]any, len(deps))

	for i, dep := range deps {
		switch value := dep.(type) {
		case string:
			upgraded[fmt.Sprintf("dependency_%d", i+1)] = value
		case map[string]any:
			key, ok := value["category"].(string)
			if !ok || key == "" {
				key = fmt.Sprintf("dependency_%d", i+1)
			}

			description, ok := value["description"].(string)
			if !ok {
				if name, nameOk := value["name"].(string); nameOk {
					description = name
				}
			}

			upgraded[key] = description
		}
	}

	return upgraded
}
