package validation

import (
	"fmt"

	"github.com/bosmethod/bos/pkg/identifier"
	"github.com/bosmethod/bos/pkg/models"
)

// Default values substituted during repair.
const (
	defaultFlowName  = "Untitled Flow"
	defaultStageName = "Untitled Stage"
	defaultStepName  = "Untitled Step"
)

// ValidateImportData validates an already-parsed import payload of any shape.
//
// Accepted top-level shapes: a bare flow array, an object with a flows array,
// or the legacy methodology envelope. Anything else yields a single
// "Unrecognized data format" error. Individual flows validate independently:
// fully valid flows land in Data, repairable ones in RecoveredData.
func ValidateImportData(raw any) Result {
	candidates, warnings, ok := flowCandidates(raw)
	if !ok {
		return Result{
			Valid:  false,
			Errors: []string{"Unrecognized data format: expected an array of flows or an object with a flows array"},
		}
	}

	if len(warnings) == 0 {
		if flows, ok := tryStrictDecode(map[string]any{"flows": candidates}); ok {
			result := Result{Valid: true, Data: flows}
			for _, flow := range flows {
				result.Warnings = append(result.Warnings, lintFlowSignals(flow)...)
			}

			return result
		}
	}

	result := Result{Warnings: warnings}

	for i, candidate := range candidates {
		context := fmt.Sprintf("flows[%d]", i)
		outcome := validateFlow(candidate, context)

		result.Warnings = append(result.Warnings, outcome.warnings...)

		switch {
		case outcome.valid && outcome.data != nil:
			result.Data = append(result.Data, *outcome.data)
			result.Warnings = append(result.Warnings, lintFlowSignals(*outcome.data)...)
		case outcome.recovered != nil:
			result.RecoveredData = append(result.RecoveredData, *outcome.recovered)
			result.Errors = append(result.Errors, outcome.errors...)
		default:
			result.Errors = append(result.Errors, outcome.errors...)
		}
	}

	result.Valid = len(result.Data) > 0
	if !result.Valid {
		result.Errors = append([]string{"No valid flows found in import data"}, result.Errors...)
	}

	return result
}

// flowCandidates extracts the candidate flow list from the recognized
// top-level shapes. The returned warnings record legacy-shape conversions.
func flowCandidates(raw any) ([]any, []string, bool) {
	switch value := raw.(type) {
	case []any:
		return value, nil, true
	case map[string]any:
		if flows, ok := value["flows"].([]any); ok {
			return flows, nil, true
		}

		if legacy, ok := value["methodology"]; ok {
			warning := []string{"Legacy methodology format detected, converted to current schema"}

			switch inner := legacy.(type) {
			case []any:
				return inner, warning, true
			case map[string]any:
				if flows, ok := inner["flows"].([]any); ok {
					return flows, warning, true
				}
			}
		}
	}

	return nil, nil, false
}

func lintFlowSignals(flow models.Flow) []string {
	var warnings []string

	for _, stage := range flow.Stages {
		for _, step := range stage.Steps {
			warnings = append(warnings, models.LintSignals(step)...)
		}
	}

	return warnings
}

// validateFlow validates a single candidate flow. Wrong-typed fields on the
// flow itself abort it; stage errors are index-qualified and demote the flow
// to recovered rather than discarding it.
func validateFlow(raw any, context string) entityOutcome[models.Flow] {
	obj, ok := raw.(map[string]any)
	if !ok {
		return invalidEntity[models.Flow](context + ": flow is not an object")
	}

	var (
		flow        models.Flow
		warnings    []string
		childErrors []string
	)

	id, warning, err := repairString(obj, "id", context, func() (string, string) {
		generated := identifier.New("flow")

		return generated, "missing id, generated " + generated
	})
	if err != "" {
		return invalidEntity[models.Flow](err)
	}

	flow.ID = id
	warnings = appendNonEmpty(warnings, warning)

	name, warning, err := repairString(obj, "name", context, func() (string, string) {
		return defaultFlowName, fmt.Sprintf("missing name, defaulted to %q", defaultFlowName)
	})
	if err != "" {
		return invalidEntity[models.Flow](err)
	}

	flow.Name = name
	warnings = appendNonEmpty(warnings, warning)

	description, _, err := repairString(obj, "description", context, func() (string, string) {
		return "", ""
	})
	if err != "" {
		return invalidEntity[models.Flow](err)
	}

	flow.Description = description

	stagesRaw, warning, errMsg := repairList(obj, "stages", context)
	if errMsg != "" {
		return invalidEntity[models.Flow](errMsg)
	}

	warnings = appendNonEmpty(warnings, warning)
	flow.Stages = make([]models.Stage, 0, len(stagesRaw))

	for i, stageRaw := range stagesRaw {
		stageContext := fmt.Sprintf("%s.stages[%d]", context, i)
		outcome := validateStage(stageRaw, stageContext)

		warnings = append(warnings, outcome.warnings...)

		switch {
		case outcome.valid && outcome.data != nil:
			flow.Stages = append(flow.Stages, *outcome.data)
		case outcome.recovered != nil:
			flow.Stages = append(flow.Stages, *outcome.recovered)
			childErrors = append(childErrors, outcome.errors...)
		default:
			childErrors = append(childErrors, outcome.errors...)
		}
	}

	if len(childErrors) > 0 {
		return entityOutcome[models.Flow]{
			valid:     false,
			recovered: &flow,
			errors:    childErrors,
			warnings:  warnings,
		}
	}

	return entityOutcome[models.Flow]{valid: true, data: &flow, warnings: warnings}
}

func validateStage(raw any, context string) entityOutcome[models.Stage] {
	obj, ok := raw.(map[string]any)
	if !ok {
		return invalidEntity[models.Stage](context + ": stage is not an object")
	}

	var (
		stage       models.Stage
		warnings    []string
		childErrors []string
	)

	id, warning, err := repairString(obj, "id", context, func() (string, string) {
		generated := identifier.New("stage")

		return generated, "missing id, generated " + generated
	})
	if err != "" {
		return invalidEntity[models.Stage](err)
	}

	stage.ID = id
	warnings = appendNonEmpty(warnings, warning)

	name, warning, err := repairString(obj, "name", context, func() (string, string) {
		return defaultStageName, fmt.Sprintf("missing name, defaulted to %q", defaultStageName)
	})
	if err != "" {
		return invalidEntity[models.Stage](err)
	}

	stage.Name = name
	warnings = appendNonEmpty(warnings, warning)

	stepsRaw, warning, errMsg := repairList(obj, "steps", context)
	if errMsg != "" {
		return invalidEntity[models.Stage](errMsg)
	}

	warnings = appendNonEmpty(warnings, warning)
	stage.Steps = make([]models.Step, 0, len(stepsRaw))

	for i, stepRaw := range stepsRaw {
		stepContext := fmt.Sprintf("%s.steps[%d]", context, i)
		outcome := validateStep(stepRaw, stepContext)

		warnings = append(warnings, outcome.warnings...)

		switch {
		case outcome.valid && outcome.data != nil:
			stage.Steps = append(stage.Steps, *outcome.data)
		case outcome.recovered != nil:
			stage.Steps = append(stage.Steps, *outcome.recovered)
			childErrors = append(childErrors, outcome.errors...)
		default:
			childErrors = append(childErrors, outcome.errors...)
		}
	}

	if len(childErrors) > 0 {
		return entityOutcome[models.Stage]{
			valid:     false,
			recovered: &stage,
			errors:    childErrors,
			warnings:  warnings,
		}
	}

	return entityOutcome[models.Stage]{valid: true, data: &stage, warnings: warnings}
}

func validateStep(raw any, context string) entityOutcome[models.Step] {
	obj, ok := raw.(map[string]any)
	if !ok {
		return invalidEntity[models.Step](context + ": step is not an object")
	}

	var (
		step     models.Step
		warnings []string
	)

	id, warning, err := repairString(obj, "id", context, func() (string, string) {
		generated := identifier.New("step")

		return generated, "missing id, generated " + generated
	})
	if err != "" {
		return invalidEntity[models.Step](err)
	}

	step.ID = id
	warnings = appendNonEmpty(warnings, warning)

	name, warning, err := repairString(obj, "name", context, func() (string, string) {
		return defaultStepName, fmt.Sprintf("missing name, defaulted to %q", defaultStepName)
	})
	if err != "" {
		return invalidEntity[models.Step](err)
	}

	step.Name = name
	warnings = appendNonEmpty(warnings, warning)

	description, _, err := repairString(obj, "description", context, func() (string, string) {
		return "", ""
	})
	if err != "" {
		return invalidEntity[models.Step](err)
	}

	step.Description = description

	score, warning, err := repairScore(obj, context)
	if err != "" {
		return invalidEntity[models.Step](err)
	}

	step.Score = score
	warnings = appendNonEmpty(warnings, warning)

	// Methodology collections are coerced, never fatal.
	var collectionWarnings []string

	step.Stakeholders, collectionWarnings = validateStakeholders(obj["stakeholders"], context)
	warnings = append(warnings, collectionWarnings...)

	step.Services, collectionWarnings = validateServices(obj["services"], context)
	warnings = append(warnings, collectionWarnings...)

	step.Dependencies, collectionWarnings = validateStringRecord(obj["dependencies"], context+".dependencies")
	warnings = append(warnings, collectionWarnings...)

	step.Impacts, collectionWarnings = validateImpacts(obj["impacts"], context)
	warnings = append(warnings, collectionWarnings...)

	step.Signals, collectionWarnings = validateSignals(obj["signals"], context)
	warnings = append(warnings, collectionWarnings...)

	step.TelemetryMappings, collectionWarnings = validateTelemetryMappings(obj["telemetryMappings"], context)
	warnings = append(warnings, collectionWarnings...)

	return entityOutcome[models.Step]{valid: true, data: &step, warnings: warnings}
}

// repairString reads a string field. Missing or empty values invoke repair
// for a default and warning; a present non-string value is a hard error.
// The warning and error returns are mutually exclusive, empty when unused.
func repairString(obj map[string]any, field, context string, repair func() (string, string)) (value, warning, errMsg string) {
	raw, present := obj[field]
	if !present || raw == nil {
		value, warning = repair()
		if warning != "" {
			warning = context + ": " + warning
		}

		return value, warning, ""
	}

	str, ok := raw.(string)
	if !ok {
		return "", "", fmt.Sprintf("%s: %s must be a string, got %T", context, field, raw)
	}

	if str == "" {
		value, warning = repair()
		if warning != "" {
			warning = context + ": " + warning
		}

		return value, warning, ""
	}

	return str, "", ""
}

// repairList reads a list field. Missing yields an empty list plus warning;
// a present non-list value is a hard error.
func repairList(obj map[string]any, field, context string) (items []any, warning, errMsg string) {
	raw, present := obj[field]
	if !present || raw == nil {
		return nil, fmt.Sprintf("%s: missing %s, defaulted to empty list", context, field), ""
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, "", fmt.Sprintf("%s: %s must be a list, got %T", context, field, raw)
	}

	return list, "", ""
}

// repairScore enforces the invariant that a step score is always a finite
// number in [0,100]. Missing defaults to 0, out-of-range values clamp.
func repairScore(obj map[string]any, context string) (score float64, warning, errMsg string) {
	raw, present := obj["score"]
	if !present || raw == nil {
		return 0, context + ": missing score, defaulted to 0", ""
	}

	value, ok := raw.(float64)
	if !ok {
		return 0, "", fmt.Sprintf("%s: score must be a number, got %T", context, raw)
	}

	switch {
	case value < 0:
		return 0, fmt.Sprintf("%s: score %v below range, clamped to 0", context, value), ""
	case value > 100:
		return 100, fmt.Sprintf("%s: score %v above range, clamped to 100", context, value), ""
	}

	return value, "", ""
}

func appendNonEmpty(warnings []string, warning string) []string {
	if warning == "" {
		return warnings
	}

	return append(warnings, warning)
}
