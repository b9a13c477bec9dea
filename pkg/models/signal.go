package models

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// SignalType classifies a defined measurement attached to a step.
type SignalType string

const (
	SignalTypeBusiness SignalType = "business"
	SignalTypeProcess  SignalType = "process"
	SignalTypeSystem   SignalType = "system"
	SignalTypeKPI      SignalType = "kpi"
)

// IsValid reports whether the signal type is one of the known categories.
func (t SignalType) IsValid() bool {
	switch t {
	case SignalTypeBusiness, SignalTypeProcess, SignalTypeSystem, SignalTypeKPI:
		return true
	}

	return false
}

// Signal is a typed measurement associated with a step or, for kpi and
// business signals, with one of the step's dependencies.
type Signal struct {
	Name         string     `json:"name"`
	Type         SignalType `json:"type"                   validate:"omitempty,oneof=business process system kpi"`
	Owner        string     `json:"owner,omitempty"`
	MetricName   string     `json:"metricName,omitempty"`
	Threshold    string     `json:"threshold,omitempty"`
	Description  string     `json:"description,omitempty"`
	DependencyID string     `json:"dependencyId,omitempty"`
}

var signalValidate = validator.New(validator.WithRequiredStructEnabled())

// LintSignals checks the methodology rules for a step's signals and returns
// human-readable warnings. Lint findings never block an import: process and
// system signals must not link to a dependency, and kpi signals require both
// a metric name and a threshold.
func LintSignals(step Step) []string {
	var warnings []string

	for i, signal := range step.Signals {
		label := signal.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}

		if err := signalValidate.Struct(signal); err != nil {
			warnings = append(warnings, fmt.Sprintf("step %q signal %s: unknown type %q", step.Name, label, signal.Type))

			continue
		}

		switch signal.Type {
		case SignalTypeProcess, SignalTypeSystem:
			if signal.DependencyID != "" {
				warnings = append(warnings, fmt.Sprintf("step %q signal %s: %s signals must not reference a dependency", step.Name, label, signal.Type))
			}
		case SignalTypeKPI:
			if signal.MetricName == "" {
				warnings = append(warnings, fmt.Sprintf("step %q signal %s: kpi signals require a metric name", step.Name, label))
			}

			if signal.Threshold == "" {
				warnings = append(warnings, fmt.Sprintf("step %q signal %s: kpi signals require a threshold", step.Name, label))
			}
		case SignalTypeBusiness:
		}
	}

	return warnings
}
