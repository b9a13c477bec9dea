// Package models defines the core domain models for BOS methodology datasets.
package models

// StakeholderType classifies who or what depends on a business step.
type StakeholderType string

const (
	StakeholderTypePeople   StakeholderType = "people"
	StakeholderTypeBusiness StakeholderType = "business"
	StakeholderTypeVendor   StakeholderType = "vendor"
)

// IsValid reports whether the stakeholder type is one of the known categories.
func (t StakeholderType) IsValid() bool {
	switch t {
	case StakeholderTypePeople, StakeholderTypeBusiness, StakeholderTypeVendor:
		return true
	}

	return false
}

// Flow is the top-level business process container.
type Flow struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"                  validate:"required"`
	Description string  `json:"description,omitempty"`
	Stages      []Stage `json:"stages"`
}

// Stage groups steps within a flow. A stage is owned by exactly one flow.
type Stage struct {
	ID    string `json:"id"`
	Name  string `json:"name" validate:"required"`
	Steps []Step `json:"steps"`
}

// Step is a unit of business process subject to the BOS methodology.
// After validation, Score is always finite and within [0,100], and the
// Stakeholders and Services collections are never nil.
type Step struct {
	ID                string              `json:"id"`
	Name              string              `json:"name"                  validate:"required"`
	Description       string              `json:"description,omitempty"`
	Stakeholders      []Stakeholder       `json:"stakeholders"`
	Dependencies      map[string]string   `json:"dependencies"`
	Impacts           map[string][]Impact `json:"impacts"`
	TelemetryMappings []TelemetryMapping  `json:"telemetryMappings"`
	Signals           []Signal            `json:"signals"`
	Services          []Service           `json:"services"`
	Score             float64             `json:"score"                 validate:"gte=0,lte=100"`
}

// Stakeholder is embedded in a step, not referenced.
type Stakeholder struct {
	Name         string          `json:"name"`
	Role         string          `json:"role"`
	Type         StakeholderType `json:"type"                   validate:"oneof=people business vendor"`
	Relationship string          `json:"relationship,omitempty"`
}

// Service describes a technical service backing a step. Repair substitutes
// placeholder strings for absent fields, never leaving them undefined.
type Service struct {
	Name                 string `json:"name"`
	TechnicalDescription string `json:"technical_description"`
	TechnicalFlow        string `json:"technical_flow"`
}

// Impact records a business consequence within a category (financial,
// operational, customer, regulatory, ...).
type Impact struct {
	Category    string `json:"category,omitempty"`
	Description string `json:"description"`
	Severity    string `json:"severity,omitempty"`
}

// TelemetryMapping links a step dependency to the telemetry that observes it.
type TelemetryMapping struct {
	DataSource        string `json:"dataSource"`
	TelemetryRequired string `json:"telemetryRequired"`
	TelemetryType     string `json:"telemetryType,omitempty"`
}
