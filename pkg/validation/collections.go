package validation

import (
	"fmt"

	"github.com/bosmethod/bos/pkg/models"
)

// Canonical defaults substituted by the collection coercers.
const (
	unknownValue         = "Unknown"
	noDescriptionValue   = "No description"
	unknownSignalName    = "Unnamed Signal"
	unknownTelemetryName = "Unknown source"
)

// The collection coercers below are pure: given any input they return a
// well-formed collection, dropping entries that are not objects and
// substituting canonical defaults field-by-field. They report what they did
// as warnings and never produce errors.

func validateStakeholders(raw any, context string) ([]models.Stakeholder, []string) {
	items, warnings := objectItems(raw, context+".stakeholders")
	stakeholders := make([]models.Stakeholder, 0, len(items))

	for i, item := range items {
		stakeholder := models.Stakeholder{
			Name:         stringField(item, "name", unknownValue),
			Role:         stringField(item, "role", unknownValue),
			Relationship: stringField(item, "relationship", ""),
		}

		rawType := models.StakeholderType(stringField(item, "type", string(models.StakeholderTypePeople)))
		if !rawType.IsValid() {
			warnings = append(warnings, fmt.Sprintf("%s.stakeholders[%d]: unknown type %q, defaulted to %q",
				context, i, rawType, models.StakeholderTypePeople))
			rawType = models.StakeholderTypePeople
		}

		stakeholder.Type = rawType
		stakeholders = append(stakeholders, stakeholder)
	}

	return stakeholders, warnings
}

func validateServices(raw any, context string) ([]models.Service, []string) {
	items, warnings := objectItems(raw, context+".services")
	services := make([]models.Service, 0, len(items))

	for _, item := range items {
		services = append(services, models.Service{
			Name:                 stringField(item, "name", unknownValue),
			TechnicalDescription: stringField(item, "technical_description", noDescriptionValue),
			TechnicalFlow:        stringField(item, "technical_flow", noDescriptionValue),
		})
	}

	return services, warnings
}

func validateSignals(raw any, context string) ([]models.Signal, []string) {
	items, warnings := objectItems(raw, context+".signals")
	signals := make([]models.Signal, 0, len(items))

	for _, item := range items {
		// Unknown type strings are preserved for the signal lint to
		// report; only a missing type defaults.
		signals = append(signals, models.Signal{
			Name:         stringField(item, "name", unknownSignalName),
			Type:         models.SignalType(stringField(item, "type", string(models.SignalTypeBusiness))),
			Owner:        stringField(item, "owner", ""),
			MetricName:   stringField(item, "metricName", ""),
			Threshold:    stringField(item, "threshold", ""),
			Description:  stringField(item, "description", ""),
			DependencyID: stringField(item, "dependencyId", ""),
		})
	}

	return signals, warnings
}

func validateTelemetryMappings(raw any, context string) ([]models.TelemetryMapping, []string) {
	items, warnings := objectItems(raw, context+".telemetryMappings")
	mappings := make([]models.TelemetryMapping, 0, len(items))

	for _, item := range items {
		mappings = append(mappings, models.TelemetryMapping{
			DataSource:        stringField(item, "dataSource", unknownTelemetryName),
			TelemetryRequired: stringField(item, "telemetryRequired", noDescriptionValue),
			TelemetryType:     stringField(item, "telemetryType", ""),
		})
	}

	return mappings, warnings
}

// validateImpacts coerces the category-keyed impact map. Values may be a
// list of impact objects or, in older exports, a single description string.
func validateImpacts(raw any, context string) (map[string][]models.Impact, []string) {
	impacts := make(map[string][]models.Impact)
	if raw == nil {
		return impacts, nil
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return impacts, []string{fmt.Sprintf("%s.impacts: not an object, dropped", context)}
	}

	var warnings []string

	for category, value := range obj {
		switch entries := value.(type) {
		case []any:
			for _, entry := range entries {
				item, ok := entry.(map[string]any)
				if !ok {
					warnings = append(warnings, fmt.Sprintf("%s.impacts[%q]: dropped non-object entry", context, category))

					continue
				}

				impacts[category] = append(impacts[category], models.Impact{
					Category:    category,
					Description: stringField(item, "description", noDescriptionValue),
					Severity:    stringField(item, "severity", ""),
				})
			}
		case string:
			impacts[category] = append(impacts[category], models.Impact{
				Category:    category,
				Description: entries,
			})
		default:
			warnings = append(warnings, fmt.Sprintf("%s.impacts[%q]: dropped unrecognized value", context, category))
		}
	}

	return impacts, warnings
}

// validateStringRecord coerces an arbitrary value into a string-to-string
// map, stringifying scalars and dropping nested structures.
func validateStringRecord(raw any, context string) (map[string]string, []string) {
	record := make(map[string]string)
	if raw == nil {
		return record, nil
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return record, []string{context + ": not an object, dropped"}
	}

	var warnings []string

	for key, value := range obj {
		switch typed := value.(type) {
		case string:
			record[key] = typed
		case float64, bool:
			record[key] = fmt.Sprint(typed)
		case nil:
			record[key] = ""
		default:
			warnings = append(warnings, fmt.Sprintf("%s[%q]: dropped non-scalar value", context, key))
		}
	}

	return record, warnings
}

// objectItems filters a raw list down to its object-typed entries.
func objectItems(raw any, context string) ([]map[string]any, []string) {
	if raw == nil {
		return nil, nil
	}

	list, ok := raw.([]any)
	if !ok {
		return nil, []string{context + ": not a list, dropped"}
	}

	var warnings []string

	items := make([]map[string]any, 0, len(list))

	for i, entry := range list {
		item, ok := entry.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("%s[%d]: dropped non-object entry", context, i))

			continue
		}

		items = append(items, item)
	}

	return items, warnings
}

func stringField(obj map[string]any, field, fallback string) string {
	if value, ok := obj[field].(string); ok && value != "" {
		return value
	}

	return fallback
}
