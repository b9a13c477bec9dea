package models

import "encoding/json"

// CloneFlows returns a deep copy of flows. Backup and restore paths depend on
// this to guarantee snapshots never alias the live dataset.
func CloneFlows(flows []Flow) []Flow {
	if flows == nil {
		return nil
	}

	data, err := json.Marshal(flows)
	if err != nil {
		// Flows contain only marshalable types; reaching this means the
		// model itself is broken, not the input.
		return []Flow{}
	}

	clone := make([]Flow, 0, len(flows))
	if err := json.Unmarshal(data, &clone); err != nil {
		return []Flow{}
	}

	return clone
}
