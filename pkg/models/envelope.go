package models

import "time"

// SchemaVersion is the current on-disk and export schema version.
const SchemaVersion = "1.0"

// DatasetMetadata describes provenance of a stored or exported dataset.
type DatasetMetadata struct {
	Version     string `json:"version"`
	LastUpdated string `json:"lastUpdated"`
	Source      string `json:"source"`
}

// StoredDataset is the envelope written to the primary storage slot and
// produced by export. Import additionally accepts a bare flow array and the
// legacy methodology shape.
type StoredDataset struct {
	Flows    []Flow          `json:"flows"`
	Metadata DatasetMetadata `json:"metadata"`
}

// NewDatasetMetadata stamps an envelope with the current schema version.
func NewDatasetMetadata(source string) DatasetMetadata {
	return DatasetMetadata{
		Version:     SchemaVersion,
		LastUpdated: time.Now().UTC().Format(time.RFC3339),
		Source:      source,
	}
}
