package model

import "time"

// Dataset is one imported contracts spreadsheet.
type Dataset struct {
	ID         string        `json:"id"`
	Tenant     string        `json:"tenant"`
	Filename   string        `json:"filename"`
	Format     string        `json:"format"`
	Origin     string        `json:"origin"` // upload, source
	SourceURL  string        `json:"source_url,omitempty"`
	ObjectName string        `json:"object_name,omitempty"`
	FileURL    string        `json:"file_url,omitempty"`
	Rows       int           `json:"rows"`
	Quality    QualityReport `json:"quality"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`

	// Normalized rows without derived columns. Never mutated after import.
	Contracts []Contract `json:"-"`
}

// Dataset origins
const (
	OriginUpload = "upload"
	OriginSource = "source"
)

// QualityReport summarizes data quality findings of one normalization.
type QualityReport struct {
	Rows int `json:"rows"`
	// InvalidDates counts non-empty date cells that could not be parsed, per header.
	InvalidDates map[string]int `json:"invalid_dates"`
	// MissingSupplier counts supplier cells without a " - " separated name.
	MissingSupplier int      `json:"missing_supplier"`
	InvalidValues   int      `json:"invalid_values"`
	MissingColumns  []string `json:"missing_columns,omitempty"`
}
