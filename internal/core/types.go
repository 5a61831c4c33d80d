// Package core provides the business logic for equipment CSV ingestion:
// schema validation, statistical summarization, and the payload shapes
// consumed by the chart and PDF collaborators.
// This package has no storage or HTTP dependencies.
package core

import "time"

// Column names expected in the CSV header, case-sensitive.
const (
	ColName        = "Equipment Name"
	ColType        = "Type"
	ColFlowrate    = "Flowrate"
	ColPressure    = "Pressure"
	ColTemperature = "Temperature"
)

// Columns lists the five required CSV columns in canonical order.
var Columns = []string{ColName, ColType, ColFlowrate, ColPressure, ColTemperature}

// MaxUploadSize is the default upload size cap (5 MiB).
// Overridable via UPLOAD_MAX_FILE_SIZE.
const MaxUploadSize int64 = 5 * 1024 * 1024

// EquipmentRecord is one validated row of equipment parameter data.
// Name and EquipmentType are non-empty after trimming; the numeric
// fields are finite (never NaN or Inf).
type EquipmentRecord struct {
	Name          string  `json:"name"`
	EquipmentType string  `json:"equipment_type"`
	Flowrate      float64 `json:"flowrate"`
	Pressure      float64 `json:"pressure"`
	Temperature   float64 `json:"temperature"`
}

// Summary holds the aggregate statistics derived from one dataset's
// records. All floating point values are rounded to two decimals; the
// ordered maps iterate in first-seen order of equipment type so that
// chart legends and reports are stable across runs.
type Summary struct {
	TotalCount int `json:"total_count"`

	AvgFlowrate    float64 `json:"avg_flowrate"`
	AvgPressure    float64 `json:"avg_pressure"`
	AvgTemperature float64 `json:"avg_temperature"`

	MinFlowrate    float64 `json:"min_flowrate"`
	MaxFlowrate    float64 `json:"max_flowrate"`
	MinPressure    float64 `json:"min_pressure"`
	MaxPressure    float64 `json:"max_pressure"`
	MinTemperature float64 `json:"min_temperature"`
	MaxTemperature float64 `json:"max_temperature"`

	TypeDistribution *TypeCounts `json:"type_distribution"`
	AvgByType        AvgByType   `json:"avg_by_type"`
}

// AvgByType maps each numeric field to per-type means. The JSON keys
// match the CSV column names, which is what the chart collaborator
// expects.
type AvgByType struct {
	Flowrate    *TypeMeans `json:"Flowrate"`
	Pressure    *TypeMeans `json:"Pressure"`
	Temperature *TypeMeans `json:"Temperature"`
}

// Dataset is one uploaded CSV's persisted records plus its cached
// Summary. Immutable once persisted; destroyed only by retention
// eviction or explicit deletion.
type Dataset struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"-"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
	Records    []EquipmentRecord
	Summary    Summary
}

// DatasetMeta is the lightweight dataset view used by history listings.
// It carries the cached summary but not the equipment rows.
type DatasetMeta struct {
	ID             int64     `json:"id"`
	Filename       string    `json:"filename"`
	UploadedAt     time.Time `json:"uploaded_at"`
	EquipmentCount int       `json:"equipment_count"`
	Summary        Summary   `json:"summary"`
}
