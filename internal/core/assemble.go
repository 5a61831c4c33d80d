package core

// assemble.go packages a persisted dataset into the response payloads
// consumed by the chart-rendering and PDF-rendering collaborators.
// These field names are a boundary contract; renaming them breaks
// clients we do not control.

import "time"

// DatasetPayload is the full detail view of one dataset.
type DatasetPayload struct {
	DatasetID  int64           `json:"dataset_id"`
	Filename   string          `json:"filename"`
	UploadedAt time.Time       `json:"uploaded_at"`
	Summary    Summary         `json:"summary"`
	Equipment  []EquipmentView `json:"equipment"`
}

// EquipmentView is the presentation shape of one equipment record.
type EquipmentView struct {
	Name          string  `json:"name"`
	EquipmentType string  `json:"equipment_type"`
	Flowrate      float64 `json:"flowrate"`
	Pressure      float64 `json:"pressure"`
	Temperature   float64 `json:"temperature"`
}

// Assemble builds the detail payload for a dataset. Equipment keeps
// the original CSV row order.
func Assemble(ds *Dataset) DatasetPayload {
	equipment := make([]EquipmentView, len(ds.Records))
	for i, rec := range ds.Records {
		equipment[i] = EquipmentView{
			Name:          rec.Name,
			EquipmentType: rec.EquipmentType,
			Flowrate:      rec.Flowrate,
			Pressure:      rec.Pressure,
			Temperature:   rec.Temperature,
		}
	}

	return DatasetPayload{
		DatasetID:  ds.ID,
		Filename:   ds.Filename,
		UploadedAt: ds.UploadedAt,
		Summary:    ds.Summary,
		Equipment:  equipment,
	}
}
