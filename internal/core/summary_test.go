package core

import (
	"encoding/json"
	"errors"
	"testing"
)

func sampleRecords() []EquipmentRecord {
	return []EquipmentRecord{
		{Name: "Pump-1", EquipmentType: "Pump", Flowrate: 120.5, Pressure: 15.2, Temperature: 85},
		{Name: "Pump-2", EquipmentType: "Pump", Flowrate: 135.0, Pressure: 16.8, Temperature: 90},
		{Name: "Valve-1", EquipmentType: "Valve", Flowrate: 80.3, Pressure: 12.1, Temperature: 75},
	}
}

// ============================================================================
// Summarize Tests
// ============================================================================

func TestSummarize_EmptyDataset(t *testing.T) {
	_, err := Summarize(nil)
	if !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("Summarize(nil) error = %v, want ErrEmptyDataset", err)
	}

	_, err = Summarize([]EquipmentRecord{})
	if !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("Summarize([]) error = %v, want ErrEmptyDataset", err)
	}
}

// TestSummarize_ReferenceScenario pins the worked example from the
// product requirements.
func TestSummarize_ReferenceScenario(t *testing.T) {
	s, err := Summarize(sampleRecords())
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if s.TotalCount != 3 {
		t.Errorf("TotalCount = %d, want 3", s.TotalCount)
	}
	if s.AvgFlowrate != 111.93 {
		t.Errorf("AvgFlowrate = %v, want 111.93", s.AvgFlowrate)
	}
	if s.AvgPressure != 14.7 {
		t.Errorf("AvgPressure = %v, want 14.7", s.AvgPressure)
	}
	if s.AvgTemperature != 83.33 {
		t.Errorf("AvgTemperature = %v, want 83.33", s.AvgTemperature)
	}

	if s.MinFlowrate != 80.3 || s.MaxFlowrate != 135.0 {
		t.Errorf("Flowrate range = [%v, %v], want [80.3, 135]", s.MinFlowrate, s.MaxFlowrate)
	}
	if s.MinPressure != 12.1 || s.MaxPressure != 16.8 {
		t.Errorf("Pressure range = [%v, %v], want [12.1, 16.8]", s.MinPressure, s.MaxPressure)
	}
	if s.MinTemperature != 75 || s.MaxTemperature != 90 {
		t.Errorf("Temperature range = [%v, %v], want [75, 90]", s.MinTemperature, s.MaxTemperature)
	}

	if got := s.TypeDistribution.Keys(); len(got) != 2 || got[0] != "Pump" || got[1] != "Valve" {
		t.Errorf("TypeDistribution keys = %v, want [Pump Valve]", got)
	}
	if n, _ := s.TypeDistribution.Get("Pump"); n != 2 {
		t.Errorf("TypeDistribution[Pump] = %d, want 2", n)
	}
	if n, _ := s.TypeDistribution.Get("Valve"); n != 1 {
		t.Errorf("TypeDistribution[Valve] = %d, want 1", n)
	}

	if v, _ := s.AvgByType.Flowrate.Get("Pump"); v != 127.75 {
		t.Errorf("AvgByType.Flowrate[Pump] = %v, want 127.75", v)
	}
	if v, _ := s.AvgByType.Flowrate.Get("Valve"); v != 80.3 {
		t.Errorf("AvgByType.Flowrate[Valve] = %v, want 80.3", v)
	}
}

func TestSummarize_SingleRecord(t *testing.T) {
	s, err := Summarize([]EquipmentRecord{
		{Name: "HX-1", EquipmentType: "Heat Exchanger", Flowrate: 42.125, Pressure: 3.5, Temperature: 140},
	})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if s.TotalCount != 1 {
		t.Errorf("TotalCount = %d, want 1", s.TotalCount)
	}
	// Single record: avg == min == max, rounded.
	if s.AvgFlowrate != 42.13 || s.MinFlowrate != 42.13 || s.MaxFlowrate != 42.13 {
		t.Errorf("Flowrate stats = (%v, %v, %v), want all 42.13", s.AvgFlowrate, s.MinFlowrate, s.MaxFlowrate)
	}
}

// TestSummarize_TypeInvariants checks the structural invariants:
// distribution counts sum to total, and every distribution key is
// present in each avg_by_type field map with the correct subgroup mean.
func TestSummarize_TypeInvariants(t *testing.T) {
	records := []EquipmentRecord{
		{Name: "P1", EquipmentType: "Pump", Flowrate: 10, Pressure: 1, Temperature: 100},
		{Name: "V1", EquipmentType: "Valve", Flowrate: 20, Pressure: 2, Temperature: 50},
		{Name: "P2", EquipmentType: "Pump", Flowrate: 30, Pressure: 3, Temperature: 200},
		{Name: "C1", EquipmentType: "Compressor", Flowrate: 40, Pressure: 4, Temperature: 25},
		{Name: "V2", EquipmentType: "Valve", Flowrate: 60, Pressure: 6, Temperature: 70},
	}

	s, err := Summarize(records)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	if got := s.TypeDistribution.Total(); got != s.TotalCount {
		t.Errorf("sum of distribution = %d, want TotalCount %d", got, s.TotalCount)
	}

	for _, typ := range s.TypeDistribution.Keys() {
		count, _ := s.TypeDistribution.Get(typ)

		var sumFlow, sumPress, sumTemp float64
		for _, r := range records {
			if r.EquipmentType == typ {
				sumFlow += r.Flowrate
				sumPress += r.Pressure
				sumTemp += r.Temperature
			}
		}

		for _, check := range []struct {
			field string
			means *TypeMeans
			want  float64
		}{
			{"Flowrate", s.AvgByType.Flowrate, Round2(sumFlow / float64(count))},
			{"Pressure", s.AvgByType.Pressure, Round2(sumPress / float64(count))},
			{"Temperature", s.AvgByType.Temperature, Round2(sumTemp / float64(count))},
		} {
			got, ok := check.means.Get(typ)
			if !ok {
				t.Errorf("AvgByType.%s missing type %q", check.field, typ)
				continue
			}
			if got != check.want {
				t.Errorf("AvgByType.%s[%q] = %v, want %v", check.field, typ, got, check.want)
			}
		}
	}
}

// TestSummarize_TypesAreExactMatch pins the grouping rule: no case
// folding, no extra normalization beyond the validator's trimming.
func TestSummarize_TypesAreExactMatch(t *testing.T) {
	s, err := Summarize([]EquipmentRecord{
		{Name: "P1", EquipmentType: "Pump", Flowrate: 1, Pressure: 1, Temperature: 1},
		{Name: "P2", EquipmentType: "pump", Flowrate: 2, Pressure: 2, Temperature: 2},
	})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if s.TypeDistribution.Len() != 2 {
		t.Errorf("distinct types = %d, want 2 (exact string match)", s.TypeDistribution.Len())
	}
}

// TestSummarize_Deterministic verifies that repeat summarization of
// the same sequence is byte-identical, map ordering included.
func TestSummarize_Deterministic(t *testing.T) {
	records := []EquipmentRecord{
		{Name: "V1", EquipmentType: "Valve", Flowrate: 1, Pressure: 2, Temperature: 3},
		{Name: "P1", EquipmentType: "Pump", Flowrate: 4, Pressure: 5, Temperature: 6},
		{Name: "C1", EquipmentType: "Compressor", Flowrate: 7, Pressure: 8, Temperature: 9},
		{Name: "V2", EquipmentType: "Valve", Flowrate: 10, Pressure: 11, Temperature: 12},
	}

	first, err := Summarize(records)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	second, err := Summarize(records)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}

	a, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	b, err := json.Marshal(second)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(a) != string(b) {
		t.Errorf("summaries differ:\n%s\n%s", a, b)
	}

	// First-seen order, not alphabetical.
	if got := first.TypeDistribution.Keys(); got[0] != "Valve" || got[1] != "Pump" || got[2] != "Compressor" {
		t.Errorf("type order = %v, want [Valve Pump Compressor]", got)
	}
}

func TestSummarize_MinMaxFirstOccurrenceWins(t *testing.T) {
	s, err := Summarize([]EquipmentRecord{
		{Name: "A", EquipmentType: "T", Flowrate: 5, Pressure: 5, Temperature: 5},
		{Name: "B", EquipmentType: "T", Flowrate: 5, Pressure: 5, Temperature: 5},
	})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if s.MinFlowrate != 5 || s.MaxFlowrate != 5 {
		t.Errorf("Flowrate range = [%v, %v], want [5, 5]", s.MinFlowrate, s.MaxFlowrate)
	}
}

// ============================================================================
// Rounding Tests
// ============================================================================

// TestRound2 pins the rounding rule: two decimals, halves away from
// zero. The half cases use values exactly representable in binary so
// the rule (not float representation) is what is under test.
func TestRound2(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{0, 0},
		{1.234, 1.23},
		{1.236, 1.24},
		{0.125, 0.13},   // half, away from zero
		{0.375, 0.38},   // half, away from zero
		{-0.125, -0.13}, // half, away from zero (negative)
		{-1.236, -1.24},
		{111.9333333, 111.93},
		{2.5, 2.5},
		{100, 100},
	}

	for _, tt := range tests {
		if got := Round2(tt.in); got != tt.want {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
