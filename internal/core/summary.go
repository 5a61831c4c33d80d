package core

// summary.go is the aggregation engine: it derives a Summary from a
// validated record sequence in a single pass.
//
// All accumulation happens at full float64 precision; rounding to two
// decimals is applied only when the output struct is built, so
// per-type means never compound rounding error. The rounding rule is
// round-half-away-from-zero, pinned by TestRound2.

import "math"

// fieldAgg accumulates sum/min/max for one numeric field.
type fieldAgg struct {
	sum, min, max float64
}

func (a *fieldAgg) add(v float64, first bool) {
	a.sum += v
	// Strict comparisons keep the first occurrence on ties.
	if first || v < a.min {
		a.min = v
	}
	if first || v > a.max {
		a.max = v
	}
}

// Summarize computes aggregate statistics over records. The input
// order defines the iteration order of type_distribution and
// avg_by_type, so identical inputs always yield identical summaries.
func Summarize(records []EquipmentRecord) (Summary, error) {
	if len(records) == 0 {
		return Summary{}, ErrEmptyDataset
	}

	var flow, press, temp fieldAgg
	dist := NewTypeCounts()
	typeFlow := make(map[string]float64)
	typePress := make(map[string]float64)
	typeTemp := make(map[string]float64)

	for i, rec := range records {
		first := i == 0
		flow.add(rec.Flowrate, first)
		press.add(rec.Pressure, first)
		temp.add(rec.Temperature, first)

		dist.Add(rec.EquipmentType)
		typeFlow[rec.EquipmentType] += rec.Flowrate
		typePress[rec.EquipmentType] += rec.Pressure
		typeTemp[rec.EquipmentType] += rec.Temperature
	}

	n := float64(len(records))
	byType := AvgByType{
		Flowrate:    NewTypeMeans(),
		Pressure:    NewTypeMeans(),
		Temperature: NewTypeMeans(),
	}
	for _, typ := range dist.Keys() {
		count, _ := dist.Get(typ)
		c := float64(count)
		byType.Flowrate.Set(typ, Round2(typeFlow[typ]/c))
		byType.Pressure.Set(typ, Round2(typePress[typ]/c))
		byType.Temperature.Set(typ, Round2(typeTemp[typ]/c))
	}

	return Summary{
		TotalCount: len(records),

		AvgFlowrate:    Round2(flow.sum / n),
		AvgPressure:    Round2(press.sum / n),
		AvgTemperature: Round2(temp.sum / n),

		MinFlowrate:    Round2(flow.min),
		MaxFlowrate:    Round2(flow.max),
		MinPressure:    Round2(press.min),
		MaxPressure:    Round2(press.max),
		MinTemperature: Round2(temp.min),
		MaxTemperature: Round2(temp.max),

		TypeDistribution: dist,
		AvgByType:        byType,
	}, nil
}

// Round2 rounds to two decimal places, halves away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
