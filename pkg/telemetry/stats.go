package telemetry

import (
	"math"

	"github.com/mfreeman451/firmwave/pkg/models"
)

// Stats aggregates measurements per type. Input is expected newest first,
// so the first reading of each type is its latest.
func Stats(measurements []models.Measurement) map[string]models.MeasurementStats {
	stats := make(map[string]models.MeasurementStats)
	sums := make(map[string]float64)

	for i := range measurements {
		m := &measurements[i]

		st, ok := stats[m.Type]
		if !ok {
			st = models.MeasurementStats{
				Min: math.Inf(1),
				Max: math.Inf(-1),
				Latest: &models.LatestValue{
					Value:     m.Value,
					Unit:      m.Unit,
					Timestamp: m.Timestamp,
				},
			}
		}

		st.Count++
		st.Min = math.Min(st.Min, m.Value)
		st.Max = math.Max(st.Max, m.Value)
		sums[m.Type] += m.Value

		stats[m.Type] = st
	}

	for typ, st := range stats {
		st.Avg = sums[typ] / float64(st.Count)
		stats[typ] = st
	}

	return stats
}

// GroupWeather folds weather rows into one sample per (device, timestamp),
// preserving the order in which samples first appear.
func GroupWeather(rows []models.Measurement) []models.WeatherSample {
	type key struct {
		mac string
		ts  int64
	}

	index := make(map[key]int)
	samples := make([]models.WeatherSample, 0)

	for i := range rows {
		m := &rows[i]
		k := key{mac: m.DeviceID, ts: m.Timestamp.UnixNano()}

		pos, ok := index[k]
		if !ok {
			sample := models.WeatherSample{
				Device:    models.DeviceRef{MAC: m.DeviceID},
				Timestamp: m.Timestamp,
				Data:      make(map[string]models.WeatherValue),
			}

			if m.Device != nil {
				sample.Device = *m.Device
			}

			samples = append(samples, sample)
			pos = len(samples) - 1
			index[k] = pos
		}

		samples[pos].Data[m.Type] = models.WeatherValue{Value: m.Value, Unit: m.Unit}
	}

	return samples
}
