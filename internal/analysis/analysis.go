// Package analysis holds the pure detection functions the alert handlers run
// over measurement history. Callers pass history in ascending collection-time
// order. Fewer than two points never detects anything and never errors, and
// identical inputs always produce identical results.
package analysis

import "github.com/agrosense/fieldalert/internal/model"

// minHistoryPoints is the floor below which no trend is trustworthy.
const minHistoryPoints = 2

func meanMoisture(ms []model.FieldMeasurement) float64 {
	if len(ms) == 0 {
		return 0
	}
	var sum float64
	for _, m := range ms {
		sum += m.SoilMoisture
	}
	return sum / float64(len(ms))
}
