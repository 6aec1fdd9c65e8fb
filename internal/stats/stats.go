// Package stats derives display counters from the record collection. Totals
// are always computed fresh from the authoritative collection, never cached.
package stats

import "docflow/internal/model"

// Totals are the counters shown on the dashboard.
type Totals struct {
	Processes int `json:"processes"`
	Despachos int `json:"despachos"`
	Paired    int `json:"paired"`
	Total     int `json:"total"`
}

// Compute tallies the collection in a single pass.
func Compute(records []model.Record) Totals {
	var t Totals
	for i := range records {
		switch {
		case records[i].IsProcess():
			t.Processes++
			if records[i].Paired() {
				t.Paired++
			}
		case records[i].IsDespacho():
			t.Despachos++
		}
	}
	t.Total = t.Processes + t.Despachos
	return t
}
