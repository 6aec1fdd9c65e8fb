package stats

import (
	"testing"

	"docflow/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestCompute(t *testing.T) {
	tests := []struct {
		name    string
		records []model.Record
		want    Totals
	}{
		{
			name: "empty collection",
			want: Totals{},
		},
		{
			name: "processes only",
			records: []model.Record{
				{Kind: model.KindProcess},
				{Kind: model.KindProcess},
			},
			want: Totals{Processes: 2, Total: 2},
		},
		{
			name: "mixed with pairing",
			records: []model.Record{
				{Kind: model.KindDespacho, ProcessID: "p1"},
				{Kind: model.KindProcess, LinkedDespachoIDs: []string{"d1"}},
				{Kind: model.KindProcess},
				{Kind: model.KindDespacho, ProcessID: "p1"},
			},
			want: Totals{Processes: 2, Despachos: 2, Paired: 1, Total: 4},
		},
		{
			name: "unlinked process is not paired",
			records: []model.Record{
				{Kind: model.KindProcess, LinkedDespachoIDs: []string{}},
			},
			want: Totals{Processes: 1, Total: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compute(tt.records))
		})
	}
}
