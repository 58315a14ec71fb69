package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRankings(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []ranking
	}{
		{
			name: "rankings object",
			raw:  `{"rankings": [{"id": "a", "score": 9}, {"id": "b", "score": 4.5}]}`,
			want: []ranking{{ID: "a", Score: 9, HasScore: true}, {ID: "b", Score: 4.5, HasScore: true}},
		},
		{
			name: "bare array",
			raw:  `[{"id": "b"}, {"id": "a"}]`,
			want: []ranking{{ID: "b"}, {ID: "a"}},
		},
		{
			name: "other list key",
			raw:  `{"note": "ok", "ordered": [{"id": "x", "score": "7"}]}`,
			want: []ranking{{ID: "x", Score: 7, HasScore: true}},
		},
		{
			name: "results preferred over other keys",
			raw:  `{"alpha": [{"id": "z"}], "results": [{"id": "y"}]}`,
			want: []ranking{{ID: "y"}},
		},
		{
			name: "object in prose",
			raw:  "Here is my ranking:\n```json\n{\"rankings\": [{\"id\": \"a\", \"score\": 10}]}\n```\nHope it helps.",
			want: []ranking{{ID: "a", Score: 10, HasScore: true}},
		},
		{
			name: "array in prose",
			raw:  `Sure! [{"id": "q", "score": 3}] is the order.`,
			want: []ranking{{ID: "q", Score: 3, HasScore: true}},
		},
		{
			name: "numeric ids and bare ids",
			raw:  `{"rankings": [{"id": 17}, "c2", 5]}`,
			want: []ranking{{ID: "17"}, {ID: "c2"}, {ID: "5"}},
		},
		{
			name: "items without id skipped",
			raw:  `{"rankings": [{"score": 9}, {"id": ""}, {"id": "ok", "score": null}]}`,
			want: []ranking{{ID: "ok"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := extractRankings(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractRankings_Failures(t *testing.T) {
	for _, raw := range []string{
		"",
		"I cannot rank these items.",
		`{"rankings": []}`,
		`{"rankings": "a, b"}`,
		`{"rankings": [{"id": "a"}`,
		`[{"score": 1}]`,
	} {
		_, err := extractRankings(raw)
		assert.ErrorIs(t, err, errNoRankings, "input %q", raw)
	}
}
