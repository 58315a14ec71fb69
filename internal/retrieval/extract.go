package retrieval

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
)

var errNoRankings = errors.New("no rankings in scorer output")

// listKeys are the object fields checked first for the ranking list. Any other
// list-valued field is accepted after them, in key order.
var listKeys = []string{"rankings", "results", "items"}

type ranking struct {
	ID       string
	Score    float64
	HasScore bool
}

// extractRankings pulls (id, score) pairs out of free-form scorer output. The
// payload may be surrounded by prose, and may be a bare array or an object
// holding the array under any key.
func extractRankings(raw string) ([]ranking, error) {
	for _, payload := range jsonPayloads(strings.TrimSpace(raw)) {
		v, ok := decodeJSON(payload)
		if !ok {
			continue
		}
		if items := parseRankings(rankingList(v)); len(items) > 0 {
			return items, nil
		}
	}
	return nil, errNoRankings
}

// jsonPayloads returns the whole text followed by its outermost object and
// array spans, whichever starts first tried first.
func jsonPayloads(raw string) []string {
	if raw == "" {
		return nil
	}
	out := []string{raw}

	type span struct{ start, end int }
	var spans []span
	for _, delim := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(raw, delim[0])
		end := strings.LastIndex(raw, delim[1])
		if start >= 0 && end > start {
			spans = append(spans, span{start, end})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	for _, s := range spans {
		if p := raw[s.start : s.end+1]; p != raw {
			out = append(out, p)
		}
	}
	return out
}

func decodeJSON(payload string) (any, bool) {
	dec := json.NewDecoder(bytes.NewReader([]byte(payload)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}
	return v, true
}

func rankingList(v any) []any {
	switch val := v.(type) {
	case []any:
		return val
	case map[string]any:
		for _, k := range listKeys {
			if list, ok := val[k].([]any); ok && len(list) > 0 {
				return list
			}
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if list, ok := val[k].([]any); ok && len(list) > 0 {
				return list
			}
		}
	}
	return nil
}

// parseRankings accepts objects carrying an "id" and an optional "score", or
// bare ids. Anything else is skipped.
func parseRankings(list []any) []ranking {
	var out []ranking
	for _, item := range list {
		switch val := item.(type) {
		case map[string]any:
			id, ok := idString(val["id"])
			if !ok {
				continue
			}
			r := ranking{ID: id}
			r.Score, r.HasScore = scoreValue(val["score"])
			out = append(out, r)
		default:
			if id, ok := idString(val); ok {
				out = append(out, ranking{ID: id})
			}
		}
	}
	return out
}

func idString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		s := strings.TrimSpace(val)
		return s, s != ""
	case json.Number:
		return val.String(), true
	default:
		return "", false
	}
}

func scoreValue(v any) (float64, bool) {
	switch val := v.(type) {
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}
