package scoring

import (
	"math"
	"strconv"
	"strings"
)

// scoreKeys are tried in order inside each object.
var scoreKeys = []string{"rating", "score"}

// nestedKeys are the wrapper objects the model has been seen to return,
// checked after the top level.
var nestedKeys = []string{"data", "ml_output"}

// extractScore finds the first finite score in a decoded response body.
//
//	{"rating": 4.2}
//	{"score": "0.93"}
//	{"data": {"score": 0.5}}
//	{"ml_output": {"rating": 3}}
func extractScore(body map[string]any) (float64, bool) {
	if s, ok := scoreIn(body); ok {
		return s, true
	}
	for _, k := range nestedKeys {
		if m, ok := body[k].(map[string]any); ok {
			if s, ok := scoreIn(m); ok {
				return s, true
			}
		}
	}
	return 0, false
}

func scoreIn(m map[string]any) (float64, bool) {
	for _, k := range scoreKeys {
		if s, ok := toFloat(m[k]); ok {
			return s, true
		}
	}
	return 0, false
}

// toFloat accepts JSON numbers and numeric strings. Non-finite values are
// rejected.
func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case string:
		var err error
		f, err = strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
