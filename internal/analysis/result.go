package analysis

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Number is a float that also accepts numeric strings such as "7.5" or "7,5".
type Number float64

func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
		if s == "" {
			*n = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = Number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Result is the analysis object produced by the model, kept verbatim for
// storage and the done event. OverallScore and Stages are read from it
// leniently: a missing field or one of an unexpected type is skipped, never
// an error.
type Result struct {
	OverallScore Number
	Stages       []Stage

	// raw is the compacted object as decoded; nil for results built in code.
	raw json.RawMessage
}

// Stage is the scored part of one conversation phase.
type Stage struct {
	Name  string `json:"name,omitempty"`
	Key   string `json:"key"`
	Score Number `json:"score"`
}

// DecodeResult keeps object as the result and derives the scored fields.
func DecodeResult(object []byte) (Result, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(object, &fields); err != nil {
		return Result{}, err
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, object); err != nil {
		return Result{}, err
	}
	r := Result{raw: compact.Bytes()}
	if v, ok := fields["overallScore"]; ok {
		var n Number
		if json.Unmarshal(v, &n) == nil {
			r.OverallScore = n
		}
	}
	if v, ok := fields["stages"]; ok {
		r.Stages = lenientStages(v)
	}
	return r, nil
}

func lenientStages(raw json.RawMessage) []Stage {
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}
	out := make([]Stage, 0, len(items))
	for _, item := range items {
		var fields map[string]json.RawMessage
		if json.Unmarshal(item, &fields) != nil {
			continue
		}
		var st Stage
		if json.Unmarshal(fields["key"], &st.Key) != nil || st.Key == "" {
			continue
		}
		if json.Unmarshal(fields["score"], &st.Score) != nil {
			continue
		}
		_ = json.Unmarshal(fields["name"], &st.Name)
		out = append(out, st)
	}
	return out
}

// Field returns the raw value stored under key.
func (r Result) Field(key string) (json.RawMessage, bool) {
	if r.raw == nil {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if json.Unmarshal(r.raw, &fields) != nil {
		return nil, false
	}
	v, ok := fields[key]
	return v, ok
}

// Text returns the string stored under key, or "" when absent or not a string.
func (r Result) Text(key string) string {
	v, ok := r.Field(key)
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(v, &s) != nil {
		return ""
	}
	return s
}

// MarshalJSON writes the object as received. Results built in code are
// written from their scored fields.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.raw != nil {
		return r.raw, nil
	}
	return json.Marshal(struct {
		OverallScore Number  `json:"overallScore"`
		Stages       []Stage `json:"stages,omitempty"`
	}{r.OverallScore, r.Stages})
}

func (r *Result) UnmarshalJSON(b []byte) error {
	decoded, err := DecodeResult(b)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

// StageScores projects the stage list into key -> score. Stages without a
// key are skipped; a repeated key keeps the last score.
func StageScores(r Result) map[string]float64 {
	scores := make(map[string]float64, len(r.Stages))
	for _, st := range r.Stages {
		if st.Key == "" {
			continue
		}
		scores[st.Key] = float64(st.Score)
	}
	return scores
}

// Encode marshals a result for storage.
func (r Result) Encode() (json.RawMessage, error) {
	return json.Marshal(r)
}
