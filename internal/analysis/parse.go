package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ResultParser turns accumulated model output into a Result.
type ResultParser interface {
	Parse(text string) (Result, error)
}

// ResultParserFunc adapts a function to ResultParser.
type ResultParserFunc func(text string) (Result, error)

func (f ResultParserFunc) Parse(text string) (Result, error) { return f(text) }

// DefaultParser extracts the greedy first-{ to last-} span.
var DefaultParser ResultParser = ResultParserFunc(ParseResult)

// ParseResult decodes the JSON object embedded in text. Any valid JSON
// object is accepted and kept whole.
func ParseResult(text string) (Result, error) {
	span, ok := JSONSpan(text)
	if !ok {
		return Result{}, ErrNoJSON
	}
	r, err := DecodeResult([]byte(span))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return r, nil
}

// ParseInto decodes the span from the first '{' to the last '}' into dst.
func ParseInto(text string, dst any) error {
	span, ok := JSONSpan(text)
	if !ok {
		return ErrNoJSON
	}
	if err := json.Unmarshal([]byte(span), dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	return nil
}

// JSONSpan returns text[first '{' : last '}'+1].
func JSONSpan(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}
