package llm

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/joseph-ayodele/invoice-extractor/internal/common"
)

// GreedyParser takes everything from the first '{' to the last '}' in the reply and
// decodes it as one JSON object. Models like to wrap JSON in prose or code fences.
type GreedyParser struct{}

func (GreedyParser) Parse(raw string) (map[string]any, error) {
	obj, ok := greedyObject(raw)
	if !ok {
		return nil, &common.ParseError{Reason: "no JSON object found in response"}
	}
	m, err := decodeObject(obj)
	if err != nil {
		return nil, &common.ParseError{Reason: "invalid JSON object", Err: err}
	}
	return m, nil
}

func greedyObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}

// decodeObject decodes exactly one JSON object, keeping numbers as json.Number so
// the literal the model wrote survives ("12.50" stays "12.50").
func decodeObject(s string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return m, nil
}
