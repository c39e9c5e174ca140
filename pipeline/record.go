package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"batchpredict/ml"
)

// Record is one flat JSON observation. Keys keep the order they have in the
// file; a repeated key keeps its first position and its last value.
type Record struct {
	Keys   []string
	Values []any
}

// Frame shapes the record into a single-row table whose columns are the
// record's keys.
func (r Record) Frame() *ml.Frame {
	frame := ml.NewFrame(r.Keys)
	frame.Rows = [][]any{append([]any(nil), r.Values...)}
	return frame
}

// DecodeRecord parses a single JSON object of scalar fields. Numbers decode
// to float64.
func DecodeRecord(r io.Reader) (Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return Record{}, malformed(err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Record{}, malformed(errors.New("expected a JSON object"))
	}

	var rec Record
	positions := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Record{}, malformed(err)
		}
		key, ok := tok.(string)
		if !ok {
			return Record{}, malformed(fmt.Errorf("unexpected token %v", tok))
		}
		tok, err = dec.Token()
		if err != nil {
			return Record{}, malformed(err)
		}
		value, err := scalar(key, tok)
		if err != nil {
			return Record{}, malformed(err)
		}
		if pos, seen := positions[key]; seen {
			rec.Values[pos] = value
			continue
		}
		positions[key] = len(rec.Keys)
		rec.Keys = append(rec.Keys, key)
		rec.Values = append(rec.Values, value)
	}
	if _, err := dec.Token(); err != nil {
		return Record{}, malformed(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Record{}, malformed(errors.New("trailing data after object"))
	}
	return rec, nil
}

func scalar(key string, tok json.Token) (any, error) {
	switch v := tok.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		return f, nil
	case string, bool, nil:
		return v, nil
	default:
		return nil, fmt.Errorf("field %q is not a scalar", key)
	}
}

func malformed(err error) error {
	return fmt.Errorf("%w: %w", ErrMalformedRecord, err)
}

// RecordReader decodes input files written in a configured text encoding.
// A leading byte order mark overrides the configured encoding.
type RecordReader struct {
	encoding encoding.Encoding
}

func NewRecordReader(name string) (*RecordReader, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("input encoding %q: %w", name, err)
	}
	return &RecordReader{encoding: enc}, nil
}

func (rr *RecordReader) ReadFile(path string) (Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer file.Close()

	reader := transform.NewReader(file, unicode.BOMOverride(rr.encoding.NewDecoder()))
	return DecodeRecord(reader)
}
