package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/KaramelBytes/datadash-cli/internal/dataset"
)

type jsonParser struct{}

func (jsonParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".json")
}

type jsonField struct {
	key string
	raw json.RawMessage
}

// Parse accepts a root array, an object with an array-valued "data" field, or a bare
// object (wrapped as one record). Object key order is preserved.
func (jsonParser) Parse(name string, r io.Reader) (*dataset.Dataset, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var root json.RawMessage
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("unexpected end of JSON input")
		}
		return nil, &ParseError{Format: "JSON", Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Format: "JSON", Err: errors.New("unexpected data after top-level value")}
	}

	var records []dataset.Record
	var err error
	switch firstByte(root) {
	case '[':
		records, err = decodeRecords(root)
	case '{':
		var fields []jsonField
		fields, err = decodeObject(root)
		if err != nil {
			break
		}
		if data, ok := arrayField(fields, "data"); ok {
			records, err = decodeRecords(data)
		} else {
			records = []dataset.Record{toRecord(fields)}
		}
	default:
		err = errors.New("root value must be an array or an object")
	}
	if err != nil {
		return nil, &ParseError{Format: "JSON", Err: err}
	}
	return dataset.New(name, dataset.ColumnsFromFirst(records), records), nil
}

func firstByte(raw []byte) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

func arrayField(fields []jsonField, key string) (json.RawMessage, bool) {
	for _, f := range fields {
		if f.key == key && firstByte(f.raw) == '[' {
			return f.raw, true
		}
	}
	return nil, false
}

func decodeRecords(raw []byte) ([]dataset.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []dataset.Record
	for i := 0; dec.More(); i++ {
		var el json.RawMessage
		if err := dec.Decode(&el); err != nil {
			return nil, err
		}
		if firstByte(el) != '{' {
			return nil, fmt.Errorf("element %d is not an object", i)
		}
		fields, err := decodeObject(el)
		if err != nil {
			return nil, err
		}
		out = append(out, toRecord(fields))
	}
	return out, nil
}

func decodeObject(raw []byte) ([]jsonField, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var fields []jsonField
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected object key %v", tok)
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, err
		}
		fields = append(fields, jsonField{key: key, raw: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return fields, nil
}

func toRecord(fields []jsonField) dataset.Record {
	var rec dataset.Record
	for _, f := range fields {
		rec.Set(f.key, toValue(f.raw))
	}
	return rec
}

// toValue keeps JSON strings as strings; nested values become compact JSON text.
func toValue(raw json.RawMessage) dataset.Value {
	switch firstByte(raw) {
	case 'n':
		return dataset.Null()
	case 't':
		return dataset.Text("true")
	case 'f':
		return dataset.Text("false")
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return dataset.Text(string(raw))
		}
		return dataset.Text(s)
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, raw); err != nil {
			return dataset.Text(string(raw))
		}
		return dataset.Text(buf.String())
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return dataset.Text(string(raw))
		}
		f, err := n.Float64()
		if err != nil {
			return dataset.Text(n.String())
		}
		return dataset.Number(f)
	}
}
