// Package json reads and writes JSON documents as value trees using
// github.com/goccy/go-json.
//
// Parsing walks the token stream so object member order is kept and
// duplicate member names are rejected. Numbers without a fraction or
// exponent decode as integers.
package json

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	j "github.com/goccy/go-json"

	"github.com/DavidNery/ConfigHelper/value"
)

// DuplicateKeyError reports an object member name seen twice.
type DuplicateKeyError struct {
	Key    string
	Offset int64
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate JSON key %q near offset %d", e.Key, e.Offset)
}

// Format returns the JSON format.
func Format() Driver { return Driver{} }

// Driver is the JSON format.
type Driver struct{}

func (Driver) Name() string         { return "json" }
func (Driver) Extensions() []string { return []string{".json"} }

func (Driver) Parse(b []byte) (value.Value, error) { return Parse(b) }

func (Driver) Emit(t *value.Tree) ([]byte, error) { return Emit(t) }

// Parse decodes a single JSON document. Blank input yields Absent.
func Parse(b []byte) (value.Value, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return value.Absent(), nil
	}
	dec := j.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	p := &parser{dec: dec}
	tok, err := dec.Token()
	if err != nil {
		return value.Value{}, err
	}
	v, err := p.value(tok)
	if err != nil {
		return value.Value{}, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err != nil {
			return value.Value{}, err
		}
		return value.Value{}, fmt.Errorf("unexpected data after top-level value at offset %d", dec.InputOffset())
	}
	return v, nil
}

type parser struct {
	dec *j.Decoder
}

func (p *parser) next() (j.Token, error) {
	tok, err := p.dec.Token()
	if errors.Is(err, io.EOF) {
		return nil, io.ErrUnexpectedEOF
	}
	return tok, err
}

func (p *parser) value(tok j.Token) (value.Value, error) {
	switch t := tok.(type) {
	case j.Delim:
		switch t {
		case '{':
			return p.object()
		case '[':
			return p.array()
		}
		return value.Value{}, fmt.Errorf("unexpected delimiter %q at offset %d", rune(t), p.dec.InputOffset())
	case string:
		return value.String(t), nil
	case bool:
		return value.Bool(t), nil
	case j.Number:
		return number(string(t))
	case float64:
		return value.Float(t), nil
	case nil:
		return value.Absent(), nil
	}
	return value.Value{}, fmt.Errorf("unexpected token %v at offset %d", tok, p.dec.InputOffset())
}

func (p *parser) object() (value.Value, error) {
	var pairs []value.Pair
	seen := map[string]struct{}{}
	for {
		tok, err := p.next()
		if err != nil {
			return value.Value{}, err
		}
		if d, ok := tok.(j.Delim); ok && d == '}' {
			return value.Of(value.NewTree(pairs...)), nil
		}
		key, ok := tok.(string)
		if !ok {
			return value.Value{}, fmt.Errorf("expected object key at offset %d", p.dec.InputOffset())
		}
		if _, dup := seen[key]; dup {
			return value.Value{}, &DuplicateKeyError{Key: key, Offset: p.dec.InputOffset()}
		}
		seen[key] = struct{}{}
		tok, err = p.next()
		if err != nil {
			return value.Value{}, err
		}
		v, err := p.value(tok)
		if err != nil {
			return value.Value{}, err
		}
		pairs = append(pairs, value.Pair{Key: key, Value: v})
	}
}

func (p *parser) array() (value.Value, error) {
	var items []value.Value
	for {
		tok, err := p.next()
		if err != nil {
			return value.Value{}, err
		}
		if d, ok := tok.(j.Delim); ok && d == ']' {
			return value.List(items...), nil
		}
		v, err := p.value(tok)
		if err != nil {
			return value.Value{}, err
		}
		items = append(items, v)
	}
}

func number(s string) (value.Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return value.Int(i), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return value.Value{}, fmt.Errorf("number %s: %w", s, err)
	}
	return value.Float(f), nil
}

// Emit encodes t as an indented JSON object, members in tree order.
func Emit(t *value.Tree) ([]byte, error) {
	var raw bytes.Buffer
	if err := writeTree(&raw, t); err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := j.Indent(&out, raw.Bytes(), "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeTree(buf *bytes.Buffer, t *value.Tree) error {
	buf.WriteByte('{')
	first := true
	for k, v := range t.All() {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := writeString(buf, k); err != nil {
			return err
		}
		buf.WriteByte(':')
		if err := writeValue(buf, v); err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeValue(buf *bytes.Buffer, v value.Value) error {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return writeString(buf, s)
	case value.KindInt:
		i, _ := v.AsInt()
		buf.WriteString(strconv.FormatInt(i, 10))
	case value.KindFloat:
		f, _ := v.AsFloat()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("unsupported float %v", f)
		}
		buf.WriteString(value.FormatFloat(f))
	case value.KindBool:
		b, _ := v.AsBool()
		buf.WriteString(strconv.FormatBool(b))
	case value.KindList:
		items, _ := v.AsList()
		buf.WriteByte('[')
		for i, it := range items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, it); err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
		}
		buf.WriteByte(']')
	case value.KindTree:
		t, _ := v.AsTree()
		return writeTree(buf, t)
	default:
		buf.WriteString("null")
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	b, err := j.MarshalNoEscape(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
