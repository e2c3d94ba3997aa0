// Package yaml reads and writes YAML documents as value trees using
// gopkg.in/yaml.v3 nodes.
//
// Decoding goes through yaml.Node rather than map[string]any so mapping
// order survives and duplicate keys are reported with their positions.
package yaml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	yamlv3 "gopkg.in/yaml.v3"

	"github.com/DavidNery/ConfigHelper/value"
)

// DuplicateKeyError reports a duplicate key found in a YAML mapping with both
// the first occurrence position and the duplicate occurrence position.
type DuplicateKeyError struct {
	Key       string
	FirstLine int
	FirstCol  int
	Line      int
	Col       int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate YAML key %q at %d:%d (first at %d:%d)", e.Key, e.Line, e.Col, e.FirstLine, e.FirstCol)
}

// Format returns the YAML format.
func Format() Driver { return Driver{} }

// Driver is the YAML format.
type Driver struct{}

func (Driver) Name() string         { return "yaml" }
func (Driver) Extensions() []string { return []string{".yml", ".yaml"} }

// Parse decodes the first document of b. Anchors and aliases are resolved.
func (Driver) Parse(b []byte) (value.Value, error) {
	return Parse(b)
}

// Parse decodes the first YAML document of b into a value.
func Parse(b []byte) (value.Value, error) {
	var root yamlv3.Node
	if err := yamlv3.NewDecoder(bytes.NewReader(b)).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return value.Absent(), nil
		}
		return value.Value{}, err
	}
	return (&decoder{}).value(&root)
}

// MaxAliasNodes caps the number of nodes produced by expanding aliases.
// yaml.v3 only enforces its alias ratio when decoding into Go values, not
// into yaml.Node.
const MaxAliasNodes = 1 << 20

// ErrAliasExpansion is returned when aliases expand past MaxAliasNodes.
var ErrAliasExpansion = errors.New("yaml: alias expansion exceeds node limit")

type decoder struct {
	aliasDepth int
	expanded   int
}

func (d *decoder) value(n *yamlv3.Node) (value.Value, error) {
	if d.aliasDepth > 0 {
		d.expanded++
		if d.expanded > MaxAliasNodes {
			return value.Value{}, ErrAliasExpansion
		}
	}
	switch n.Kind {
	case yamlv3.DocumentNode:
		if len(n.Content) == 0 {
			return value.Absent(), nil
		}
		return d.value(n.Content[0])
	case yamlv3.AliasNode:
		d.aliasDepth++
		v, err := d.value(n.Alias)
		d.aliasDepth--
		return v, err
	case yamlv3.MappingNode:
		pairs := make([]value.Pair, 0, len(n.Content)/2)
		first := make(map[string][2]int, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k := n.Content[i]
			if k.ShortTag() == "!!merge" {
				return value.Value{}, fmt.Errorf("merge key at %d:%d is not supported", k.Line, k.Column)
			}
			key := k.Value
			if pos, dup := first[key]; dup {
				return value.Value{}, &DuplicateKeyError{Key: key, FirstLine: pos[0], FirstCol: pos[1], Line: k.Line, Col: k.Column}
			}
			first[key] = [2]int{k.Line, k.Column}
			v, err := d.value(n.Content[i+1])
			if err != nil {
				return value.Value{}, err
			}
			pairs = append(pairs, value.Pair{Key: key, Value: v})
		}
		return value.Of(value.NewTree(pairs...)), nil
	case yamlv3.SequenceNode:
		items := make([]value.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := d.value(c)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, v)
		}
		return value.List(items...), nil
	case yamlv3.ScalarNode:
		return scalarToValue(n)
	default:
		return value.Absent(), nil
	}
}

func scalarToValue(n *yamlv3.Node) (value.Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return value.Absent(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return value.String(n.Value), nil
		}
		return value.Bool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return value.Value{}, fmt.Errorf("integer %q at %d:%d: %w", n.Value, n.Line, n.Column, err)
		}
		return value.Int(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return value.Value{}, fmt.Errorf("float %q at %d:%d: %w", n.Value, n.Line, n.Column, err)
		}
		return value.Float(f), nil
	default:
		return value.String(n.Value), nil
	}
}

// Emit encodes t with two-space indentation, keys in tree order.
func (Driver) Emit(t *value.Tree) ([]byte, error) {
	return Emit(t)
}

// Emit encodes t as a YAML document.
func Emit(t *value.Tree) ([]byte, error) {
	var buf bytes.Buffer
	enc := yamlv3.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(treeNode(t)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func treeNode(t *value.Tree) *yamlv3.Node {
	n := &yamlv3.Node{Kind: yamlv3.MappingNode, Tag: "!!map"}
	for k, v := range t.All() {
		n.Content = append(n.Content,
			&yamlv3.Node{Kind: yamlv3.ScalarNode, Tag: "!!str", Value: k},
			valueNode(v))
	}
	return n
}

func valueNode(v value.Value) *yamlv3.Node {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return &yamlv3.Node{Kind: yamlv3.ScalarNode, Tag: "!!str", Value: s}
	case value.KindInt:
		i, _ := v.AsInt()
		return &yamlv3.Node{Kind: yamlv3.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(i, 10)}
	case value.KindFloat:
		f, _ := v.AsFloat()
		return &yamlv3.Node{Kind: yamlv3.ScalarNode, Tag: "!!float", Value: formatFloat(f)}
	case value.KindBool:
		b, _ := v.AsBool()
		return &yamlv3.Node{Kind: yamlv3.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}
	case value.KindList:
		n := &yamlv3.Node{Kind: yamlv3.SequenceNode, Tag: "!!seq"}
		items, _ := v.AsList()
		for _, it := range items {
			n.Content = append(n.Content, valueNode(it))
		}
		return n
	case value.KindTree:
		t, _ := v.AsTree()
		return treeNode(t)
	default:
		return &yamlv3.Node{Kind: yamlv3.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	return value.FormatFloat(f)
}
