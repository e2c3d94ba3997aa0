// Package hcl reads and writes HCL native syntax as value trees.
//
// Attributes become keys; a block becomes a nested tree under its type, one
// level deeper per label, so
//
//	server "main" { port = 8080 }
//
// reads as {server: {main: {port: 8080}}}. Expressions are evaluated without
// variables or functions. On output every tree is written as a block.
package hcl

import (
	"fmt"
	"math"
	"math/big"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"

	"github.com/DavidNery/ConfigHelper/value"
)

// Format returns the HCL format.
func Format() Driver { return Driver{} }

// Driver is the HCL format.
type Driver struct{}

func (Driver) Name() string         { return "hcl" }
func (Driver) Extensions() []string { return []string{".hcl"} }

func (Driver) Parse(b []byte) (value.Value, error) { return Parse(b, "config.hcl") }

func (Driver) Emit(t *value.Tree) ([]byte, error) { return Emit(t) }

// Parse decodes an HCL body. filename is used in diagnostics only.
func Parse(b []byte, filename string) (value.Value, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(b, filename)
	if diags.HasErrors() {
		return value.Value{}, fmt.Errorf("HCL parse error: %s", diags.Error())
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return value.Value{}, fmt.Errorf("HCL parse error: unexpected body type %T", file.Body)
	}
	t, err := bodyTree(body, b)
	if err != nil {
		return value.Value{}, err
	}
	return value.Of(t), nil
}

type item struct {
	pos   int
	attr  *hclsyntax.Attribute
	block *hclsyntax.Block
}

func bodyTree(body *hclsyntax.Body, src []byte) (*value.Tree, error) {
	items := make([]item, 0, len(body.Attributes)+len(body.Blocks))
	for _, a := range body.Attributes {
		items = append(items, item{pos: a.SrcRange.Start.Byte, attr: a})
	}
	for _, b := range body.Blocks {
		items = append(items, item{pos: b.TypeRange.Start.Byte, block: b})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].pos < items[j].pos })

	t := value.NewTree()
	for _, it := range items {
		if it.attr != nil {
			if t.Has(it.attr.Name) {
				return nil, fmt.Errorf("%s: duplicate key %q", it.attr.NameRange, it.attr.Name)
			}
			v, err := exprValue(it.attr.Expr, src)
			if err != nil {
				return nil, err
			}
			t = t.With(it.attr.Name, v)
			continue
		}
		sub, err := bodyTree(it.block.Body, src)
		if err != nil {
			return nil, err
		}
		path := append([]string{it.block.Type}, it.block.Labels...)
		t, err = insertBlock(t, path, sub)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", it.block.TypeRange, err)
		}
	}
	return t, nil
}

func insertBlock(t *value.Tree, path []string, body *value.Tree) (*value.Tree, error) {
	key := path[0]
	existing, ok := t.Get(key)
	if len(path) == 1 {
		if ok {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		return t.With(key, value.Of(body)), nil
	}
	var sub *value.Tree
	if ok {
		var isTree bool
		if sub, isTree = existing.AsTree(); !isTree {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
	}
	sub, err := insertBlock(sub, path[1:], body)
	if err != nil {
		return nil, err
	}
	return t.With(key, value.Of(sub)), nil
}

func exprValue(e hclsyntax.Expression, src []byte) (value.Value, error) {
	switch x := e.(type) {
	case *hclsyntax.TupleConsExpr:
		items := make([]value.Value, 0, len(x.Exprs))
		for _, ie := range x.Exprs {
			v, err := exprValue(ie, src)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, v)
		}
		return value.List(items...), nil
	case *hclsyntax.ObjectConsExpr:
		t := value.NewTree()
		for _, it := range x.Items {
			kv, diags := it.KeyExpr.Value(nil)
			if diags.HasErrors() {
				return value.Value{}, fmt.Errorf("HCL object key: %s", diags.Error())
			}
			ks, err := convert.Convert(kv, cty.String)
			if err != nil || ks.IsNull() || !ks.IsKnown() {
				return value.Value{}, fmt.Errorf("%s: object key must be a string", it.KeyExpr.Range())
			}
			key := ks.AsString()
			if t.Has(key) {
				return value.Value{}, fmt.Errorf("%s: duplicate key %q", it.KeyExpr.Range(), key)
			}
			v, err := exprValue(it.ValueExpr, src)
			if err != nil {
				return value.Value{}, err
			}
			t = t.With(key, v)
		}
		return value.Of(t), nil
	}

	v, diags := e.Value(nil)
	if diags.HasErrors() {
		return value.Value{}, fmt.Errorf("HCL expression: %s", diags.Error())
	}
	if v.Type() == cty.Number && v.IsKnown() && !v.IsNull() {
		return numberValue(v, looksFloat(e.Range(), src)), nil
	}
	return ctyValue(v)
}

// looksFloat reports whether the literal text of r is written as a float.
func looksFloat(r hcl.Range, src []byte) bool {
	if r.Start.Byte < 0 || r.End.Byte > len(src) || r.Start.Byte >= r.End.Byte {
		return false
	}
	text := string(src[r.Start.Byte:r.End.Byte])
	return strings.ContainsAny(text, ".eE")
}

func numberValue(v cty.Value, float bool) value.Value {
	bf := v.AsBigFloat()
	if !float && bf.IsInt() {
		if i, acc := bf.Int64(); acc == big.Exact {
			return value.Int(i)
		}
	}
	f, _ := bf.Float64()
	return value.Float(f)
}

func ctyValue(v cty.Value) (value.Value, error) {
	if v.IsNull() {
		return value.Absent(), nil
	}
	if !v.IsKnown() {
		return value.Value{}, fmt.Errorf("HCL value is not known without evaluation context")
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return value.String(v.AsString()), nil
	case ty == cty.Bool:
		return value.Bool(v.True()), nil
	case ty == cty.Number:
		return numberValue(v, false), nil
	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		var items []value.Value
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			iv, err := ctyValue(ev)
			if err != nil {
				return value.Value{}, err
			}
			items = append(items, iv)
		}
		return value.List(items...), nil
	case ty.IsMapType() || ty.IsObjectType():
		var pairs []value.Pair
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			iv, err := ctyValue(ev)
			if err != nil {
				return value.Value{}, err
			}
			pairs = append(pairs, value.Pair{Key: k.AsString(), Value: iv})
		}
		return value.Of(value.NewTree(pairs...)), nil
	}
	return value.Value{}, fmt.Errorf("unsupported HCL value type %s", ty.FriendlyName())
}

// Emit writes t as an HCL body. Keys must be valid HCL identifiers.
func Emit(t *value.Tree) ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	if err := writeBody(f.Body(), t); err != nil {
		return nil, err
	}
	return hclwrite.Format(f.Bytes()), nil
}

func writeBody(body *hclwrite.Body, t *value.Tree) error {
	for k, v := range t.All() {
		if !hclsyntax.ValidIdentifier(k) {
			return fmt.Errorf("key %q is not a valid HCL identifier", k)
		}
		if sub, ok := v.AsTree(); ok {
			blk := body.AppendNewBlock(k, nil)
			if err := writeBody(blk.Body(), sub); err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			continue
		}
		toks, err := valueTokens(v)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		body.SetAttributeRaw(k, toks)
	}
	return nil
}

func valueTokens(v value.Value) (hclwrite.Tokens, error) {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return hclwrite.TokensForValue(cty.StringVal(s)), nil
	case value.KindInt:
		i, _ := v.AsInt()
		return hclwrite.TokensForValue(cty.NumberIntVal(i)), nil
	case value.KindFloat:
		f, _ := v.AsFloat()
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("unsupported float %v", f)
		}
		return hclwrite.Tokens{{Type: hclsyntax.TokenNumberLit, Bytes: []byte(value.FormatFloat(f))}}, nil
	case value.KindBool:
		b, _ := v.AsBool()
		return hclwrite.TokensForValue(cty.BoolVal(b)), nil
	case value.KindList:
		items, _ := v.AsList()
		elems := make([]hclwrite.Tokens, 0, len(items))
		for i, it := range items {
			toks, err := valueTokens(it)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			elems = append(elems, toks)
		}
		return hclwrite.TokensForTuple(elems), nil
	case value.KindTree:
		t, _ := v.AsTree()
		attrs := make([]hclwrite.ObjectAttrTokens, 0, t.Len())
		for k, ev := range t.All() {
			toks, err := valueTokens(ev)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			name := hclwrite.TokensForValue(cty.StringVal(k))
			if hclsyntax.ValidIdentifier(k) {
				name = hclwrite.TokensForIdentifier(k)
			}
			attrs = append(attrs, hclwrite.ObjectAttrTokens{Name: name, Value: toks})
		}
		return hclwrite.TokensForObject(attrs), nil
	default:
		return hclwrite.TokensForValue(cty.NullVal(cty.DynamicPseudoType)), nil
	}
}
