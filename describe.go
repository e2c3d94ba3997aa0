package confighelper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/DavidNery/ConfigHelper/value"
)

// Describe renders the declared keys of obj as {key=value, ...} in
// declaration order. Nested objects and sections render the same way;
// strings are printed unquoted.
func Describe(obj any) string {
	t, err := Unbind(obj)
	if err != nil {
		return fmt.Sprintf("%T{<%v>}", obj, err)
	}
	b := &strings.Builder{}
	describeTree(b, t)
	return b.String()
}

func describeTree(b *strings.Builder, t *value.Tree) {
	b.WriteByte('{')
	i := 0
	for k, v := range t.All() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		describeValue(b, v)
		i++
	}
	b.WriteByte('}')
}

func describeValue(b *strings.Builder, v value.Value) {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		b.WriteString(s)
	case value.KindInt:
		i, _ := v.AsInt()
		b.WriteString(strconv.FormatInt(i, 10))
	case value.KindFloat:
		f, _ := v.AsFloat()
		b.WriteString(value.FormatFloat(f))
	case value.KindBool:
		bv, _ := v.AsBool()
		b.WriteString(strconv.FormatBool(bv))
	case value.KindList:
		items, _ := v.AsList()
		b.WriteByte('[')
		for i, it := range items {
			if i > 0 {
				b.WriteString(", ")
			}
			describeValue(b, it)
		}
		b.WriteByte(']')
	case value.KindTree:
		t, _ := v.AsTree()
		describeTree(b, t)
	default:
		b.WriteString("null")
	}
}
