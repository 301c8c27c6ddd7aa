package render

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/goliatone/go-modelview/pkg/escape"
	"github.com/goliatone/go-modelview/pkg/model"
)

// JSON serializes a model recursively, used when the model has no
// template or when JSON output is requested explicitly. Field exposure
// goes through the same IsSendable predicate as template rendering, so
// the two output paths can never disagree about what leaves the server.
func JSON(m model.Model, resolver model.Resolver, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSONValue(&buf, model.ModelVal{M: m}, resolver, pretty, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func jsonIndent(buf *bytes.Buffer, pretty bool, depth int) {
	if !pretty {
		return
	}
	buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}

func writeJSONString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	escape.JSONString(buf, s)
	buf.WriteByte('"')
}

func writeJSONValue(buf *bytes.Buffer, v model.Value, resolver model.Resolver, pretty bool, depth int) error {
	switch val := v.(type) {
	case model.Null:
		buf.WriteString("null")
	case model.Scalar:
		buf.WriteString(val.Literal)
	case model.Text:
		writeJSONString(buf, val.S)
	case model.RouteVal:
		writeJSONString(buf, val.Path)
	case model.HTMLVal:
		writeJSONString(buf, val.Markup)
	case model.Sequence:
		buf.WriteByte('[')
		for i, item := range val.Items {
			if i > 0 {
				buf.WriteByte(',')
			}
			jsonIndent(buf, pretty, depth+1)
			if err := writeJSONValue(buf, item, resolver, pretty, depth+1); err != nil {
				return err
			}
		}
		if len(val.Items) > 0 {
			jsonIndent(buf, pretty, depth)
		}
		buf.WriteByte(']')
	case model.Mapping:
		buf.WriteByte('{')
		for i, pair := range val.Pairs {
			if i > 0 {
				buf.WriteByte(',')
			}
			jsonIndent(buf, pretty, depth+1)
			writeJSONString(buf, pair.Key)
			buf.WriteByte(':')
			if pretty {
				buf.WriteByte(' ')
			}
			if err := writeJSONValue(buf, pair.Val, resolver, pretty, depth+1); err != nil {
				return err
			}
		}
		if len(val.Pairs) > 0 {
			jsonIndent(buf, pretty, depth)
		}
		buf.WriteByte('}')
	case model.ModelVal:
		return writeJSONModel(buf, val.M, resolver, pretty, depth)
	default:
		return fmt.Errorf("render: unhandled JSON value %T", v)
	}
	return nil
}

func writeJSONModel(buf *bytes.Buffer, m model.Model, resolver model.Resolver, pretty bool, depth int) error {
	desc := m.Descriptor()
	fields := desc.Fields()

	indices := make([]int, 0, len(fields))
	for i := range fields {
		if fields[i].IsSendable() {
			indices = append(indices, i)
		}
	}
	if pretty {
		sort.Slice(indices, func(a, b int) bool {
			return fields[indices[a]].Name < fields[indices[b]].Name
		})
	}

	buf.WriteByte('{')
	for out, i := range indices {
		f := &fields[i]
		if out > 0 {
			buf.WriteByte(',')
		}
		jsonIndent(buf, pretty, depth+1)
		writeJSONString(buf, f.Name)
		buf.WriteByte(':')
		if pretty {
			buf.WriteByte(' ')
		}
		v, err := resolver.Resolve(m, f)
		if err != nil {
			return err
		}
		if err := writeJSONValue(buf, v, resolver, pretty, depth+1); err != nil {
			return err
		}
	}
	if len(indices) > 0 {
		jsonIndent(buf, pretty, depth)
	}
	buf.WriteByte('}')
	return nil
}
