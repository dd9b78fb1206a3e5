package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// JSONStyle controls how a tree is written back as JSON
type JSONStyle struct {
	Indent          string
	TrailingNewline bool
}

// DefaultJSONStyle is used for documents that do not exist yet
var DefaultJSONStyle = JSONStyle{Indent: "  ", TrailingNewline: true}

// DetectJSONStyle infers indentation and trailing newline from existing bytes.
// A document written on a single line stays compact, unless it is an empty
// object or array and so shows no layout at all.
func DetectJSONStyle(data []byte) JSONStyle {
	style := DefaultJSONStyle
	if len(data) == 0 {
		return style
	}
	style.TrailingNewline = bytes.HasSuffix(data, []byte("\n"))

	body := bytes.TrimSpace(data)
	if !bytes.Contains(body, []byte("\n")) && len(bytes.Join(bytes.Fields(body), nil)) > 2 {
		style.Indent = ""
		return style
	}

	for _, line := range strings.Split(string(data), "\n")[1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" || len(trimmed) == len(line) {
			continue
		}
		style.Indent = line[:len(line)-len(trimmed)]
		break
	}
	return style
}

// DecodeJSON parses data into a tree, keeping object key order and number literals
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSONValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, fmt.Errorf("unexpected content after top-level value")
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return Value{}, fmt.Errorf("object key is not a string: %v", keyTok)
				}
				val, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				m.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ObjectValue(m), nil
		case '[':
			elems := []Value{}
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return Value{}, err
				}
				elems = append(elems, val)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, err
			}
			return ArrayValue(elems...), nil
		}
		return Value{}, fmt.Errorf("unexpected delimiter %v", t)
	case string:
		return StringValue(t), nil
	case json.Number:
		return NumberValue(t.String()), nil
	case bool:
		return BoolValue(t), nil
	case nil:
		return NullValue(), nil
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}

// EncodeJSON writes v using style
func EncodeJSON(v Value, style JSONStyle) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v, style.Indent, 0); err != nil {
		return nil, err
	}
	if style.TrailingNewline {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// EncodeJSONCompact writes v on a single line
func EncodeJSONCompact(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, v, "", 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v Value, indent string, level int) error {
	newline := func(l int) {
		if indent == "" {
			return
		}
		buf.WriteByte('\n')
		buf.WriteString(strings.Repeat(indent, l))
	}
	sep := ":"
	if indent != "" {
		sep = ": "
	}

	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		if v.b {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case Number:
		buf.WriteString(v.num)
	case String:
		writeJSONString(buf, v.s)
	case Opaque:
		out, err := json.Marshal(v.opaque)
		if err != nil {
			return err
		}
		buf.Write(out)
	case Array:
		if len(v.arr) == 0 {
			buf.WriteString("[]")
			return nil
		}
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(level + 1)
			if err := writeJSON(buf, e, indent, level+1); err != nil {
				return err
			}
		}
		newline(level)
		buf.WriteByte(']')
	case Object:
		if v.obj.Len() == 0 {
			buf.WriteString("{}")
			return nil
		}
		buf.WriteByte('{')
		for i, k := range v.obj.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			newline(level + 1)
			writeJSONString(buf, k)
			buf.WriteString(sep)
			child, _ := v.obj.Get(k)
			if err := writeJSON(buf, child, indent, level+1); err != nil {
				return err
			}
		}
		newline(level)
		buf.WriteByte('}')
	}
	return nil
}

// writeJSONString quotes s without HTML escaping; hook commands are full of && and >.
func writeJSONString(buf *bytes.Buffer, s string) {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	buf.Write(bytes.TrimRight(tmp.Bytes(), "\n"))
}
