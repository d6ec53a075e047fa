// Package jsontree decodes JSON into an ordered tree of tagged nodes.
//
// encoding/json decodes objects into Go maps, which lose member order. The
// profile locator needs "first match in document order" semantics when it
// walks page-state blobs, so objects here keep their members as a slice.
package jsontree

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// Kind identifies the JSON type of a Node.
type Kind int

// Node kinds.
const (
	Null Kind = iota
	Bool
	Number
	String
	Array
	Object
)

func (k Kind) String() string {
	switch k {
	case Null:
		return "null"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case String:
		return "string"
	case Array:
		return "array"
	case Object:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

const maxDepth = 1000

var errTooDeep = errors.New("json nesting too deep")

// Member is one key/value pair of an object node.
type Member struct {
	Value *Node
	Key   string
}

// Node is a decoded JSON value. A nil *Node behaves as an absent value for
// every accessor.
type Node struct {
	text    string // string value or number literal
	members []Member
	elems   []*Node
	Kind    Kind
	b       bool
}

// Parse decodes a single JSON value. Trailing non-whitespace data is an error.
func Parse(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	n, err := parseValue(dec, 0)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}
	return n, nil
}

// ParseString is Parse for string input.
func ParseString(s string) (*Node, error) {
	return Parse([]byte(s))
}

func parseValue(dec *json.Decoder, depth int) (*Node, error) {
	if depth > maxDepth {
		return nil, errTooDeep
	}
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch v := tok.(type) {
	case nil:
		return &Node{Kind: Null}, nil
	case bool:
		return &Node{Kind: Bool, b: v}, nil
	case json.Number:
		return &Node{Kind: Number, text: v.String()}, nil
	case string:
		return &Node{Kind: String, text: v}, nil
	case json.Delim:
		switch v {
		case '{':
			n := &Node{Kind: Object}
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := parseValue(dec, depth+1)
				if err != nil {
					return nil, err
				}
				n.members = append(n.members, Member{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil { // closing '}'
				return nil, err
			}
			return n, nil
		case '[':
			n := &Node{Kind: Array}
			for dec.More() {
				val, err := parseValue(dec, depth+1)
				if err != nil {
					return nil, err
				}
				n.elems = append(n.elems, val)
			}
			if _, err := dec.Token(); err != nil { // closing ']'
				return nil, err
			}
			return n, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// IsObject reports whether n is an object.
func (n *Node) IsObject() bool { return n != nil && n.Kind == Object }

// IsArray reports whether n is an array.
func (n *Node) IsArray() bool { return n != nil && n.Kind == Array }

// IsNull reports whether n is absent or JSON null.
func (n *Node) IsNull() bool { return n == nil || n.Kind == Null }

// Get returns the value of key in an object. When a key repeats, the last
// occurrence wins, matching encoding/json.
func (n *Node) Get(key string) *Node {
	if !n.IsObject() {
		return nil
	}
	for i := len(n.members) - 1; i >= 0; i-- {
		if n.members[i].Key == key {
			return n.members[i].Value
		}
	}
	return nil
}

// Has reports whether an object contains key, regardless of its value.
func (n *Node) Has(key string) bool {
	if !n.IsObject() {
		return false
	}
	for _, m := range n.members {
		if m.Key == key {
			return true
		}
	}
	return false
}

// Index returns element i of an array. Negative indexes count from the end.
func (n *Node) Index(i int) *Node {
	if !n.IsArray() {
		return nil
	}
	if i < 0 {
		i += len(n.elems)
	}
	if i < 0 || i >= len(n.elems) {
		return nil
	}
	return n.elems[i]
}

// Len returns the number of members or elements.
func (n *Node) Len() int {
	switch {
	case n.IsObject():
		return len(n.members)
	case n.IsArray():
		return len(n.elems)
	default:
		return 0
	}
}

// Members returns the members of an object in document order.
func (n *Node) Members() []Member {
	if !n.IsObject() {
		return nil
	}
	return n.members
}

// Elements returns the elements of an array.
func (n *Node) Elements() []*Node {
	if !n.IsArray() {
		return nil
	}
	return n.elems
}

// At walks a path of object keys (string) and array indexes (int).
// It returns nil as soon as a step is missing.
func (n *Node) At(path ...any) *Node {
	cur := n
	for _, step := range path {
		switch s := step.(type) {
		case string:
			cur = cur.Get(s)
		case int:
			cur = cur.Index(s)
		default:
			return nil
		}
		if cur == nil {
			return nil
		}
	}
	return cur
}

// Str returns the value of a string node.
func (n *Node) Str() (string, bool) {
	if n == nil || n.Kind != String {
		return "", false
	}
	return n.text, true
}

// BoolValue returns the value of a bool node.
func (n *Node) BoolValue() (value, ok bool) {
	if n == nil || n.Kind != Bool {
		return false, false
	}
	return n.b, true
}

// Int returns a number node as int64. Fractional numbers are truncated;
// values outside the int64 range are rejected.
func (n *Node) Int() (int64, bool) {
	if n == nil || n.Kind != Number {
		return 0, false
	}
	if i, err := strconv.ParseInt(n.text, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(n.text, 64)
	if err != nil || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

// Float returns a number node as float64.
func (n *Node) Float() (float64, bool) {
	if n == nil || n.Kind != Number {
		return 0, false
	}
	f, err := strconv.ParseFloat(n.text, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Interface converts n into the values encoding/json would produce:
// map[string]any, []any, string, float64, bool or nil.
func (n *Node) Interface() any {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case Bool:
		return n.b
	case Number:
		f, _ := strconv.ParseFloat(n.text, 64) //nolint:errcheck // literal came from the decoder
		return f
	case String:
		return n.text
	case Array:
		out := make([]any, len(n.elems))
		for i, e := range n.elems {
			out[i] = e.Interface()
		}
		return out
	case Object:
		out := make(map[string]any, len(n.members))
		for _, m := range n.members {
			out[m.Key] = m.Value.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes n, keeping object member order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := n.encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (n *Node) encode(buf *bytes.Buffer) error {
	if n == nil {
		buf.WriteString("null")
		return nil
	}
	switch n.Kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(n.b))
	case Number:
		buf.WriteString(n.text)
	case String:
		b, err := json.Marshal(n.text)
		if err != nil {
			return err
		}
		buf.Write(b)
	case Array:
		buf.WriteByte('[')
		for i, e := range n.elems {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := e.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, m := range n.members {
			if i > 0 {
				buf.WriteByte(',')
			}
			k, err := json.Marshal(m.Key)
			if err != nil {
				return err
			}
			buf.Write(k)
			buf.WriteByte(':')
			if err := m.Value.encode(buf); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	}
	return nil
}
