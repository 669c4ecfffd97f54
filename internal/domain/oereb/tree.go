package oereb

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"io"
	"net/url"
	"strconv"
	"strings"
)

// node is one element of the generic tree both wire formats decode into:
// map[string]interface{} for elements with children, []interface{} for
// repeated elements, string or json.Number for leaves.
type node = interface{}

// decodeJSONTree decodes a JSON document keeping numbers as json.Number.
func decodeJSONTree(data []byte) (node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var root node
	if err := dec.Decode(&root); err != nil {
		return nil, err
	}
	return root, nil
}

type xmlFrame struct {
	name     string
	children map[string]interface{}
	text     strings.Builder
}

func (f *xmlFrame) add(name string, v node) {
	if f.children == nil {
		f.children = make(map[string]interface{})
	}
	prev, ok := f.children[name]
	switch {
	case !ok:
		f.children[name] = v
	case isList(prev):
		f.children[name] = append(prev.([]interface{}), v)
	default:
		f.children[name] = []interface{}{prev, v}
	}
}

func (f *xmlFrame) value() node {
	if f.children != nil {
		return f.children
	}
	return percentDecode(strings.TrimSpace(f.text.String()))
}

func isList(v node) bool {
	_, ok := v.([]interface{})
	return ok
}

// decodeXMLTree decodes an XML document into a generic tree keyed by local
// element names (namespace prefixes dropped). Text-only elements collapse to
// their percent-decoded text; attributes and mixed content are ignored. The
// result is a single-key map {rootName: rootValue}.
func decodeXMLTree(data []byte) (node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	root := &xmlFrame{}
	stack := []*xmlFrame{root}
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			stack = append(stack, &xmlFrame{name: t.Name.Local})
		case xml.EndElement:
			if len(stack) < 2 {
				return nil, io.ErrUnexpectedEOF
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			stack[len(stack)-1].add(top.name, top.value())
		case xml.CharData:
			stack[len(stack)-1].text.Write(t)
		}
	}
	if len(stack) != 1 {
		return nil, io.ErrUnexpectedEOF
	}
	if root.children == nil {
		return nil, io.ErrUnexpectedEOF
	}
	return root.children, nil
}

// percentDecode reverses URI component encoding, keeping the raw text when
// it is not validly encoded.
func percentDecode(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	d, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return d
}

// child returns the named member of an element, or nil.
func child(n node, name string) node {
	if m, ok := n.(map[string]interface{}); ok {
		return m[name]
	}
	return nil
}

// childFold is child with a case-insensitive fallback.
func childFold(n node, name string) node {
	m, ok := n.(map[string]interface{})
	if !ok {
		return nil
	}
	if v, ok := m[name]; ok {
		return v
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}

// list coerces a possibly-singular element into a slice. Absent and empty
// elements yield nil.
func list(n node) []node {
	switch v := n.(type) {
	case nil:
		return nil
	case []interface{}:
		return v
	case string:
		if v == "" {
			return nil
		}
	}
	return []node{n}
}

// text returns the scalar content of a leaf.
func text(n node) string {
	switch v := n.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case map[string]interface{}:
		// JSON variants sometimes wrap scalars as {"Text": ...}.
		if t, ok := v["Text"]; ok {
			return text(t)
		}
	}
	return ""
}

// localised coerces every known shape of a localized text element.
func localised(n node) LocalisedText {
	switch v := n.(type) {
	case nil:
		return nil
	case string:
		return Text(v)
	case json.Number:
		return Text(v.String())
	case []interface{}:
		var out LocalisedText
		for _, item := range v {
			out = append(out, localised(item)...)
		}
		return out
	case map[string]interface{}:
		if inner, ok := v["LocalisedText"]; ok {
			return localised(inner)
		}
		if _, ok := v["Text"]; ok {
			return LocalisedText{{Language: text(v["Language"]), Text: text(v["Text"])}}
		}
	}
	return nil
}

// share parses a numeric share. Absent, empty and non-numeric values are
// not supplied.
func share(n node) Share {
	s := strings.TrimSpace(text(n))
	if s == "" {
		return Share{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Share{}
	}
	return Some(f)
}
