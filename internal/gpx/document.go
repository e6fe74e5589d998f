package gpx

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Element is the minimal read-only view of a parsed XML element that the
// parser needs. Names are matched on the local part, ignoring namespaces.
type Element interface {
	Name() string
	Attr(name string) (string, bool)
	Child(name string) (Element, bool)
	Children(name string) []Element
	Text() string
}

type node struct {
	name     string
	attrs    []xml.Attr
	children []*node
	text     strings.Builder
}

func (n *node) Name() string {
	return n.name
}

func (n *node) Attr(name string) (string, bool) {
	for _, a := range n.attrs {
		if a.Name.Local == name && a.Name.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}

func (n *node) Child(name string) (Element, bool) {
	for _, c := range n.children {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

func (n *node) Children(name string) []Element {
	var out []Element
	for _, c := range n.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

func (n *node) Text() string {
	return n.text.String()
}

// ParseDocument builds an element tree from raw XML and returns its root.
func ParseDocument(content string) (Element, error) {
	return parseTree(strings.NewReader(content))
}

func parseTree(r io.Reader) (Element, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	var (
		root  *node
		stack []*node
	)

	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("XML parsing error: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("XML parsing error: multiple root elements")
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			} else if strings.TrimSpace(string(t)) != "" {
				return nil, errors.New("XML parsing error: text outside root element")
			}
		}
	}

	if root == nil {
		return nil, errors.New("XML parsing error: no root element")
	}
	if len(stack) != 0 {
		return nil, fmt.Errorf("XML parsing error: unclosed element <%s>", stack[len(stack)-1].name)
	}

	return root, nil
}
