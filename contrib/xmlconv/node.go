// Package xmlconv converts to and from XML node trees. Sources and
// destinations are xmlquery nodes; rules address elements by name or
// dotted path, attributes via the "xml_type: attr" option, and repeated
// elements resolve as lists.
package xmlconv

import (
	"encoding/xml"
	"strings"

	"github.com/antchfx/xmlquery"
)

// NewElement creates a detached element node.
func NewElement(tag string) *xmlquery.Node {
	return &xmlquery.Node{Type: xmlquery.ElementNode, Data: tag}
}

// Parse reads an XML document.
func Parse(s string) (*xmlquery.Node, error) {
	return xmlquery.Parse(strings.NewReader(s))
}

// Output serializes a node without the XML declaration.
func Output(n *xmlquery.Node) string {
	return n.OutputXML(true)
}

func appendChild(parent, child *xmlquery.Node) {
	child.Parent = parent
	child.NextSibling = nil

	if parent.FirstChild == nil {
		parent.FirstChild = child
		child.PrevSibling = nil
	} else {
		last := parent.LastChild
		last.NextSibling = child
		child.PrevSibling = last
	}

	parent.LastChild = child
}

func appendText(elem *xmlquery.Node, text string, cdata bool) {
	t := &xmlquery.Node{Type: xmlquery.TextNode, Data: text}
	if cdata {
		t.Type = xmlquery.CharDataNode
	}

	appendChild(elem, t)
}

func setAttr(n *xmlquery.Node, name, value string) {
	for i := range n.Attr {
		if n.Attr[i].Name.Local == name {
			n.Attr[i].Value = value
			return
		}
	}

	n.Attr = append(n.Attr, xmlquery.Attr{
		Name:  xml.Name{Local: name},
		Value: value,
	})
}

func lookupAttr(n *xmlquery.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Name.Local == name {
			return a.Value, true
		}
	}

	return "", false
}

// childElements returns the direct element children named name, or all
// element children when name is empty.
func childElements(n *xmlquery.Node, name string) []*xmlquery.Node {
	var out []*xmlquery.Node

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}

		if name == "" || c.Data == name {
			out = append(out, c)
		}
	}

	return out
}

func hasElementChildren(n *xmlquery.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return true
		}
	}

	return false
}
