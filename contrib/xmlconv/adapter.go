package xmlconv

import (
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"

	"graphconvert/convert"
	"graphconvert/internal/common"
)

// Adapter reads and writes xmlquery node trees. Rule options it
// understands (via the open option map):
//
//   - "xml_type: attr": the path names an element attribute, not a
//     child element.
//   - "xml_type: list": always resolve matching elements as a list,
//     even when only one matches.
//   - "use_cdata": wrap written text in a CDATA section, overriding the
//     adapter-wide default.
type Adapter struct {
	// RootKey unwraps incoming documents: when the source (or its
	// document node) has a child element with this name, rules resolve
	// against that child. It is also the element name used when
	// instantiating a fresh destination tree.
	RootKey string

	// UseCDATA wraps written text values in CDATA sections.
	UseCDATA bool
}

var (
	_ convert.Adapter        = (*Adapter)(nil)
	_ convert.CreatingGetter = (*Adapter)(nil)
	_ convert.Lifecycle      = (*Adapter)(nil)
)

// unwrap descends past the document node and the root-key element, so
// rules address the content directly.
func (a *Adapter) unwrap(n *xmlquery.Node) *xmlquery.Node {
	if n.Type == xmlquery.DocumentNode {
		if elems := childElements(n, ""); common.IsSingle(elems) {
			n = elems[0]
		}
	}

	if a.RootKey != "" && n.Data != a.RootKey {
		if root := n.SelectElement(a.RootKey); root != nil {
			return root
		}
	}

	return n
}

// Get implements convert.Getter over node sources. Leaf elements
// resolve to their text, elements with children to the node itself, and
// repeated matches to a list of per-element values.
func (a *Adapter) Get(source any, path string, dflt any, opts *convert.Options) (any, error) {
	n, ok := source.(*xmlquery.Node)
	if !ok {
		return convert.DefaultAdapter{}.Get(source, path, dflt, opts)
	}

	n = a.unwrap(n)

	if path == "self" {
		return n, nil
	}

	return a.getPath(n, path, dflt, opts)
}

func (a *Adapter) getPath(n *xmlquery.Node, path string, dflt any, opts *convert.Options) (any, error) {
	left, right, deep := strings.Cut(path, ".")

	if opts.ExtraString("xml_type") == "attr" && !deep {
		if v, ok := lookupAttr(n, path); ok {
			return v, nil
		}

		return dflt, nil
	}

	vals := childElements(n, left)
	if common.IsEmpty(vals) {
		return dflt, nil
	}

	if deep {
		if common.IsMultiple(vals) {
			out := make([]any, len(vals))
			for i, v := range vals {
				sub, err := a.getPath(v, right, dflt, opts)
				if err != nil {
					return nil, err
				}

				out[i] = sub
			}

			return out, nil
		}

		return a.getPath(vals[0], right, dflt, opts)
	}

	if common.IsMultiple(vals) || opts.ExtraString("xml_type") == "list" {
		out := make([]any, len(vals))
		for i, v := range vals {
			out[i] = resolveElement(v)
		}

		return out, nil
	}

	return resolveElement(vals[0]), nil
}

// resolveElement reads one matched element: leaves resolve to their
// text, elements with children pass through as nodes.
func resolveElement(n *xmlquery.Node) any {
	if !hasElementChildren(n) {
		return n.InnerText()
	}

	return n
}

// GetForSet implements convert.CreatingGetter: during a deep-path set a
// missing intermediate element is created.
func (a *Adapter) GetForSet(inst any, path, right string, opts *convert.Options) (any, error) {
	n, ok := inst.(*xmlquery.Node)
	if !ok {
		return convert.DefaultAdapter{}.Get(inst, path, nil, opts)
	}

	if elems := childElements(n, path); len(elems) > 0 {
		return elems[0], nil
	}

	child := NewElement(path)
	appendChild(n, child)

	return child, nil
}

// Set implements convert.Setter over node destinations. Lists fan out,
// node values are re-tagged and appended, everything else becomes a
// text child element.
func (a *Adapter) Set(inst any, path string, val any, opts *convert.Options) error {
	n, ok := inst.(*xmlquery.Node)
	if !ok {
		return convert.SetAttr(inst, path, val)
	}

	if opts.ExtraString("xml_type") == "attr" {
		setAttr(n, path, fmt.Sprint(val))
		return nil
	}

	switch v := val.(type) {
	case []any:
		for _, item := range v {
			if err := a.Set(n, path, item, opts); err != nil {
				return err
			}
		}

		return nil

	case *xmlquery.Node:
		v.Data = path
		appendChild(n, v)

		return nil
	}

	elem := NewElement(path)
	appendChild(n, elem)
	appendText(elem, fmt.Sprint(val), opts.ExtraBool("use_cdata", a.UseCDATA))

	return nil
}

// ValueIsCollection excludes nodes from collection mapping.
func (a *Adapter) ValueIsCollection(v any) bool {
	if _, ok := v.(*xmlquery.Node); ok {
		return false
	}

	return convert.IsCollection(v)
}

// Instantiate builds a fresh element named after the root key.
func (a *Adapter) Instantiate(c *convert.Converter, attrs *convert.Attrs) (any, error) {
	root := a.RootKey
	if root == "" {
		root = "root"
	}

	elem := NewElement(root)
	if err := c.ApplyAttrs(elem, attrs); err != nil {
		return nil, err
	}

	return elem, nil
}

// Populate implements convert.Lifecycle.
func (a *Adapter) Populate(c *convert.Converter, inst any, attrs *convert.Attrs) (any, error) {
	if err := c.ApplyAttrs(inst, attrs); err != nil {
		return nil, err
	}

	return inst, nil
}

// NewChildElement is the default provider for nested XML rule sets: a
// rule whose source is absent gets a fresh element to build into.
func NewChildElement() any {
	return NewElement("placeholder")
}

// XMLDefinition builds a rule set producing an XML tree rooted at
// rootKey.
func XMLDefinition(name, rootKey string, rules ...convert.RawRule) *convert.Definition {
	return &convert.Definition{
		Name:          name,
		To:            convert.Types(&xmlquery.Node{}),
		Adapter:       &Adapter{RootKey: rootKey, UseCDATA: true},
		AbsentDefault: NewChildElement,
		Rules:         rules,
	}
}
