package schema

import (
	"fmt"

	"github.com/grafana/parquet/pkg/format"
)

// Elements flattens the schema into the depth-first element list stored in
// the file footer. The first element is the root.
func (s *Schema) Elements() []format.SchemaElement {
	elems := make([]format.SchemaElement, 0, len(s.nodes))
	appendElements(&elems, s.root, true)
	return elems
}

func appendElements(elems *[]format.SchemaElement, n *Node, root bool) {
	elem := format.SchemaElement{Name: n.Name}
	if !root {
		rep := n.Repetition
		elem.RepetitionType = &rep
	}
	if n.Leaf() {
		t := n.PhysicalType
		elem.Type = &t
		if n.PhysicalType == format.TypeFixedLenByteArray {
			tl := int32(n.TypeLength)
			elem.TypeLength = &tl
		}
	} else {
		nc := int32(len(n.Children))
		elem.NumChildren = &nc
	}
	if n.LogicalType != nil {
		elem.LogicalType = n.LogicalType
		if n.LogicalType.Decimal != nil {
			scale, precision := n.LogicalType.Decimal.Scale, n.LogicalType.Decimal.Precision
			elem.Scale = &scale
			elem.Precision = &precision
		}
	}
	elem.ConvertedType = n.ConvertedType
	*elems = append(*elems, elem)

	for _, c := range n.Children {
		appendElements(elems, c, false)
	}
}

// FromElements rebuilds a compiled schema from a footer element list.
func FromElements(elems []format.SchemaElement) (*Schema, error) {
	if len(elems) == 0 {
		return nil, &Error{Reason: "empty schema element list"}
	}
	root, rest, err := parseElement(elems, true)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, &Error{Reason: fmt.Sprintf("%d trailing schema elements", len(rest))}
	}
	return New(root)
}

func parseElement(elems []format.SchemaElement, root bool) (*Node, []format.SchemaElement, error) {
	elem, rest := elems[0], elems[1:]

	n := &Node{
		Name:          elem.Name,
		LogicalType:   elem.LogicalType,
		ConvertedType: elem.ConvertedType,
	}
	if elem.RepetitionType != nil {
		n.Repetition = *elem.RepetitionType
	} else if !root {
		return nil, nil, &Error{Path: elem.Name, Reason: "missing repetition type"}
	}

	if elem.NumChildren == nil || *elem.NumChildren == 0 {
		if elem.Type == nil {
			return nil, nil, &Error{Path: elem.Name, Reason: "leaf element without a physical type"}
		}
		n.PhysicalType = *elem.Type
		if elem.TypeLength != nil {
			n.TypeLength = int(*elem.TypeLength)
		}
		return n, rest, nil
	}

	n.Children = make([]*Node, 0, *elem.NumChildren)
	for i := int32(0); i < *elem.NumChildren; i++ {
		if len(rest) == 0 {
			return nil, nil, &Error{Path: elem.Name, Reason: "schema element list ends before all children"}
		}
		var child *Node
		var err error
		child, rest, err = parseElement(rest, false)
		if err != nil {
			return nil, nil, err
		}
		n.Children = append(n.Children, child)
	}
	return n, rest, nil
}
