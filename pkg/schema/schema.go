// Package schema models the logical schema of a Parquet file: a tree of
// required, optional and repeated fields whose leaves are physical columns.
// A compiled [Schema] derives the per-leaf repetition and definition level
// bounds used for encoding nested values into flat column streams.
package schema

import (
	"fmt"
	"strings"

	"github.com/grafana/parquet/pkg/format"
)

// MaxLevel is the largest repetition or definition level the wire format
// can represent. Schemas nesting deeper are rejected at construction time.
const MaxLevel = 255

// An Error reports an invalid schema. Schema errors are detected when a
// [Schema] is compiled, never during encoding.
type Error struct {
	Path   string
	Reason string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid schema: %s", e.Reason)
	}
	return fmt.Sprintf("invalid schema at %s: %s", e.Path, e.Reason)
}

// A Node is one field of a logical schema: either a group with children or
// a primitive leaf with a physical type.
type Node struct {
	Name       string
	Repetition format.FieldRepetitionType
	Children   []*Node // nil for leaves.

	// Leaf-only attributes.
	PhysicalType  format.Type
	TypeLength    int // Value length for FIXED_LEN_BYTE_ARRAY leaves.
	LogicalType   *format.LogicalType
	ConvertedType *format.ConvertedType
}

// Leaf reports whether n is a primitive leaf.
func (n *Node) Leaf() bool { return n.Children == nil }

// Group returns a group node with the given children.
func Group(name string, repetition format.FieldRepetitionType, children ...*Node) *Node {
	if children == nil {
		children = []*Node{}
	}
	return &Node{Name: name, Repetition: repetition, Children: children}
}

// Boolean returns a BOOLEAN leaf.
func Boolean(name string, repetition format.FieldRepetitionType) *Node {
	return &Node{Name: name, Repetition: repetition, PhysicalType: format.TypeBoolean}
}

// Int32 returns an INT32 leaf.
func Int32(name string, repetition format.FieldRepetitionType) *Node {
	return &Node{Name: name, Repetition: repetition, PhysicalType: format.TypeInt32}
}

// Int64 returns an INT64 leaf.
func Int64(name string, repetition format.FieldRepetitionType) *Node {
	return &Node{Name: name, Repetition: repetition, PhysicalType: format.TypeInt64}
}

// Float returns a FLOAT leaf.
func Float(name string, repetition format.FieldRepetitionType) *Node {
	return &Node{Name: name, Repetition: repetition, PhysicalType: format.TypeFloat}
}

// Double returns a DOUBLE leaf.
func Double(name string, repetition format.FieldRepetitionType) *Node {
	return &Node{Name: name, Repetition: repetition, PhysicalType: format.TypeDouble}
}

// ByteArray returns a BYTE_ARRAY leaf with no logical annotation.
func ByteArray(name string, repetition format.FieldRepetitionType) *Node {
	return &Node{Name: name, Repetition: repetition, PhysicalType: format.TypeByteArray}
}

// String returns a BYTE_ARRAY leaf annotated as a UTF8 string.
func String(name string, repetition format.FieldRepetitionType) *Node {
	return &Node{
		Name:          name,
		Repetition:    repetition,
		PhysicalType:  format.TypeByteArray,
		LogicalType:   &format.LogicalType{UTF8: &format.EmptyType{}},
		ConvertedType: convertedPtr(format.ConvertedUTF8),
	}
}

// FixedLenByteArray returns a FIXED_LEN_BYTE_ARRAY leaf of the given
// length.
func FixedLenByteArray(name string, repetition format.FieldRepetitionType, length int) *Node {
	return &Node{
		Name:         name,
		Repetition:   repetition,
		PhysicalType: format.TypeFixedLenByteArray,
		TypeLength:   length,
	}
}

// Decimal returns a leaf annotated as a decimal of the given precision and
// scale. Precision up to 9 uses INT32 storage, up to 18 INT64, and larger
// precisions a FIXED_LEN_BYTE_ARRAY sized to fit.
func Decimal(name string, repetition format.FieldRepetitionType, precision, scale int32) *Node {
	n := &Node{
		Name:          name,
		Repetition:    repetition,
		LogicalType:   &format.LogicalType{Decimal: &format.DecimalType{Scale: scale, Precision: precision}},
		ConvertedType: convertedPtr(format.ConvertedDecimal),
	}
	switch {
	case precision <= 9:
		n.PhysicalType = format.TypeInt32
	case precision <= 18:
		n.PhysicalType = format.TypeInt64
	default:
		n.PhysicalType = format.TypeFixedLenByteArray
		n.TypeLength = decimalFixedSize(precision)
	}
	return n
}

// decimalFixedSize returns the smallest byte length whose two's complement
// range covers precision decimal digits.
func decimalFixedSize(precision int32) int {
	size := 1
	for int32(float64(8*size-1)*0.30103) < precision {
		size++
	}
	return size
}

// Date returns an INT32 leaf annotated as days since the Unix epoch.
func Date(name string, repetition format.FieldRepetitionType) *Node {
	return &Node{
		Name:          name,
		Repetition:    repetition,
		PhysicalType:  format.TypeInt32,
		LogicalType:   &format.LogicalType{Date: &format.EmptyType{}},
		ConvertedType: convertedPtr(format.ConvertedDate),
	}
}

// TimestampMillis returns an INT64 leaf annotated as UTC-adjusted
// milliseconds since the Unix epoch.
func TimestampMillis(name string, repetition format.FieldRepetitionType) *Node {
	return &Node{
		Name:         name,
		Repetition:   repetition,
		PhysicalType: format.TypeInt64,
		LogicalType: &format.LogicalType{Timestamp: &format.TimestampType{
			IsAdjustedToUTC: true,
			Unit:            format.TimeUnit{Millis: &format.EmptyType{}},
		}},
		ConvertedType: convertedPtr(format.ConvertedTimestampMillis),
	}
}

// Uint64 returns an INT64 leaf annotated as an unsigned 64-bit integer.
// Statistics for unsigned columns use unsigned comparison.
func Uint64(name string, repetition format.FieldRepetitionType) *Node {
	return &Node{
		Name:          name,
		Repetition:    repetition,
		PhysicalType:  format.TypeInt64,
		LogicalType:   &format.LogicalType{Integer: &format.IntType{BitWidth: 64, IsSigned: false}},
		ConvertedType: convertedPtr(format.ConvertedUint64),
	}
}

// List returns the standard three-level list structure: an optional or
// required group annotated LIST, containing a repeated "list" group with a
// single "element" child.
func List(name string, repetition format.FieldRepetitionType, element *Node) *Node {
	element.Name = "element"
	return &Node{
		Name:          name,
		Repetition:    repetition,
		LogicalType:   &format.LogicalType{List: &format.EmptyType{}},
		ConvertedType: convertedPtr(format.ConvertedList),
		Children: []*Node{
			Group("list", format.FieldRepeated, element),
		},
	}
}

func convertedPtr(c format.ConvertedType) *format.ConvertedType { return &c }

// A Column describes one leaf of a compiled schema: its position in the
// canonical depth-first column order, its dotted path, and the level
// bounds needed to encode and decode it. Columns are immutable once
// derived.
type Column struct {
	Index              int
	Path               []string
	PhysicalType       format.Type
	TypeLength         int
	LogicalType        *format.LogicalType
	ConvertedType      *format.ConvertedType
	MaxRepetitionLevel int
	MaxDefinitionLevel int

	node *Node
}

// Unsigned reports whether the column's logical type orders values as
// unsigned integers.
func (c *Column) Unsigned() bool {
	if c.LogicalType != nil && c.LogicalType.Integer != nil {
		return !c.LogicalType.Integer.IsSigned
	}
	if c.ConvertedType != nil {
		switch *c.ConvertedType {
		case format.ConvertedUint8, format.ConvertedUint16, format.ConvertedUint32, format.ConvertedUint64:
			return true
		}
	}
	return false
}

// A Schema is a compiled logical schema: the node tree plus the flattened
// leaf columns in canonical depth-first order. A Schema is immutable and
// safe for concurrent use.
type Schema struct {
	root    *Node
	columns []*Column

	// Arena of all nodes in depth-first order with index-based parent
	// links, for O(1) ancestor walks.
	nodes   []*Node
	parents []int
	info    map[*Node]nodeInfo
}

// nodeInfo caches per-node level bounds and the contiguous range of leaf
// columns under the node.
type nodeInfo struct {
	firstColumn int
	numColumns  int
	maxRep      int
	maxDef      int
}

// New compiles root into a [Schema]. The root node acts as the record
// container; its repetition is ignored. New returns an [*Error] if the
// schema is invalid.
func New(root *Node) (*Schema, error) {
	if root == nil || root.Leaf() {
		return nil, &Error{Reason: "root must be a group"}
	}

	s := &Schema{root: root, info: make(map[*Node]nodeInfo)}
	if err := s.compile(root, nil, -1, 0, 0); err != nil {
		return nil, err
	}
	if len(s.columns) == 0 {
		return nil, &Error{Reason: "schema has no columns"}
	}
	return s, nil
}

func (s *Schema) compile(n *Node, path []string, parent, maxRep, maxDef int) error {
	if n != s.root {
		path = append(path, n.Name)
		switch n.Repetition {
		case format.FieldRequired:
		case format.FieldOptional:
			maxDef++
		case format.FieldRepeated:
			maxRep++
			maxDef++
		default:
			return &Error{Path: strings.Join(path, "."), Reason: fmt.Sprintf("invalid repetition %d", n.Repetition)}
		}
		if maxRep > MaxLevel || maxDef > MaxLevel {
			return &Error{Path: strings.Join(path, "."), Reason: fmt.Sprintf("nesting exceeds %d levels", MaxLevel)}
		}
	}

	index := len(s.nodes)
	s.nodes = append(s.nodes, n)
	s.parents = append(s.parents, parent)
	firstColumn := len(s.columns)
	defer func() {
		s.info[n] = nodeInfo{
			firstColumn: firstColumn,
			numColumns:  len(s.columns) - firstColumn,
			maxRep:      maxRep,
			maxDef:      maxDef,
		}
	}()

	if n.Leaf() {
		if err := validateLeaf(n, path); err != nil {
			return err
		}
		s.columns = append(s.columns, &Column{
			Index:              len(s.columns),
			Path:               append([]string(nil), path...),
			PhysicalType:       n.PhysicalType,
			TypeLength:         n.TypeLength,
			LogicalType:        n.LogicalType,
			ConvertedType:      n.ConvertedType,
			MaxRepetitionLevel: maxRep,
			MaxDefinitionLevel: maxDef,
			node:               n,
		})
		return nil
	}

	if len(n.Children) == 0 {
		return &Error{Path: strings.Join(path, "."), Reason: "group has no children"}
	}
	seen := make(map[string]struct{}, len(n.Children))
	for _, c := range n.Children {
		if c.Name == "" {
			return &Error{Path: strings.Join(path, "."), Reason: "child with empty name"}
		}
		if _, dup := seen[c.Name]; dup {
			return &Error{Path: strings.Join(path, "."), Reason: fmt.Sprintf("duplicate field name %q", c.Name)}
		}
		seen[c.Name] = struct{}{}
		if err := s.compile(c, path, index, maxRep, maxDef); err != nil {
			return err
		}
	}
	return nil
}

func validateLeaf(n *Node, path []string) error {
	switch n.PhysicalType {
	case format.TypeBoolean, format.TypeInt32, format.TypeInt64,
		format.TypeFloat, format.TypeDouble, format.TypeByteArray:
	case format.TypeFixedLenByteArray:
		if n.TypeLength <= 0 {
			return &Error{Path: strings.Join(path, "."), Reason: "FIXED_LEN_BYTE_ARRAY requires a positive type length"}
		}
	case format.TypeInt96:
		return &Error{Path: strings.Join(path, "."), Reason: "INT96 is deprecated and not supported"}
	default:
		return &Error{Path: strings.Join(path, "."), Reason: fmt.Sprintf("unknown physical type %d", n.PhysicalType)}
	}
	return nil
}

// Root returns the root node of the schema.
func (s *Schema) Root() *Node { return s.root }

// Columns returns the leaf columns in canonical depth-first order. The
// returned slice must not be modified.
func (s *Schema) Columns() []*Column { return s.columns }

// Column returns the leaf column at index i.
func (s *Schema) Column(i int) *Column { return s.columns[i] }

func (s *Schema) String() string {
	var sb strings.Builder
	writeNode(&sb, s.root, 0, true)
	return sb.String()
}

func writeNode(sb *strings.Builder, n *Node, depth int, root bool) {
	indent := strings.Repeat("  ", depth)
	if root {
		fmt.Fprintf(sb, "%smessage %s {\n", indent, n.Name)
	} else if !n.Leaf() {
		fmt.Fprintf(sb, "%s%s group %s {\n", indent, repetitionName(n.Repetition), n.Name)
	} else {
		fmt.Fprintf(sb, "%s%s %s %s;\n", indent, repetitionName(n.Repetition), strings.ToLower(n.PhysicalType.String()), n.Name)
		return
	}
	for _, c := range n.Children {
		writeNode(sb, c, depth+1, false)
	}
	fmt.Fprintf(sb, "%s}\n", indent)
}

func repetitionName(r format.FieldRepetitionType) string {
	return strings.ToLower(r.String())
}
