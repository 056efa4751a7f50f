package schema

import (
	"fmt"
	"strings"

	"github.com/grafana/parquet/pkg/encoding"
	"github.com/grafana/parquet/pkg/format"
)

// A LeveledValue is one entry of a flattened leaf column: the repetition
// and definition levels plus the leaf value. Value is the zero Value when
// the entry marks an absent subtree.
type LeveledValue struct {
	RepetitionLevel int
	DefinitionLevel int
	Value           encoding.Value
}

// Deconstruct flattens one record into per-column level streams, appending
// to dst. Records are maps keyed by field name; groups nest as maps,
// repeated fields as []any, and absent optional fields as nil. A nil dst
// allocates a fresh slice with one entry per column.
//
// Every leaf column receives at least one entry per record, so that
// record boundaries stay aligned across columns.
func (s *Schema) Deconstruct(dst [][]LeveledValue, record map[string]any) ([][]LeveledValue, error) {
	if dst == nil {
		dst = make([][]LeveledValue, len(s.columns))
	} else if len(dst) != len(s.columns) {
		return nil, fmt.Errorf("got %d column buffers, schema has %d columns", len(dst), len(s.columns))
	}
	for name := range record {
		if childNode(s.root, name) == nil {
			return nil, fmt.Errorf("group %s: unknown field %q", s.root.Name, name)
		}
	}
	for _, c := range s.root.Children {
		if err := s.shred(dst, c, record[c.Name], 0, 0); err != nil {
			return nil, err
		}
	}
	return dst, nil
}

func (s *Schema) shred(dst [][]LeveledValue, n *Node, v any, rep, def int) error {
	info := s.info[n]

	switch n.Repetition {
	case format.FieldRequired:
		if v == nil {
			return fmt.Errorf("required field %s has no value", n.Name)
		}
		return s.shredPresent(dst, n, v, rep, def)

	case format.FieldOptional:
		if v == nil {
			shredAbsent(dst, info, rep, def)
			return nil
		}
		return s.shredPresent(dst, n, v, rep, def+1)

	case format.FieldRepeated:
		var list []any
		switch v := v.(type) {
		case nil:
		case []any:
			list = v
		default:
			return fmt.Errorf("repeated field %s: expected []any, got %T", n.Name, v)
		}
		if len(list) == 0 {
			shredAbsent(dst, info, rep, def)
			return nil
		}
		for i, elem := range list {
			elemRep := rep
			if i > 0 {
				elemRep = info.maxRep
			}
			if elem == nil && n.Leaf() {
				return fmt.Errorf("repeated field %s: null element", n.Name)
			}
			if err := s.shredPresent(dst, n, elem, elemRep, def+1); err != nil {
				return err
			}
		}
		return nil

	default:
		return fmt.Errorf("field %s: invalid repetition %d", n.Name, n.Repetition)
	}
}

func (s *Schema) shredPresent(dst [][]LeveledValue, n *Node, v any, rep, def int) error {
	info := s.info[n]

	if n.Leaf() {
		col := s.columns[info.firstColumn]
		value, err := leafValue(col, v)
		if err != nil {
			return err
		}
		dst[col.Index] = append(dst[col.Index], LeveledValue{
			RepetitionLevel: rep,
			DefinitionLevel: def,
			Value:           value,
		})
		return nil
	}

	// Three-level list groups additionally accept a bare element slice,
	// sparing callers the list/element wrapper maps.
	if list, ok := v.([]any); ok && isListGroup(n) {
		elemName := n.Children[0].Children[0].Name
		wrapped := make([]any, len(list))
		for i, elem := range list {
			wrapped[i] = map[string]any{elemName: elem}
		}
		v = map[string]any{n.Children[0].Name: wrapped}
	}

	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("group %s: expected map[string]any, got %T", n.Name, v)
	}
	for name := range m {
		if childNode(n, name) == nil {
			return fmt.Errorf("group %s: unknown field %q", n.Name, name)
		}
	}
	for _, c := range n.Children {
		if err := s.shred(dst, c, m[c.Name], rep, def); err != nil {
			return err
		}
	}
	return nil
}

func shredAbsent(dst [][]LeveledValue, info nodeInfo, rep, def int) {
	for i := info.firstColumn; i < info.firstColumn+info.numColumns; i++ {
		dst[i] = append(dst[i], LeveledValue{RepetitionLevel: rep, DefinitionLevel: def})
	}
}

func childNode(n *Node, name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// isListGroup reports whether n has the standard three-level LIST shape: a
// LIST-annotated group holding one repeated group with a single child.
func isListGroup(n *Node) bool {
	if n.Leaf() || len(n.Children) != 1 {
		return false
	}
	if n.LogicalType == nil || n.LogicalType.List == nil {
		if n.ConvertedType == nil || *n.ConvertedType != format.ConvertedList {
			return false
		}
	}
	mid := n.Children[0]
	return !mid.Leaf() && mid.Repetition == format.FieldRepeated && len(mid.Children) == 1
}

func leafValue(col *Column, v any) (encoding.Value, error) {
	if value, ok := v.(encoding.Value); ok {
		if value.Type() != col.PhysicalType {
			return encoding.Value{}, fmt.Errorf("column %s: got %s value, want %s", columnPath(col), value.Type(), col.PhysicalType)
		}
		return value, nil
	}

	switch col.PhysicalType {
	case format.TypeBoolean:
		if b, ok := v.(bool); ok {
			return encoding.BooleanValue(b), nil
		}
	case format.TypeInt32:
		switch v := v.(type) {
		case int32:
			return encoding.Int32Value(v), nil
		case int:
			return encoding.Int32Value(int32(v)), nil
		}
	case format.TypeInt64:
		switch v := v.(type) {
		case int64:
			return encoding.Int64Value(v), nil
		case int:
			return encoding.Int64Value(int64(v)), nil
		}
	case format.TypeFloat:
		switch v := v.(type) {
		case float32:
			return encoding.FloatValue(v), nil
		case float64:
			return encoding.FloatValue(float32(v)), nil
		}
	case format.TypeDouble:
		if f, ok := v.(float64); ok {
			return encoding.DoubleValue(f), nil
		}
	case format.TypeByteArray:
		switch v := v.(type) {
		case string:
			return encoding.StringValue(v), nil
		case []byte:
			return encoding.ByteArrayValue(v), nil
		}
	case format.TypeFixedLenByteArray:
		if b, ok := v.([]byte); ok {
			if len(b) != col.TypeLength {
				return encoding.Value{}, fmt.Errorf("column %s: got %d bytes, want %d", columnPath(col), len(b), col.TypeLength)
			}
			return encoding.FixedLenByteArrayValue(b), nil
		}
	}
	return encoding.Value{}, fmt.Errorf("column %s: cannot store %T as %s", columnPath(col), v, col.PhysicalType)
}

func columnPath(col *Column) string { return strings.Join(col.Path, ".") }

// Reconstruct rebuilds records from per-column level streams. All columns
// must cover the same set of records; Reconstruct returns an error when the
// streams disagree on record boundaries.
func (s *Schema) Reconstruct(columns [][]LeveledValue) ([]map[string]any, error) {
	if len(columns) != len(s.columns) {
		return nil, fmt.Errorf("got %d column streams, schema has %d columns", len(columns), len(s.columns))
	}

	curs := make([]cursor, len(columns))
	for i, entries := range columns {
		curs[i] = cursor{entries: entries}
	}

	var records []map[string]any
	for curs[0].pos < len(curs[0].entries) {
		record := make(map[string]any, len(s.root.Children))
		for _, c := range s.root.Children {
			v, err := s.assemble(curs, c, 0)
			if err != nil {
				return nil, err
			}
			record[c.Name] = v
		}
		records = append(records, record)
	}
	for i := range curs {
		if curs[i].pos != len(curs[i].entries) {
			return nil, fmt.Errorf("column %s: %d values past the last record", columnPath(s.columns[i]), len(curs[i].entries)-curs[i].pos)
		}
	}
	return records, nil
}

type cursor struct {
	entries []LeveledValue
	pos     int
}

func (s *Schema) assemble(curs []cursor, n *Node, def int) (any, error) {
	info := s.info[n]
	lead := &curs[info.firstColumn]
	if lead.pos >= len(lead.entries) {
		return nil, fmt.Errorf("column %s: level stream ends mid-record", columnPath(s.columns[info.firstColumn]))
	}
	entry := lead.entries[lead.pos]

	switch n.Repetition {
	case format.FieldRequired:
		return s.assemblePresent(curs, n, def)

	case format.FieldOptional:
		if entry.DefinitionLevel < def+1 {
			return nil, s.skipAbsent(curs, info)
		}
		return s.assemblePresent(curs, n, def+1)

	case format.FieldRepeated:
		if entry.DefinitionLevel < def+1 {
			return []any{}, s.skipAbsent(curs, info)
		}
		elem, err := s.assemblePresent(curs, n, def+1)
		if err != nil {
			return nil, err
		}
		elems := []any{elem}
		for lead.pos < len(lead.entries) && lead.entries[lead.pos].RepetitionLevel == info.maxRep {
			elem, err := s.assemblePresent(curs, n, def+1)
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		}
		return elems, nil

	default:
		return nil, fmt.Errorf("field %s: invalid repetition %d", n.Name, n.Repetition)
	}
}

func (s *Schema) assemblePresent(curs []cursor, n *Node, def int) (any, error) {
	info := s.info[n]

	if n.Leaf() {
		col := s.columns[info.firstColumn]
		cur := &curs[info.firstColumn]
		entry := cur.entries[cur.pos]
		cur.pos++
		if entry.DefinitionLevel != def {
			return nil, fmt.Errorf("column %s: definition level %d does not match level %d implied by outer fields", columnPath(col), entry.DefinitionLevel, def)
		}
		return goValue(col, entry.Value), nil
	}

	m := make(map[string]any, len(n.Children))
	for _, c := range n.Children {
		v, err := s.assemble(curs, c, def)
		if err != nil {
			return nil, err
		}
		m[c.Name] = v
	}

	if isListGroup(n) {
		mid := n.Children[0]
		elemName := mid.Children[0].Name
		wrapped := m[mid.Name].([]any)
		list := make([]any, len(wrapped))
		for i, w := range wrapped {
			list[i] = w.(map[string]any)[elemName]
		}
		return list, nil
	}
	return m, nil
}

func (s *Schema) skipAbsent(curs []cursor, info nodeInfo) error {
	for i := info.firstColumn; i < info.firstColumn+info.numColumns; i++ {
		if curs[i].pos >= len(curs[i].entries) {
			return fmt.Errorf("column %s: level stream ends mid-record", columnPath(s.columns[i]))
		}
		curs[i].pos++
	}
	return nil
}

func goValue(col *Column, v encoding.Value) any {
	switch col.PhysicalType {
	case format.TypeBoolean:
		return v.Boolean()
	case format.TypeInt32:
		return v.Int32()
	case format.TypeInt64:
		return v.Int64()
	case format.TypeFloat:
		return v.Float()
	case format.TypeDouble:
		return v.Double()
	case format.TypeByteArray:
		if col.LogicalType != nil && col.LogicalType.UTF8 != nil {
			return string(v.Bytes())
		}
		return v.Bytes()
	default:
		return v.Bytes()
	}
}
