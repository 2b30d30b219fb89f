package datamimic

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// ValueKind tags the dynamic type held by a Value.
type ValueKind uint8

const (
	KindNull ValueKind = iota
	KindInt
	KindFloat
	KindString
	KindBool
	KindDate
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindDate:
		return "date"
	default:
		return "unknown"
	}
}

// DateLayout is the canonical rendering for date cells without a time component.
const DateLayout = "2006-01-02"

// Value is a single dataset cell. The zero Value is null.
type Value struct {
	kind ValueKind
	i    int64
	f    float64
	s    string
	b    bool
	t    time.Time
}

func Null() Value { return Value{} }

func Int(v int64) Value { return Value{kind: KindInt, i: v} }

func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

func String(v string) Value { return Value{kind: KindString, s: v} }

func Bool(v bool) Value { return Value{kind: KindBool, b: v} }

// Date wraps a timestamp. Generated dates are midnight UTC.
func Date(v time.Time) Value { return Value{kind: KindDate, t: v} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

func (v Value) Int() int64 { return v.i }

func (v Value) Str() string { return v.s }

func (v Value) BoolValue() bool { return v.b }

func (v Value) Time() time.Time { return v.t }

// Float64 returns the numeric value of an int or float cell.
func (v Value) Float64() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// String renders the cell the way it is written to text encodings. Null renders as "".
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindDate:
		return FormatDate(v.t)
	default:
		return ""
	}
}

// Key returns a string that is equal for two cells iff they hold the same value.
// Ints and integral floats share a key space so 1 and 1.0 compare equal.
func (v Value) Key() string {
	switch v.kind {
	case KindInt:
		return "n:" + strconv.FormatInt(v.i, 10)
	case KindFloat:
		if v.f == math.Trunc(v.f) && FitsInt64(v.f) {
			return "n:" + strconv.FormatInt(int64(v.f), 10)
		}
		return "n:" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString:
		return "s:" + v.s
	case KindBool:
		return "b:" + strconv.FormatBool(v.b)
	case KindDate:
		return "d:" + v.t.UTC().Format(time.RFC3339Nano)
	default:
		return "∅"
	}
}

// FitsInt64 reports whether f truncated toward zero converts to int64 without overflow.
func FitsInt64(f float64) bool {
	return f >= -(1<<63) && f < 1<<63
}

// Equal reports whether two cells hold the same value. Two nulls are equal.
func (v Value) Equal(o Value) bool {
	return v.Key() == o.Key()
}

// Interface returns the cell as a plain Go value (nil for null).
func (v Value) Interface() any {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindDate:
		return v.t
	default:
		return nil
	}
}

// MarshalJSON renders null cells as JSON null and dates as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindDate:
		return json.Marshal(FormatDate(v.t))
	default:
		return json.Marshal(v.Interface())
	}
}

// UnmarshalJSON is the inverse of MarshalJSON for the non-date kinds. Dates come back as strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = ValueFromAny(raw)
	return nil
}

// FormatDate renders midnight timestamps as plain dates and everything else as RFC 3339.
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(DateLayout)
	}
	return t.Format(time.RFC3339)
}

// Row is one dataset record, positionally aligned with Dataset.Columns.
type Row []Value

// Dataset is a rectangular in-memory table. Every row has len(Columns) cells.
type Dataset struct {
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// NewDataset creates an empty dataset with the given header.
func NewDataset(columns []string) *Dataset {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Dataset{Columns: cols, Rows: []Row{}}
}

func (d *Dataset) NumRows() int { return len(d.Rows) }
func (d *Dataset) NumCols() int { return len(d.Columns) }

// ColumnIndex returns the position of a column.
func (d *Dataset) ColumnIndex(name string) (int, bool) {
	for i, c := range d.Columns {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Column returns a copy of the cells in column idx.
func (d *Dataset) Column(idx int) []Value {
	out := make([]Value, len(d.Rows))
	for r, row := range d.Rows {
		out[r] = row[idx]
	}
	return out
}

// AppendRow adds a row. It fails when the row width does not match the header.
func (d *Dataset) AppendRow(row Row) error {
	if len(row) != len(d.Columns) {
		return fmt.Errorf("row has %d cells, header has %d columns", len(row), len(d.Columns))
	}
	d.Rows = append(d.Rows, row)
	return nil
}

// Clone returns a deep copy. Values are immutable so cells are copied by value.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{
		Columns: make([]string, len(d.Columns)),
		Rows:    make([]Row, len(d.Rows)),
	}
	copy(out.Columns, d.Columns)
	for i, row := range d.Rows {
		r := make(Row, len(row))
		copy(r, row)
		out.Rows[i] = r
	}
	return out
}

// Head returns a dataset holding at most n leading rows. Rows are shared with d.
func (d *Dataset) Head(n int) *Dataset {
	if n < 0 {
		n = 0
	}
	if n > len(d.Rows) {
		n = len(d.Rows)
	}
	return &Dataset{Columns: d.Columns, Rows: d.Rows[:n]}
}

// NullCount counts null cells across the whole table.
func (d *Dataset) NullCount() int {
	n := 0
	for _, row := range d.Rows {
		for _, v := range row {
			if v.IsNull() {
				n++
			}
		}
	}
	return n
}

// ColumnType is the inferred type tag of a column.
type ColumnType string

const (
	ColumnTypeNumeric  ColumnType = "numeric"
	ColumnTypeText     ColumnType = "text"
	ColumnTypeBoolean  ColumnType = "boolean"
	ColumnTypeDatetime ColumnType = "datetime"
)

// InferColumnType classifies a column from its non-null cells.
// Columns with no non-null cells are numeric, matching dataframe float columns.
func InferColumnType(cells []Value) ColumnType {
	var numeric, text, boolean, date int
	for _, v := range cells {
		switch v.kind {
		case KindInt, KindFloat:
			numeric++
		case KindString:
			text++
		case KindBool:
			boolean++
		case KindDate:
			date++
		}
	}
	switch {
	case text == 0 && boolean == 0 && date == 0:
		return ColumnTypeNumeric
	case text == 0 && numeric == 0 && date == 0:
		return ColumnTypeBoolean
	case text == 0 && numeric == 0 && boolean == 0:
		return ColumnTypeDatetime
	default:
		return ColumnTypeText
	}
}

// ColumnType infers the type of column idx.
func (d *Dataset) ColumnType(idx int) ColumnType {
	return InferColumnType(d.Column(idx))
}

// DatasetHandle identifies a dataset held in the registry. It is a UUID string.
type DatasetHandle string

func (h DatasetHandle) String() string { return string(h) }
