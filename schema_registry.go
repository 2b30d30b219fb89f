package datamimic

import (
	"fmt"
	"math"
	"strings"
)

// GeneratorKind names a field generator. The string values match the custom column wire format.
type GeneratorKind string

const (
	GeneratorUUID           GeneratorKind = "UUID"
	GeneratorFullName       GeneratorKind = "Full Name"
	GeneratorPhoneNumber    GeneratorKind = "Phone Number"
	GeneratorStreetAddress  GeneratorKind = "Street Address"
	GeneratorCity           GeneratorKind = "City"
	GeneratorCountry        GeneratorKind = "Country"
	GeneratorZipCode        GeneratorKind = "Zip Code"
	GeneratorEmailAddress   GeneratorKind = "Email Address"
	GeneratorWord           GeneratorKind = "String"
	GeneratorBoolean        GeneratorKind = "Boolean"
	GeneratorAccountNumber  GeneratorKind = "Account_Number"
	GeneratorUniversityName GeneratorKind = "University_Name"
	GeneratorLicensePlate   GeneratorKind = "License_Plate"
	GeneratorModelName      GeneratorKind = "Model_Name"

	GeneratorInteger     GeneratorKind = "Integer"
	GeneratorFloat       GeneratorKind = "Float"
	GeneratorCategorical GeneratorKind = "Categorical"
	GeneratorDate        GeneratorKind = "Date"
	GeneratorSequence    GeneratorKind = "Sequence"
)

// ModelSourceColumn is the sibling column read by model name fields.
const ModelSourceColumn = "Make"

// NotApplicable is the sentinel written when a dependent field has no source value.
const NotApplicable = "N/A"

var fixedKinds = map[GeneratorKind]bool{
	GeneratorUUID:           true,
	GeneratorFullName:       true,
	GeneratorPhoneNumber:    true,
	GeneratorStreetAddress:  true,
	GeneratorCity:           true,
	GeneratorCountry:        true,
	GeneratorZipCode:        true,
	GeneratorEmailAddress:   true,
	GeneratorWord:           true,
	GeneratorBoolean:        true,
	GeneratorAccountNumber:  true,
	GeneratorUniversityName: true,
	GeneratorLicensePlate:   true,
	GeneratorModelName:      true,
}

// IsFixedKind reports whether kind is a parameterless generator.
func IsFixedKind(kind GeneratorKind) bool {
	return fixedKinds[kind]
}

// FieldSpec describes how one column is synthesized. The set of implementations is closed.
type FieldSpec interface {
	Kind() GeneratorKind
	Validate(column string) error
	fieldSpec()
}

// FixedField is a parameterless generator.
type FixedField struct {
	Generator GeneratorKind `json:"type"`
}

// BoundedField draws uniformly from [Low, High]. DecimalPlaces applies to Float fields only.
type BoundedField struct {
	Generator     GeneratorKind `json:"type"`
	Low           float64       `json:"low"`
	High          float64       `json:"high"`
	DecimalPlaces int           `json:"decimalPlaces,omitempty"`
}

// CategoricalField picks uniformly from Values.
type CategoricalField struct {
	Values []Value `json:"values"`
}

// DateDirection anchors a DateOffsetField relative to today.
type DateDirection string

const (
	DatePast   DateDirection = "past"
	DateFuture DateDirection = "future"
)

// Date spans are capped so generated dates stay within four-digit years.
const (
	MaxDaysAgo      = 365000
	MaxYearsFromNow = 1000
)

// DateOffsetField draws a date within PastDays before today or FutureYears after today.
// A zero or negative span collapses to today.
type DateOffsetField struct {
	Direction DateDirection `json:"direction"`
	Span      int           `json:"span"`
}

// SequenceField fills a column from pre-resolved literal values, shuffled once and then cycled.
type SequenceField struct {
	Values []Value `json:"values"`
}

func (FixedField) fieldSpec()       {}
func (BoundedField) fieldSpec()     {}
func (CategoricalField) fieldSpec() {}
func (DateOffsetField) fieldSpec()  {}
func (SequenceField) fieldSpec()    {}

func (f FixedField) Kind() GeneratorKind     { return f.Generator }
func (f BoundedField) Kind() GeneratorKind   { return f.Generator }
func (CategoricalField) Kind() GeneratorKind { return GeneratorCategorical }
func (DateOffsetField) Kind() GeneratorKind  { return GeneratorDate }
func (SequenceField) Kind() GeneratorKind    { return GeneratorSequence }

func (f FixedField) Validate(column string) error {
	if !IsFixedKind(f.Generator) {
		return NewInvalidFieldDefinitionError(column, fmt.Sprintf("unknown generator type %q", f.Generator))
	}
	return nil
}

func (f BoundedField) Validate(column string) error {
	if f.Generator != GeneratorInteger && f.Generator != GeneratorFloat {
		return NewInvalidFieldDefinitionError(column, fmt.Sprintf("type %q does not take a range", f.Generator))
	}
	if math.IsNaN(f.Low) || math.IsNaN(f.High) || math.IsInf(f.Low, 0) || math.IsInf(f.High, 0) {
		return NewInvalidFieldDefinitionError(column, "range bounds must be finite numbers")
	}
	if f.Low > f.High {
		return NewInvalidFieldDefinitionError(column, "range must be ascending")
	}
	if f.Generator == GeneratorInteger && (!FitsInt64(math.Ceil(f.Low)) || !FitsInt64(math.Floor(f.High))) {
		return NewInvalidFieldDefinitionError(column, "Integer range must fit in a 64-bit integer")
	}
	if f.DecimalPlaces < 0 || f.DecimalPlaces > 10 {
		return NewInvalidFieldDefinitionError(column, "decimal_places must be between 0 and 10")
	}
	return nil
}

func (f CategoricalField) Validate(column string) error {
	if len(f.Values) == 0 {
		return NewInvalidFieldDefinitionError(column, "Categorical type requires non-empty 'values' list")
	}
	return nil
}

func (f DateOffsetField) Validate(column string) error {
	if f.Direction != DatePast && f.Direction != DateFuture {
		return NewInvalidFieldDefinitionError(column, "Date type requires 'days_ago' or 'years_from_now'")
	}
	if f.Direction == DatePast && f.Span > MaxDaysAgo {
		return NewInvalidFieldDefinitionError(column, fmt.Sprintf("days_ago must be at most %d", MaxDaysAgo))
	}
	if f.Direction == DateFuture && f.Span > MaxYearsFromNow {
		return NewInvalidFieldDefinitionError(column, fmt.Sprintf("years_from_now must be at most %d", MaxYearsFromNow))
	}
	return nil
}

func (f SequenceField) Validate(column string) error {
	if len(f.Values) == 0 {
		return NewInvalidFieldDefinitionError(column, "Sequence type requires non-empty 'values' list")
	}
	return nil
}

// IsDependent reports whether a field reads sibling values of the same row.
func IsDependent(spec FieldSpec) bool {
	f, ok := spec.(FixedField)
	return ok && f.Generator == GeneratorModelName
}

// IsNumericField reports whether a field produces numbers.
func IsNumericField(spec FieldSpec) bool {
	b, ok := spec.(BoundedField)
	return ok && (b.Generator == GeneratorInteger || b.Generator == GeneratorFloat)
}

// FieldDefinition is the wire shape of a custom column, also used by schema files.
//
//	{"name": "Score", "type": "Integer", "range": [1, 10]}
//	{"name": "Tier", "type": "Categorical", "values": ["gold", "silver"]}
//	{"name": "Joined", "type": "Date", "days_ago": 90}
type FieldDefinition struct {
	Name          string    `json:"name" yaml:"name"`
	Type          string    `json:"type" yaml:"type"`
	Range         []float64 `json:"range,omitempty" yaml:"range,omitempty"`
	Values        []any     `json:"values,omitempty" yaml:"values,omitempty"`
	DecimalPlaces *int      `json:"decimal_places,omitempty" yaml:"decimal_places,omitempty"`
	DaysAgo       *int      `json:"days_ago,omitempty" yaml:"days_ago,omitempty"`
	YearsFromNow  *int      `json:"years_from_now,omitempty" yaml:"years_from_now,omitempty"`
}

// CustomColumnSpec is a caller-supplied column that overrides a schema field of the same name.
type CustomColumnSpec = FieldDefinition

// FieldSpec converts the definition into a validated FieldSpec.
func (d FieldDefinition) FieldSpec() (FieldSpec, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return nil, NewInvalidFieldDefinitionError("", "custom column definition missing 'name'")
	}
	if d.Type == "" {
		return nil, NewInvalidFieldDefinitionError(name, "custom column definition missing 'type'")
	}

	var spec FieldSpec
	kind := GeneratorKind(d.Type)
	switch kind {
	case GeneratorInteger, GeneratorFloat:
		if len(d.Range) != 2 {
			return nil, NewInvalidFieldDefinitionError(name, "Numeric type requires 'range' as a list of two numbers")
		}
		places := 2
		if d.DecimalPlaces != nil {
			places = *d.DecimalPlaces
		}
		if kind == GeneratorInteger {
			places = 0
		}
		spec = BoundedField{Generator: kind, Low: d.Range[0], High: d.Range[1], DecimalPlaces: places}
	case GeneratorCategorical:
		spec = CategoricalField{Values: valuesFromAny(d.Values)}
	case GeneratorSequence:
		spec = SequenceField{Values: valuesFromAny(d.Values)}
	case GeneratorDate:
		switch {
		case d.DaysAgo != nil:
			spec = DateOffsetField{Direction: DatePast, Span: *d.DaysAgo}
		case d.YearsFromNow != nil:
			spec = DateOffsetField{Direction: DateFuture, Span: *d.YearsFromNow}
		default:
			spec = DateOffsetField{}
		}
	default:
		spec = FixedField{Generator: kind}
	}

	if err := spec.Validate(name); err != nil {
		return nil, err
	}
	return spec, nil
}

// ValueFromAny converts a decoded JSON or YAML scalar into a cell value.
func ValueFromAny(v any) Value {
	switch t := v.(type) {
	case nil:
		return Null()
	case string:
		return String(t)
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int64:
		return Int(t)
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return Int(int64(t))
		}
		return Float(t)
	default:
		return String(fmt.Sprint(t))
	}
}

func valuesFromAny(in []any) []Value {
	out := make([]Value, 0, len(in))
	for _, v := range in {
		out = append(out, ValueFromAny(v))
	}
	return out
}

// SchemaField is one named column of a schema.
type SchemaField struct {
	Name string
	Spec FieldSpec
}

// Schema is an immutable named record template.
type Schema struct {
	Name           string
	Fields         []SchemaField
	DefaultColumns []string
}

// Field looks up a field by column name.
func (s *Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f.Spec, true
		}
	}
	return nil, false
}

// FieldNames returns the column names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Validate checks field definitions and that every default column is a declared field.
func (s *Schema) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return NewInvalidFieldDefinitionError("", "schema name is required")
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if f.Spec == nil {
			return NewInvalidFieldDefinitionError(f.Name, "field has no generator")
		}
		if seen[f.Name] {
			return NewInvalidFieldDefinitionError(f.Name, "duplicate field")
		}
		seen[f.Name] = true
		if err := f.Spec.Validate(f.Name); err != nil {
			return err
		}
	}
	for _, c := range s.DefaultColumns {
		if !seen[c] {
			return NewInvalidFieldDefinitionError(c, fmt.Sprintf("default column is not a field of schema %q", s.Name))
		}
	}
	return nil
}

// SchemaCatalog resolves named schemas.
type SchemaCatalog interface {
	Get(name string) (*Schema, error)
	List() []string
	DefaultColumns(name string) ([]string, error)
}

// Locality selects region-specific tables for names, addresses and phone numbers.
type Locality string

const (
	LocalityUS        Locality = "US"
	LocalityUK        Locality = "UK"
	LocalityCanada    Locality = "Canada"
	LocalityAustralia Locality = "Australia"
	LocalityIndia     Locality = "India"
)

// SupportedLocalities lists the localities in display order.
func SupportedLocalities() []Locality {
	return []Locality{LocalityUS, LocalityUK, LocalityCanada, LocalityAustralia, LocalityIndia}
}

// ParseLocality resolves a locality name.
func ParseLocality(name string) (Locality, error) {
	for _, l := range SupportedLocalities() {
		if string(l) == name {
			return l, nil
		}
	}
	return "", NewUnsupportedLocalityError(name)
}
