package internal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lychee-technology/datamimic"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SchemaCatalog implements datamimic.SchemaCatalog with the built-in schemas plus any loaded from disk.
type SchemaCatalog struct {
	mu      sync.RWMutex
	schemas map[string]*datamimic.Schema
}

// NewSchemaCatalog returns a catalog preloaded with the built-in schemas.
func NewSchemaCatalog() *SchemaCatalog {
	c := &SchemaCatalog{schemas: make(map[string]*datamimic.Schema)}
	for _, s := range builtinSchemas() {
		if err := c.Register(s); err != nil {
			panic(fmt.Sprintf("built-in schema %s is invalid: %v", s.Name, err))
		}
	}
	return c
}

// NewFileSchemaCatalog returns the built-in catalog extended with every *.json, *.yaml and
// *.yml schema file found in dir. A file schema with a built-in name replaces it.
func NewFileSchemaCatalog(dir string) (*SchemaCatalog, error) {
	c := NewSchemaCatalog()
	if dir == "" {
		return c, nil
	}
	if err := c.LoadDirectory(dir); err != nil {
		return nil, err
	}
	return c, nil
}

// Register validates and adds a schema.
func (c *SchemaCatalog) Register(s *datamimic.Schema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[s.Name] = s
	return nil
}

// Get resolves a schema by name.
func (c *SchemaCatalog) Get(name string) (*datamimic.Schema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.schemas[name]
	if !ok {
		return nil, datamimic.NewUnknownSchemaError(name)
	}
	return s, nil
}

// List returns schema names sorted alphabetically.
func (c *SchemaCatalog) List() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultColumns returns a copy of a schema's default column list.
func (c *SchemaCatalog) DefaultColumns(name string) ([]string, error) {
	s, err := c.Get(name)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(s.DefaultColumns))
	copy(out, s.DefaultColumns)
	return out, nil
}

// schemaFile is the on-disk shape of a schema definition.
type schemaFile struct {
	Name           string                      `json:"name" yaml:"name"`
	DefaultColumns []string                    `json:"default_columns" yaml:"default_columns"`
	Fields         []datamimic.FieldDefinition `json:"fields" yaml:"fields"`
}

// LoadDirectory registers every schema file in dir.
func (c *SchemaCatalog) LoadDirectory(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return datamimic.NewDatamimicError(datamimic.ErrorTypeInternal, datamimic.ErrCodeSchemaLoad,
			fmt.Sprintf("failed to read schema directory %s", dir)).WithCause(err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		s, err := loadSchemaFile(path)
		if err != nil {
			return err
		}
		if err := c.Register(s); err != nil {
			return datamimic.NewDatamimicError(datamimic.ErrorTypeValidation, datamimic.ErrCodeSchemaLoad,
				fmt.Sprintf("invalid schema file %s", path)).WithCause(err)
		}
		loaded++
	}
	zap.S().Infow("loaded schema files", "directory", dir, "count", loaded)
	return nil
}

func loadSchemaFile(path string) (*datamimic.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, datamimic.NewDatamimicError(datamimic.ErrorTypeInternal, datamimic.ErrCodeSchemaLoad,
			fmt.Sprintf("failed to read schema file %s", path)).WithCause(err)
	}

	var raw schemaFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &raw)
	default:
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, datamimic.NewDatamimicError(datamimic.ErrorTypeValidation, datamimic.ErrCodeSchemaLoad,
			fmt.Sprintf("failed to parse schema file %s", path)).WithCause(err)
	}

	if raw.Name == "" {
		raw.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	s := &datamimic.Schema{Name: raw.Name}
	for _, def := range raw.Fields {
		spec, err := def.FieldSpec()
		if err != nil {
			return nil, err
		}
		s.Fields = append(s.Fields, datamimic.SchemaField{Name: def.Name, Spec: spec})
	}
	s.DefaultColumns = raw.DefaultColumns
	if len(s.DefaultColumns) == 0 {
		s.DefaultColumns = s.FieldNames()
	}
	return s, nil
}

func fixed(kind datamimic.GeneratorKind) datamimic.FieldSpec {
	return datamimic.FixedField{Generator: kind}
}

func integer(low, high float64) datamimic.FieldSpec {
	return datamimic.BoundedField{Generator: datamimic.GeneratorInteger, Low: low, High: high}
}

func float(low, high float64, places int) datamimic.FieldSpec {
	return datamimic.BoundedField{Generator: datamimic.GeneratorFloat, Low: low, High: high, DecimalPlaces: places}
}

func categorical(values ...string) datamimic.FieldSpec {
	out := make([]datamimic.Value, len(values))
	for i, v := range values {
		out[i] = datamimic.String(v)
	}
	return datamimic.CategoricalField{Values: out}
}

func pastDays(days int) datamimic.FieldSpec {
	return datamimic.DateOffsetField{Direction: datamimic.DatePast, Span: days}
}

func futureYears(years int) datamimic.FieldSpec {
	return datamimic.DateOffsetField{Direction: datamimic.DateFuture, Span: years}
}

func withDefaults(s *datamimic.Schema) *datamimic.Schema {
	s.DefaultColumns = s.FieldNames()
	return s
}

func builtinSchemas() []*datamimic.Schema {
	return []*datamimic.Schema{
		withDefaults(&datamimic.Schema{
			Name: "medical",
			Fields: []datamimic.SchemaField{
				{Name: "Patient_ID", Spec: fixed(datamimic.GeneratorUUID)},
				{Name: "Name", Spec: fixed(datamimic.GeneratorFullName)},
				{Name: "Age", Spec: integer(18, 90)},
				{Name: "Gender", Spec: categorical("Male", "Female", "Other")},
				{Name: "Contact", Spec: fixed(datamimic.GeneratorPhoneNumber)},
				{Name: "Symptom_1", Spec: categorical("Fever", "Cough", "Headache", "Fatigue", "Sore throat")},
				{Name: "Symptom_2", Spec: categorical("Nausea", "Fatigue", "Rash", "Dizziness", "Sore Throat")},
				{Name: "Diagnosis", Spec: categorical("Flu", "Cold", "Allergy", "Fracture", "Pneumonia", "Bronchitis",
					"Diabetes", "Hypertension", "COVID-19", "Migraine", "Asthma")},
				{Name: "Medications", Spec: categorical("Insulin", "Lisinopril", "Paracetamol", "Aspirin", "Albuterol",
					"Amoxicillin", "Ibuprofen")},
				{Name: "DoctorVisit_Date", Spec: pastDays(365)},
				{Name: "Follow_Up", Spec: categorical("Yes", "No")},
			},
		}),
		withDefaults(&datamimic.Schema{
			Name: "finance",
			Fields: []datamimic.SchemaField{
				{Name: "Transaction_ID", Spec: fixed(datamimic.GeneratorUUID)},
				{Name: "Name", Spec: fixed(datamimic.GeneratorFullName)},
				{Name: "Amount", Spec: float(10, 5000, 2)},
				{Name: "Transaction_Type", Spec: categorical("Debit", "Credit", "Transfer")},
				{Name: "Account_Number", Spec: fixed(datamimic.GeneratorAccountNumber)},
				{Name: "Bank_Name", Spec: categorical("State Bank of India", "HDFC Bank", "ICICI Bank", "Axis Bank",
					"JP Morgan Chase", "Bank of America", "HSBC", "RBC Royal Bank", "Commonwealth Bank of Australia",
					"National Bank of Canada")},
				{Name: "Transaction_Date", Spec: pastDays(365)},
			},
		}),
		withDefaults(&datamimic.Schema{
			Name: "retail",
			Fields: []datamimic.SchemaField{
				{Name: "Order_ID", Spec: fixed(datamimic.GeneratorUUID)},
				{Name: "Customer_Name", Spec: fixed(datamimic.GeneratorFullName)},
				{Name: "Product", Spec: categorical("Laptop", "Mobile Phone", "Headphones", "Smartwatch", "Tablet",
					"T-Shirt", "Jeans", "Sneakers", "Dress", "Coffee Maker", "Blender", "Toaster", "Vacuum Cleaner",
					"Microwave", "Refrigerator")},
				{Name: "Quantity", Spec: integer(1, 10)},
				{Name: "Price", Spec: float(5, 500, 2)},
				{Name: "Payment_Method", Spec: categorical("Credit Card", "Debit Card", "Cash", "Online Payment", "UPI",
					"Bank Transfer", "PayPal")},
				{Name: "Order_Date", Spec: pastDays(365)},
			},
		}),
		withDefaults(&datamimic.Schema{
			Name: "education",
			Fields: []datamimic.SchemaField{
				{Name: "Student_ID", Spec: fixed(datamimic.GeneratorUUID)},
				{Name: "Name", Spec: fixed(datamimic.GeneratorFullName)},
				{Name: "Age", Spec: integer(5, 25)},
				{Name: "Gender", Spec: categorical("Male", "Female", "Other")},
				{Name: "Course", Spec: categorical("Engineering", "Medicine", "Arts", "Business", "Law",
					"Computer Science", "Physics", "Chemistry", "Biology", "History", "Literature")},
				{Name: "Year", Spec: integer(1, 4)},
				{Name: "Grade", Spec: categorical("A", "B", "C", "D", "F")},
				{Name: "GPA", Spec: float(0, 4, 2)},
				{Name: "University", Spec: fixed(datamimic.GeneratorUniversityName)},
				{Name: "Graduation_Year", Spec: integer(2000, 2030)},
			},
		}),
		withDefaults(&datamimic.Schema{
			Name: "automotive",
			Fields: []datamimic.SchemaField{
				{Name: "Vehicle_ID", Spec: fixed(datamimic.GeneratorUUID)},
				{Name: "Owner_Name", Spec: fixed(datamimic.GeneratorFullName)},
				{Name: "Make", Spec: categorical("Toyota", "Honda", "Ford", "BMW", "Tesla", "Mercedes-Benz", "Audi",
					"Hyundai", "Kia", "Nissan")},
				{Name: "Model", Spec: fixed(datamimic.GeneratorModelName)},
				{Name: "Year", Spec: integer(2000, 2023)},
				{Name: "License_Plate", Spec: fixed(datamimic.GeneratorLicensePlate)},
				{Name: "Mileage", Spec: integer(1000, 200000)},
				{Name: "Fuel_Type", Spec: categorical("Petrol", "Diesel", "Electric", "Hybrid")},
				{Name: "Service_Date", Spec: pastDays(365)},
				{Name: "Next_Service_Due", Spec: futureYears(3)},
			},
		}),
	}
}
