package datamimic

import "encoding/json"

// Statistic is a derived figure that may be undefined for a column. Undefined renders as "N/A".
type Statistic struct {
	defined bool
	number  *float64
	text    string
}

// NumberStat wraps a rounded numeric statistic.
func NumberStat(v float64) Statistic {
	return Statistic{defined: true, number: &v}
}

// TextStat wraps a textual statistic such as a categorical mode or an ISO date.
func TextStat(s string) Statistic {
	return Statistic{defined: true, text: s}
}

// NotApplicableStat is the undefined statistic.
func NotApplicableStat() Statistic { return Statistic{} }

func (s Statistic) Defined() bool { return s.defined }

// Number returns the numeric value when the statistic is numeric.
func (s Statistic) Number() (float64, bool) {
	if !s.defined || s.number == nil {
		return 0, false
	}
	return *s.number, true
}

func (s Statistic) String() string {
	if !s.defined {
		return NotApplicable
	}
	if s.number != nil {
		b, _ := json.Marshal(*s.number)
		return string(b)
	}
	return s.text
}

func (s Statistic) MarshalJSON() ([]byte, error) {
	if !s.defined {
		return json.Marshal(NotApplicable)
	}
	if s.number != nil {
		return json.Marshal(*s.number)
	}
	return json.Marshal(s.text)
}

func (s *Statistic) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case float64:
		*s = NumberStat(t)
	case string:
		if t == NotApplicable {
			*s = NotApplicableStat()
		} else {
			*s = TextStat(t)
		}
	default:
		*s = NotApplicableStat()
	}
	return nil
}

// ColumnSummary describes one column. It is recomputed on demand.
type ColumnSummary struct {
	Name              string     `json:"name"`
	Type              ColumnType `json:"dtype"`
	NonNullCount      int        `json:"non_null_count"`
	MissingPercentage string     `json:"missing_percentage"`
	UniqueValues      int        `json:"unique_values"`
	Min               Statistic  `json:"min"`
	Max               Statistic  `json:"max"`
	Mean              Statistic  `json:"mean"`
	Median            Statistic  `json:"median"`
	Mode              Statistic  `json:"mode"`
	Std               Statistic  `json:"std"`
}

// DatasetSummary describes a whole dataset.
type DatasetSummary struct {
	TotalRows     int             `json:"total_rows"`
	TotalColumns  int             `json:"total_columns"`
	MissingValues string          `json:"missing_values"`
	DataVariance  string          `json:"data_variance"`
	MemoryBytes   int64           `json:"memory_bytes"`
	FileSize      string          `json:"file_size"`
	Columns       []ColumnSummary `json:"column_details"`
}
