package codec

import (
	"strconv"
	"strings"

	"github.com/lychee-technology/datamimic"
)

// naTokens are the cell spellings read as missing.
var naTokens = map[string]struct{}{
	"": {}, "NA": {}, "N/A": {}, "n/a": {}, "NaN": {}, "nan": {}, "-NaN": {}, "-nan": {},
	"NULL": {}, "null": {}, "None": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "<NA>": {},
	"1.#IND": {}, "-1.#IND": {}, "1.#QNAN": {}, "-1.#QNAN": {},
}

func isNA(s string) bool {
	_, ok := naTokens[strings.TrimSpace(s)]
	return ok
}

type columnKind int

const (
	columnInt columnKind = iota
	columnFloat
	columnBool
	columnText
)

// buildDataset turns raw text cells into a typed dataset. Each column takes the narrowest
// of int, float, bool and text that every non-missing cell parses as. Short rows are padded
// with missing cells.
func buildDataset(header []string, records [][]string) *datamimic.Dataset {
	ds := datamimic.NewDataset(dedupeHeader(header))
	width := len(header)

	kinds := make([]columnKind, width)
	for c := 0; c < width; c++ {
		kinds[c] = inferColumn(records, c)
	}

	ds.Rows = make([]datamimic.Row, len(records))
	for r, rec := range records {
		row := make(datamimic.Row, width)
		for c := 0; c < width; c++ {
			if c >= len(rec) || isNA(rec[c]) {
				row[c] = datamimic.Null()
				continue
			}
			row[c] = parseCell(rec[c], kinds[c])
		}
		ds.Rows[r] = row
	}
	return ds
}

func inferColumn(records [][]string, c int) columnKind {
	canInt, canFloat, canBool := true, true, true
	seen := false
	for _, rec := range records {
		if c >= len(rec) || isNA(rec[c]) {
			continue
		}
		seen = true
		s := strings.TrimSpace(rec[c])
		if canInt {
			if _, err := strconv.ParseInt(s, 10, 64); err != nil {
				canInt = false
			}
		}
		if canFloat {
			if _, err := strconv.ParseFloat(s, 64); err != nil {
				canFloat = false
			}
		}
		if canBool {
			if _, ok := parseBoolLiteral(s); !ok {
				canBool = false
			}
		}
	}
	switch {
	case !seen:
		return columnFloat
	case canInt:
		return columnInt
	case canFloat:
		return columnFloat
	case canBool:
		return columnBool
	}
	return columnText
}

func parseCell(raw string, kind columnKind) datamimic.Value {
	s := strings.TrimSpace(raw)
	switch kind {
	case columnInt:
		n, _ := strconv.ParseInt(s, 10, 64)
		return datamimic.Int(n)
	case columnFloat:
		f, _ := strconv.ParseFloat(s, 64)
		return datamimic.Float(f)
	case columnBool:
		b, _ := parseBoolLiteral(s)
		return datamimic.Bool(b)
	}
	return datamimic.String(raw)
}

func parseBoolLiteral(s string) (bool, bool) {
	switch s {
	case "True", "true", "TRUE":
		return true, true
	case "False", "false", "FALSE":
		return false, true
	}
	return false, false
}

// dedupeHeader renames repeated and blank column names: a, a.1, a.2, Unnamed: 3.
func dedupeHeader(header []string) []string {
	out := make([]string, len(header))
	taken := make(map[string]struct{}, len(header))
	suffix := make(map[string]int)
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" {
			name = "Unnamed: " + strconv.Itoa(i)
		}
		candidate := name
		for {
			if _, dup := taken[candidate]; !dup {
				break
			}
			suffix[name]++
			candidate = name + "." + strconv.Itoa(suffix[name])
		}
		taken[candidate] = struct{}{}
		out[i] = candidate
	}
	return out
}
