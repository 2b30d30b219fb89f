package codec

import (
	"bytes"
	"encoding/json"

	"github.com/lychee-technology/datamimic"
)

// EncodeJSON writes the dataset as an indented array of records whose keys follow the
// column order. Missing cells are written as null.
func EncodeJSON(ds *datamimic.Dataset) ([]byte, error) {
	keys := make([][]byte, len(ds.Columns))
	for c, name := range ds.Columns {
		k, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		keys[c] = k
	}

	var buf bytes.Buffer
	buf.WriteString("[")
	for r, row := range ds.Rows {
		if r > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n    {")
		for c, v := range row {
			if c > 0 {
				buf.WriteString(",")
			}
			val, err := json.Marshal(v)
			if err != nil {
				return nil, err
			}
			buf.WriteString("\n        ")
			buf.Write(keys[c])
			buf.WriteString(": ")
			buf.Write(val)
		}
		buf.WriteString("\n    }")
	}
	if len(ds.Rows) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]")
	return buf.Bytes(), nil
}
