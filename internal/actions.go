package internal

import (
	"fmt"
	"strconv"

	"github.com/lychee-technology/datamimic"
)

// Apply runs one preprocessing action and returns the replacement dataset with a
// description of what changed. The input dataset is not modified.
func Apply(ds *datamimic.Dataset, req datamimic.ActionRequest) (*datamimic.Dataset, string, error) {
	p := req.Params
	switch req.Action {
	case datamimic.ActionRemoveRowsMissing:
		out := RemoveRowsMissing(ds)
		return out, fmt.Sprintf("Removed %d rows with missing values.", ds.NumRows()-out.NumRows()), nil

	case datamimic.ActionRemoveColsHighMissing:
		if p.Threshold == nil {
			return nil, "", datamimic.NewMissingParameterError("threshold")
		}
		out, err := RemoveColsHighMissing(ds, *p.Threshold)
		if err != nil {
			return nil, "", err
		}
		return out, fmt.Sprintf("Removed %d columns with >%s%% missing values.",
			ds.NumCols()-out.NumCols(), strconv.FormatFloat(*p.Threshold, 'f', -1, 64)), nil

	case datamimic.ActionImputeNumerical:
		out, err := ImputeNumerical(ds, p.Columns, p.Strategy)
		if err != nil {
			return nil, "", err
		}
		return out, fmt.Sprintf("Missing numerical values in %d columns imputed using '%s'.",
			len(p.Columns), p.Strategy), nil

	case datamimic.ActionImputeCategorical:
		out, err := ImputeCategorical(ds, p.Columns)
		if err != nil {
			return nil, "", err
		}
		return out, fmt.Sprintf("Missing categorical values in %d columns imputed using mode.", len(p.Columns)), nil

	case datamimic.ActionRemoveDuplicateRows:
		out := RemoveDuplicateRows(ds)
		return out, fmt.Sprintf("Removed %d duplicate rows.", ds.NumRows()-out.NumRows()), nil

	case datamimic.ActionRemoveColumns:
		out, err := RemoveColumns(ds, p.Columns)
		if err != nil {
			return nil, "", err
		}
		return out, fmt.Sprintf("Removed %d selected columns.", ds.NumCols()-out.NumCols()), nil

	case datamimic.ActionChangeDataType:
		out, err := ChangeDataType(ds, p.Column, p.TargetType)
		if err != nil {
			return nil, "", err
		}
		return out, fmt.Sprintf("Column '%s' converted to '%s'.", p.Column, p.TargetType), nil

	case datamimic.ActionScaleColumns:
		out, err := ScaleColumns(ds, p.Columns, p.Method)
		if err != nil {
			return nil, "", err
		}
		return out, fmt.Sprintf("Selected numerical columns scaled using '%s' method.", p.Method), nil

	case datamimic.ActionCleanTextCapitalization:
		out, err := CleanTextCapitalization(ds, p.Columns, p.CaseType)
		if err != nil {
			return nil, "", err
		}
		return out, fmt.Sprintf("Text capitalization applied (%s) to selected columns.", p.CaseType), nil

	case "":
		return nil, "", datamimic.NewMissingParameterError("action")
	}
	return nil, "", datamimic.NewUnknownActionError(string(req.Action))
}
