package internal

import (
	"math"
	"sort"
	"strings"

	"github.com/lychee-technology/datamimic"
)

// numericValues returns the non-null numeric cells of a column.
func numericValues(cells []datamimic.Value) []float64 {
	out := make([]float64, 0, len(cells))
	for _, v := range cells {
		if f, ok := v.Float64(); ok {
			out = append(out, f)
		}
	}
	return out
}

func nonNull(cells []datamimic.Value) []datamimic.Value {
	return Filter(cells, func(v datamimic.Value) bool { return !v.IsNull() })
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	// Kahan summation.
	var sum, c float64
	for _, x := range xs {
		y := x - c
		t := sum + y
		c = (t - sum) - y
		sum = t
	}
	return sum / float64(len(xs))
}

// stdDev returns the standard deviation with ddof delta degrees of freedom.
// It is NaN when fewer than ddof+1 values are present.
func stdDev(xs []float64, ddof int) float64 {
	n := len(xs)
	if n-ddof <= 0 {
		return math.NaN()
	}
	m := mean(xs)
	var ss float64
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(n-ddof))
}

// sampleStd is the ddof=1 standard deviation used for summaries and variance injection.
func sampleStd(xs []float64) float64 { return stdDev(xs, 1) }

// populationStd is the ddof=0 standard deviation used for standardization.
func populationStd(xs []float64) float64 { return stdDev(xs, 0) }

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	s := make([]float64, len(xs))
	copy(s, xs)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}

func minMax(xs []float64) (float64, float64) {
	if len(xs) == 0 {
		return math.NaN(), math.NaN()
	}
	lo, hi := xs[0], xs[0]
	for _, x := range xs[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

// modeValue returns the most frequent non-null cell. Ties resolve to the smallest value.
func modeValue(cells []datamimic.Value) (datamimic.Value, bool) {
	counts := make(map[string]int)
	first := make(map[string]datamimic.Value)
	for _, v := range cells {
		if v.IsNull() {
			continue
		}
		k := v.Key()
		if _, ok := first[k]; !ok {
			first[k] = v
		}
		counts[k]++
	}
	if len(counts) == 0 {
		return datamimic.Null(), false
	}

	var best datamimic.Value
	bestCount := -1
	for k, n := range counts {
		v := first[k]
		if n > bestCount || (n == bestCount && compareValues(v, best) < 0) {
			best, bestCount = v, n
		}
	}
	return best, true
}

// distinctCount counts distinct non-null cells.
func distinctCount(cells []datamimic.Value) int {
	seen := NewSet[string]()
	for _, v := range cells {
		if !v.IsNull() {
			seen.Add(v.Key())
		}
	}
	return seen.Size()
}

func kindRank(k datamimic.ValueKind) int {
	switch k {
	case datamimic.KindInt, datamimic.KindFloat:
		return 0
	case datamimic.KindBool:
		return 1
	case datamimic.KindDate:
		return 2
	case datamimic.KindString:
		return 3
	default:
		return 4
	}
}

// compareValues orders cells: numbers, then booleans, dates, strings and finally nulls.
func compareValues(a, b datamimic.Value) int {
	ra, rb := kindRank(a.Kind()), kindRank(b.Kind())
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 0:
		fa, _ := a.Float64()
		fb, _ := b.Float64()
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 1:
		switch {
		case a.BoolValue() == b.BoolValue():
			return 0
		case !a.BoolValue():
			return -1
		}
		return 1
	case 2:
		return a.Time().Compare(b.Time())
	case 3:
		return strings.Compare(a.Str(), b.Str())
	}
	return 0
}
