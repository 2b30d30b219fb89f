package internal

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/lychee-technology/datamimic"
	"github.com/shopspring/decimal"
)

// genEnv is the per-call generation state. It is never shared between Generate calls.
type genEnv struct {
	rng    *rand.Rand
	faker  *gofakeit.Faker
	locale *localeTable
	today  time.Time
}

func newGenEnv(seed uint64, locale *localeTable, now time.Time) *genEnv {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	y, m, d := now.UTC().Date()
	return &genEnv{
		rng:    rand.New(src),
		faker:  gofakeit.NewFaker(src, false),
		locale: locale,
		today:  time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
	}
}

// Read lets the env act as the entropy source for uuid.NewRandomFromReader.
func (e *genEnv) Read(p []byte) (int, error) {
	for i := 0; i < len(p); i += 8 {
		v := e.rng.Uint64()
		for j := 0; j < 8 && i+j < len(p); j++ {
			p[i+j] = byte(v >> (8 * j))
		}
	}
	return len(p), nil
}

// cellGenerator produces the value of one column for the given row.
type cellGenerator func(row int) (datamimic.Value, error)

// newCellGenerator builds the generator for an independent field.
func newCellGenerator(spec datamimic.FieldSpec, env *genEnv) (cellGenerator, error) {
	switch f := spec.(type) {
	case datamimic.FixedField:
		return fixedGenerator(f.Generator, env)
	case datamimic.BoundedField:
		return boundedGenerator(f, env), nil
	case datamimic.CategoricalField:
		values := f.Values
		return func(int) (datamimic.Value, error) {
			if len(values) == 0 {
				return datamimic.Null(), fmt.Errorf("categorical field has no values")
			}
			return pick(env.rng, values), nil
		}, nil
	case datamimic.DateOffsetField:
		return dateGenerator(f, env), nil
	case datamimic.SequenceField:
		shuffled := make([]datamimic.Value, len(f.Values))
		copy(shuffled, f.Values)
		env.rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		return func(row int) (datamimic.Value, error) {
			if len(shuffled) == 0 {
				return datamimic.Null(), fmt.Errorf("sequence field has no values")
			}
			return shuffled[row%len(shuffled)], nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported field spec %T", spec)
	}
}

func fixedGenerator(kind datamimic.GeneratorKind, env *genEnv) (cellGenerator, error) {
	str := func(fn func() string) cellGenerator {
		return func(int) (datamimic.Value, error) { return datamimic.String(fn()), nil }
	}

	switch kind {
	case datamimic.GeneratorUUID:
		return func(int) (datamimic.Value, error) {
			id, err := uuid.NewRandomFromReader(env)
			if err != nil {
				return datamimic.Null(), err
			}
			return datamimic.String(id.String()), nil
		}, nil
	case datamimic.GeneratorFullName:
		return str(func() string {
			return pick(env.rng, env.locale.firstNames) + " " + pick(env.rng, env.locale.lastNames)
		}), nil
	case datamimic.GeneratorPhoneNumber:
		return str(func() string { return fillPattern(env.rng, pick(env.rng, env.locale.phoneFormats)) }), nil
	case datamimic.GeneratorStreetAddress:
		return str(func() string {
			return fmt.Sprintf(env.locale.streetFormat, env.faker.StreetNumber(), env.faker.StreetName(), env.faker.StreetSuffix())
		}), nil
	case datamimic.GeneratorCity:
		return str(func() string { return pick(env.rng, env.locale.cities) }), nil
	case datamimic.GeneratorCountry:
		return str(env.faker.Country), nil
	case datamimic.GeneratorZipCode:
		return str(func() string { return fillPattern(env.rng, env.locale.postcodeFormat) }), nil
	case datamimic.GeneratorEmailAddress:
		return str(env.faker.Email), nil
	case datamimic.GeneratorWord:
		return str(env.faker.Word), nil
	case datamimic.GeneratorBoolean:
		return func(int) (datamimic.Value, error) { return datamimic.Bool(env.rng.IntN(2) == 1), nil }, nil
	case datamimic.GeneratorAccountNumber:
		return str(func() string { return strconv.FormatInt(1000000000+env.rng.Int64N(9000000000), 10) }), nil
	case datamimic.GeneratorUniversityName:
		return str(func() string { return pick(env.rng, universities) }), nil
	case datamimic.GeneratorLicensePlate:
		return str(func() string { return fillPattern(env.rng, "???###") }), nil
	case datamimic.GeneratorModelName:
		return nil, fmt.Errorf("%s is a dependent generator", kind)
	default:
		return nil, fmt.Errorf("unknown generator type %q", kind)
	}
}

func boundedGenerator(f datamimic.BoundedField, env *genEnv) cellGenerator {
	if f.Generator == datamimic.GeneratorInteger {
		low, high := math.Ceil(f.Low), math.Floor(f.High)
		return func(int) (datamimic.Value, error) {
			if !datamimic.FitsInt64(low) || !datamimic.FitsInt64(high) {
				return datamimic.Null(), fmt.Errorf("range [%v, %v] does not fit in a 64-bit integer", f.Low, f.High)
			}
			lo, hi := int64(low), int64(high)
			if lo > hi {
				return datamimic.Null(), fmt.Errorf("range [%v, %v] contains no integer", f.Low, f.High)
			}
			// hi-lo taken in uint64 so it cannot overflow
			span := uint64(hi) - uint64(lo)
			if span == math.MaxUint64 {
				return datamimic.Int(int64(env.rng.Uint64())), nil
			}
			return datamimic.Int(lo + int64(env.rng.Uint64N(span+1))), nil
		}
	}
	return func(int) (datamimic.Value, error) {
		r := env.rng.Float64()
		v := f.Low + r*(f.High-f.Low)
		if math.IsInf(f.High-f.Low, 0) {
			v = f.Low*(1-r) + f.High*r
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return datamimic.Null(), fmt.Errorf("range [%v, %v] produced a non-finite value", f.Low, f.High)
		}
		return datamimic.Float(roundTo(v, f.DecimalPlaces)), nil
	}
}

func dateGenerator(f datamimic.DateOffsetField, env *genEnv) cellGenerator {
	start, end := env.today, env.today
	switch f.Direction {
	case datamimic.DatePast:
		if f.Span > 0 {
			start = env.today.AddDate(0, 0, -f.Span)
		}
	case datamimic.DateFuture:
		if f.Span > 0 {
			end = env.today.AddDate(f.Span, 0, 0)
		}
	}
	// Both ends are UTC midnights, so the Unix difference is a whole number of days.
	days := (end.Unix() - start.Unix()) / secondsPerDay
	return func(int) (datamimic.Value, error) {
		return datamimic.Date(start.AddDate(0, 0, int(env.rng.Int64N(days+1)))), nil
	}
}

const secondsPerDay = 24 * 60 * 60

// resolveModelName picks a model conditioned on the row's make.
func resolveModelName(env *genEnv, source datamimic.Value) datamimic.Value {
	if source.IsNull() {
		return datamimic.String(datamimic.NotApplicable)
	}
	models, ok := modelsByMake[source.String()]
	if !ok {
		models = genericModels
	}
	return datamimic.String(pick(env.rng, models))
}

// roundTo rounds half away from zero to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(int32(places)).Float64()
	return f
}
