package handler

import (
	"math"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

var (
	errInvalidJSON = errors.New("invalid JSON body")
	errEmbedded    = errors.New("invalid embedded JSON")
)

// readDecimal reads a lenient numeric value. Numbers and numeric strings are
// parsed; any other value reads as zero. ok is false for null.
func readDecimal(d *jx.Decoder) (v decimal.Decimal, ok bool, err error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, false, err
		}
		v, perr := decimal.NewFromString(n.String())
		if perr != nil {
			return decimal.Zero, true, nil
		}
		return v, true, nil
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, false, err
		}
		v, perr := decimal.NewFromString(strings.TrimSpace(s))
		if perr != nil {
			return decimal.Zero, true, nil
		}
		return v, true, nil
	case jx.Null:
		return decimal.Zero, false, d.Null()
	default:
		return decimal.Zero, true, d.Skip()
	}
}

var (
	maxInt64 = decimal.NewFromInt(math.MaxInt64)
	minInt64 = decimal.NewFromInt(math.MinInt64)
)

// readAmount reads a lenient integer amount, rounding half away from zero.
// Values beyond the int64 range saturate so that range checks see them.
func readAmount(d *jx.Decoder) (v int64, ok bool, err error) {
	dv, ok, err := readDecimal(d)
	if err != nil {
		return 0, false, err
	}
	dv = dv.Round(0)
	switch {
	case dv.GreaterThan(maxInt64):
		return math.MaxInt64, ok, nil
	case dv.LessThan(minInt64):
		return math.MinInt64, ok, nil
	}
	return dv.IntPart(), ok, nil
}

// readString reads a string, accepting bare numbers as their literal text.
// Other values read as "".
func readString(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		return strings.TrimSpace(s), err
	case jx.Number:
		n, err := d.Num()
		return n.String(), err
	default:
		return "", d.Skip()
	}
}

// readEmbedded calls fn with a decoder positioned on a value that may be sent
// either as JSON or as a string containing JSON, as form-style clients do.
// Errors inside an embedded string are reported as errEmbedded since the
// outer decoder is still intact.
func readEmbedded(d *jx.Decoder, fn func(d *jx.Decoder) error) error {
	if d.Next() != jx.String {
		return fn(d)
	}
	s, err := d.Str()
	if err != nil {
		return err
	}
	inner := jx.DecodeStr(s)
	if err := fn(inner); err != nil {
		return errors.Wrap(errEmbedded, err.Error())
	}
	if inner.Next() != jx.Invalid {
		return errEmbedded
	}
	return nil
}

// decodeObject decodes a single JSON object from data.
func decodeObject(data []byte, fn func(d *jx.Decoder, key string) error) error {
	d := jx.DecodeBytes(data)
	if d.Next() != jx.Object {
		return errInvalidJSON
	}
	if err := d.Obj(fn); err != nil {
		return err
	}
	return nil
}
