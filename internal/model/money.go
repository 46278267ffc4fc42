package model

import (
	"bytes"
	"errors"
	"strconv"
	"strings"
)

// Money is an amount in minor units (paise/cents). It is encoded in JSON as
// a decimal number with two fractional digits.
type Money int64

var errMoney = errors.New("amount must be a number with at most two decimal places")

// MarshalJSON writes m as a decimal number, e.g. 1050 -> 10.50.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m Money) String() string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	frac := strconv.FormatInt(v%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + strconv.FormatInt(v/100, 10) + "." + frac
}

// UnmarshalJSON accepts a JSON number (or numeric string) with up to two
// fractional digits.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	s := strings.Trim(string(b), `"`)
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMoney parses a decimal string such as "12", "12.5" or "-0.75".
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errMoney
	}
	neg := false
	if s[0] == '-' || s[0] == '+' {
		neg = s[0] == '-'
		s = s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && !hasFrac {
		return 0, errMoney
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 || (hasFrac && frac == "") {
		return 0, errMoney
	}
	if !digits(whole) || (frac != "" && !digits(frac)) {
		return 0, errMoney
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w < 0 {
		return 0, errMoney
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || f < 0 {
		return 0, errMoney
	}
	if w > (1<<62)/100 {
		return 0, errMoney
	}
	v := w*100 + f
	if neg {
		v = -v
	}
	return Money(v), nil
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
