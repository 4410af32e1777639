package parking

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is an amount in cents. Rates and bills never use floating point.
type Money int64

// Hours is a billed duration in hundredths of an hour.
type Hours int64

// ParseMoney parses a non-negative decimal with at most two fractional digits.
func ParseMoney(s string) (Money, error) {
	n, err := parseFixed2(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, s)
	}
	return Money(n), nil
}

// MoneyFromFloat converts a decimal amount to the nearest cent.
func MoneyFromFloat(f float64) (Money, error) {
	if f < 0 {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRate, f)
	}
	return ParseMoney(strconv.FormatFloat(f, 'f', 2, 64))
}

func (m Money) String() string { return formatFixed2(int64(m)) }

func (m Money) Float64() float64 { return float64(m) / 100 }

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(bytes.Trim(data, `"`))
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// WholeHours builds an Hours value from a whole number of hours.
func WholeHours(h int64) Hours { return Hours(h * 100) }

func (h Hours) String() string { return formatFixed2(int64(h)) }

func (h Hours) Float64() float64 { return float64(h) / 100 }

func (h Hours) MarshalJSON() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *Hours) UnmarshalJSON(data []byte) error {
	n, err := parseFixed2(string(bytes.Trim(data, `"`)))
	if err != nil {
		return fmt.Errorf("parking: invalid hours %s", data)
	}
	*h = Hours(n)
	return nil
}

func formatFixed2(v int64) string {
	sign := ""
	u := uint64(v)
	if v < 0 {
		sign = "-"
		u = -u
	}
	return fmt.Sprintf("%s%d.%02d", sign, u/100, u%100)
}

// maxWhole keeps whole*100 + 99 within int64.
const maxWhole = (math.MaxInt64 - 99) / 100

func parseFixed2(s string) (int64, error) {
	s = strings.TrimSpace(s)
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid amount")
	}
	if whole == "" {
		whole = "0"
	}
	if hasFrac && (frac == "" || len(frac) > 2) {
		return 0, fmt.Errorf("invalid amount")
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("invalid amount")
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || w > maxWhole {
		return 0, fmt.Errorf("amount out of range")
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, err
	}
	return w*100 + f, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
