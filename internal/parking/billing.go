package parking

import (
	"fmt"
	"time"
)

// Granularity is the rounding policy turning elapsed time into billable hours.
type Granularity string

const (
	// GranularityHour rounds up to the next whole hour.
	GranularityHour Granularity = "hour"
	// GranularityHundredth rounds half-up to 0.01 h.
	GranularityHundredth Granularity = "hundredth"
)

func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(s); g {
	case GranularityHour, GranularityHundredth:
		return g, nil
	}
	return "", fmt.Errorf("parking: unknown billing granularity %q", s)
}

// RatePolicy selects which hourly rate bills a session.
type RatePolicy string

const (
	// RatePolicyExit bills at the spot's rate read when the session closes.
	RatePolicyExit RatePolicy = "exit"
	// RatePolicyEntry bills at the rate captured on the session at entry.
	RatePolicyEntry RatePolicy = "entry"
)

func ParseRatePolicy(s string) (RatePolicy, error) {
	switch p := RatePolicy(s); p {
	case RatePolicyExit, RatePolicyEntry:
		return p, nil
	}
	return "", fmt.Errorf("parking: unknown rate policy %q", s)
}

// minimumHours is the floor for every closed session, including zero-length ones.
const minimumHours = Hours(100)

// Calculator is the Billing Calculator. It is pure and safe for concurrent use.
type Calculator struct {
	Granularity Granularity
}

func NewCalculator(g Granularity) Calculator {
	return Calculator{Granularity: g}
}

// Compute returns the billed hours and the amount due for the interval at rate.
func (c Calculator) Compute(entry, exit time.Time, rate Money) (Bill, error) {
	elapsed := exit.Sub(entry)
	if elapsed < 0 {
		return Bill{}, fmt.Errorf("%w: entry %s exit %s", ErrInvalidInterval,
			entry.Format(time.RFC3339), exit.Format(time.RFC3339))
	}
	if rate < 0 {
		return Bill{}, fmt.Errorf("%w: %s", ErrInvalidRate, rate)
	}

	hours := c.billableHours(elapsed)
	amount := (int64(hours)*int64(rate) + 50) / 100

	return Bill{Rate: rate, Hours: hours, Amount: Money(amount)}, nil
}

func (c Calculator) billableHours(elapsed time.Duration) Hours {
	whole := int64(elapsed / time.Hour)
	rem := int64(elapsed % time.Hour)

	var h Hours
	switch c.Granularity {
	case GranularityHundredth:
		h = Hours(whole*100 + (rem*100+int64(time.Hour)/2)/int64(time.Hour))
	default:
		if rem > 0 {
			whole++
		}
		h = WholeHours(whole)
	}

	if h < minimumHours {
		return minimumHours
	}
	return h
}
