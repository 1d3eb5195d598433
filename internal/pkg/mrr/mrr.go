// Package mrr normalizes active subscriptions with mixed billing intervals
// into one canonical monthly dollar figure.
package mrr

import "math"

// Billing intervals understood by the normalizer. Anything else is treated
// as non-recurring and excluded.
const (
	IntervalDay   = "day"
	IntervalWeek  = "week"
	IntervalMonth = "month"
	IntervalYear  = "year"
)

// Recurring describes a price's billing cadence.
type Recurring struct {
	Interval      string
	IntervalCount int64
}

// Item is one subscription line item. Recurring is nil for one-time prices.
type Item struct {
	UnitAmountCents int64
	Quantity        int64
	Recurring       *Recurring
}

// Subscription is an active subscription as returned by the billing
// provider. Status filtering happens at the gateway boundary, not here.
type Subscription struct {
	Items []Item
}

// Compute returns the monthly recurring revenue in whole dollars.
//
// Rounding happens per line item, not once at the end. Changing that would
// change the result for fractional-cent items, which has to stay
// reproducible across implementations.
func Compute(subscriptions []Subscription) int64 {
	var totalCents int64

	for _, sub := range subscriptions {
		for _, item := range sub.Items {
			multiplier, ok := monthlyMultiplier(item.Recurring)
			if !ok {
				continue
			}
			quantity := item.Quantity
			if quantity < 1 {
				quantity = 1
			}
			cents := float64(item.UnitAmountCents) * float64(quantity) * multiplier
			totalCents += int64(math.Round(cents))
		}
	}

	return int64(math.Round(float64(totalCents) / 100))
}

func monthlyMultiplier(r *Recurring) (float64, bool) {
	if r == nil {
		return 0, false
	}
	count := r.IntervalCount
	if count < 1 {
		count = 1
	}
	n := float64(count)

	switch r.Interval {
	case IntervalMonth:
		return 1 / n, true
	case IntervalYear:
		return 1 / (12 * n), true
	case IntervalWeek:
		// 52 weeks / 12 months
		return (4 + 1.0/3) / n, true
	case IntervalDay:
		return 30 / n, true
	default:
		return 0, false
	}
}
