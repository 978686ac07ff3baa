package scrape

import "fmt"

// Quota is an optional cap on the number of accepted orders. The zero value
// is a cap of zero, use Unlimited for no cap.
type Quota struct {
	limited bool
	max     int
}

func Unlimited() Quota {
	return Quota{}
}

// Cap returns a quota of at most n accepted orders, negative n is treated as 0.
func Cap(n int) Quota {
	return Quota{limited: true, max: max(n, 0)}
}

// FromMaxOrders maps the max_orders setting to a quota, negative values mean
// unlimited.
func FromMaxOrders(n int) Quota {
	if n < 0 {
		return Unlimited()
	}
	return Cap(n)
}

func (q Quota) Limited() bool {
	return q.limited
}

// Max returns the cap, -1 when unlimited.
func (q Quota) Max() int {
	if !q.limited {
		return -1
	}
	return q.max
}

// Reached reports whether accepted orders exhaust the quota.
func (q Quota) Reached(accepted int) bool {
	return q.limited && accepted >= q.max
}

// Remaining returns the quota left for the next scope once accepted orders
// were counted against it.
func (q Quota) Remaining(accepted int) Quota {
	if !q.limited {
		return q
	}
	return Cap(q.max - accepted)
}

func (q Quota) String() string {
	if !q.limited {
		return "unlimited"
	}
	return fmt.Sprint(q.max)
}
