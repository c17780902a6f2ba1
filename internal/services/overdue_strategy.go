// This file implements the Strategy Pattern for overdue checking. Each sweep
// policy decides, from an invoice's due date, whether it is overdue now.

package services

import (
	"fmt"
	"sort"
	"time"

	"billdesk/internal/core"
)

// OverdueChecker decides whether an invoice due on due is overdue at now.
type OverdueChecker interface {
	IsOverdue(due core.Date, now time.Time) bool
}

// StrictChecker flags an invoice as soon as its due date has passed.
type StrictChecker struct{}

func (StrictChecker) IsOverdue(due core.Date, now time.Time) bool {
	if due.IsZero() {
		return false
	}
	return due.Before(now)
}

// GraceChecker allows a number of whole days after the due date.
type GraceChecker struct {
	Days int
}

func (g GraceChecker) IsOverdue(due core.Date, now time.Time) bool {
	if due.IsZero() {
		return false
	}
	return due.AddDate(0, 0, g.Days).Before(now)
}

// MonthEndChecker tolerates late payment until the due month is over.
type MonthEndChecker struct{}

func (MonthEndChecker) IsOverdue(due core.Date, now time.Time) bool {
	if due.IsZero() {
		return false
	}
	d := due.UTC()
	firstOfNext := time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return !now.Before(firstOfNext)
}

// Sweep policies.
const (
	PolicyStrict   = "strict"
	PolicyGrace    = "grace"
	PolicyMonthEnd = "month_end"
)

// overduePolicies maps policy names to checker constructors.
var overduePolicies = map[string]func(graceDays int) OverdueChecker{
	PolicyStrict:   func(int) OverdueChecker { return StrictChecker{} },
	PolicyGrace:    func(days int) OverdueChecker { return GraceChecker{Days: days} },
	PolicyMonthEnd: func(int) OverdueChecker { return MonthEndChecker{} },
}

// GetOverdueChecker returns the checker for a policy name. An empty name
// selects the strict policy.
func GetOverdueChecker(policy string, graceDays int) (OverdueChecker, error) {
	if policy == "" {
		policy = PolicyStrict
	}
	newChecker, ok := overduePolicies[policy]
	if !ok {
		return nil, fmt.Errorf("unknown sweep policy: %s", policy)
	}
	if graceDays < 0 {
		return nil, fmt.Errorf("grace days cannot be negative: %d", graceDays)
	}
	return newChecker(graceDays), nil
}

// RegisterOverdueChecker adds or replaces a named policy.
func RegisterOverdueChecker(policy string, newChecker func(graceDays int) OverdueChecker) {
	overduePolicies[policy] = newChecker
}

// OverduePolicies lists the registered policy names in order.
func OverduePolicies() []string {
	out := make([]string, 0, len(overduePolicies))
	for name := range overduePolicies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
