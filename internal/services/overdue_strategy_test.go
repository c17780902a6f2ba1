package services

import (
	"testing"
	"time"

	"billdesk/internal/core"
)

func TestStrictChecker_IsOverdue(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		due  core.Date
		want bool
	}{
		{"no due date", core.Date{}, false},
		{"due yesterday", core.NewDate(2024, 3, 14), true},
		{"due today at midnight", core.NewDate(2024, 3, 15), true},
		{"due tomorrow", core.NewDate(2024, 3, 16), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (StrictChecker{}).IsOverdue(tt.due, now); got != tt.want {
				t.Errorf("StrictChecker.IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGraceChecker_IsOverdue(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	checker := GraceChecker{Days: 7}
	tests := []struct {
		name string
		due  core.Date
		want bool
	}{
		{"inside grace window", core.NewDate(2024, 3, 10), false},
		{"grace ends today", core.NewDate(2024, 3, 8), true},
		{"well past grace", core.NewDate(2024, 2, 1), true},
		{"not yet due", core.NewDate(2024, 4, 1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checker.IsOverdue(tt.due, now); got != tt.want {
				t.Errorf("GraceChecker.IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMonthEndChecker_IsOverdue(t *testing.T) {
	tests := []struct {
		name string
		due  core.Date
		now  time.Time
		want bool
	}{
		{"same month", core.NewDate(2024, 1, 5), time.Date(2024, 1, 31, 23, 0, 0, 0, time.UTC), false},
		{"next month", core.NewDate(2024, 1, 5), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), true},
		{"december rolls into january", core.NewDate(2023, 12, 20), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := (MonthEndChecker{}).IsOverdue(tt.due, tt.now); got != tt.want {
				t.Errorf("MonthEndChecker.IsOverdue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetOverdueChecker(t *testing.T) {
	tests := []struct {
		policy  string
		days    int
		want    OverdueChecker
		wantErr bool
	}{
		{"", 0, StrictChecker{}, false},
		{PolicyStrict, 3, StrictChecker{}, false},
		{PolicyGrace, 5, GraceChecker{Days: 5}, false},
		{PolicyMonthEnd, 0, MonthEndChecker{}, false},
		{"weekly", 0, nil, true},
		{PolicyGrace, -1, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.policy, func(t *testing.T) {
			got, err := GetOverdueChecker(tt.policy, tt.days)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetOverdueChecker() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("GetOverdueChecker() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

type alwaysOverdue struct{}

func (alwaysOverdue) IsOverdue(core.Date, time.Time) bool { return true }

func TestRegisterOverdueChecker(t *testing.T) {
	RegisterOverdueChecker("always", func(int) OverdueChecker { return alwaysOverdue{} })
	t.Cleanup(func() { delete(overduePolicies, "always") })

	got, err := GetOverdueChecker("always", 0)
	if err != nil {
		t.Fatalf("GetOverdueChecker: %v", err)
	}
	if !got.IsOverdue(core.Date{}, time.Time{}) {
		t.Errorf("custom checker not used")
	}
	found := false
	for _, name := range OverduePolicies() {
		found = found || name == "always"
	}
	if !found {
		t.Errorf("OverduePolicies() = %v", OverduePolicies())
	}
}
