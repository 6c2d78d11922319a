package domain

import (
	"fmt"
	"strings"
	"time"
)

// Period selects the power-usage series granularity.
type Period string

const (
	PeriodDay   Period = "day"   // 24 hourly points
	PeriodMonth Period = "month" // 30 daily points
	PeriodYear  Period = "year"  // 12 monthly points
)

// ParsePeriod never fails: anything unrecognised falls back to PeriodDay.
func ParsePeriod(s string) Period {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case PeriodMonth:
		return PeriodMonth
	case PeriodYear:
		return PeriodYear
	default:
		return PeriodDay
	}
}

// Granularity selects the analytics bucket size.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
	GranularityYearly  Granularity = "yearly"
)

// ParseGranularity defaults to daily when s is empty.
func ParseGranularity(s string) (Granularity, error) {
	switch g := Granularity(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GranularityDaily, nil
	case GranularityDaily, GranularityMonthly, GranularityYearly:
		return g, nil
	default:
		return "", fmt.Errorf("unknown granularity %q (want daily, monthly or yearly)", s)
	}
}

// Label formats t as the period label of the bucket containing it.
func (g Granularity) Label(t time.Time) string {
	switch g {
	case GranularityMonthly:
		return t.Format("2006-01")
	case GranularityYearly:
		return t.Format("2006")
	default:
		return t.Format("2006-01-02")
	}
}
