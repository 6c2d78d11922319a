// Package advisor turns an hourly power series into energy saving suggestions.
package advisor

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/milad/smartmeter/internal/domain"
)

// Recommendation categories, in the order they are reported.
const (
	CategoryCritical   = "Critical"
	CategoryHigh       = "High Priority"
	CategoryMedium     = "Medium Priority"
	CategoryGeneral    = "General"
	CategoryBehavioral = "Behavioral"
)

const (
	standbyThresholdW  = 50
	continuousACHours  = 6
	highACShare        = 0.5
	extendedFanShare   = 0.5
	savingsPerConflict = 0.5 // kWh per simultaneous AC+heater hour
)

// ErrInvalidLimit is returned for a negative limit.
var ErrInvalidLimit = errors.New("limit must be >= 0")

// Findings summarises the usage patterns behind the recommendations.
type Findings struct {
	PeakHours         []int
	Simultaneous      int
	LongestACRun      int
	StandbyHours      int
	StandbyKWh        float64
	ACShare           float64
	FanActiveShare    float64
	TotalKWh          float64
	MeanHourlyPowerW  float64
	PeakHourThreshold float64
}

// Analyze inspects points, each taken as one hour of usage. Hours of day are
// read in loc.
func Analyze(points []domain.UsagePoint, loc *time.Location) Findings {
	if loc == nil {
		loc = time.UTC
	}
	var f Findings
	if len(points) == 0 {
		return f
	}

	byHour := lo.GroupBy(points, func(p domain.UsagePoint) int { return p.Timestamp.In(loc).Hour() })
	hourMeans := make(map[int]float64, len(byHour))
	for h, pts := range byHour {
		hourMeans[h] = lo.SumBy(pts, func(p domain.UsagePoint) float64 { return p.Power }) / float64(len(pts))
	}
	means := lo.Values(hourMeans)
	mean, std := meanStd(means)
	f.MeanHourlyPowerW = mean
	f.PeakHourThreshold = mean + std
	for h := 0; h < 24; h++ {
		if m, ok := hourMeans[h]; ok && len(means) > 1 && m > f.PeakHourThreshold {
			f.PeakHours = append(f.PeakHours, h)
		}
	}

	totalPower := lo.SumBy(points, func(p domain.UsagePoint) float64 { return p.Power })
	f.TotalKWh = totalPower / 1000
	if totalPower > 0 {
		f.ACShare = lo.SumBy(points, func(p domain.UsagePoint) float64 { return p.ACPower }) / totalPower
	}
	f.Simultaneous = lo.CountBy(points, func(p domain.UsagePoint) bool { return p.ACPower > 0 && p.HeaterPower > 0 })
	f.FanActiveShare = float64(lo.CountBy(points, func(p domain.UsagePoint) bool { return p.FanPower > 0 })) / float64(len(points))

	standby := lo.Filter(points, func(p domain.UsagePoint, _ int) bool {
		return p.Power > 0 && p.Power < standbyThresholdW
	})
	f.StandbyHours = len(standby)
	f.StandbyKWh = lo.SumBy(standby, func(p domain.UsagePoint) float64 { return p.Power }) / 1000

	run := 0
	for _, p := range points {
		if p.ACPower > 0 {
			run++
			f.LongestACRun = max(f.LongestACRun, run)
		} else {
			run = 0
		}
	}
	return f
}

// Recommend builds suggestions from findings, most urgent first.
func Recommend(f Findings) []domain.Recommendation {
	var out []domain.Recommendation

	if f.Simultaneous > 0 {
		out = append(out, domain.Recommendation{
			Category: CategoryCritical,
			Device:   "AC and Heater",
			Issue:    "Simultaneous Usage",
			Recommendation: []string{
				"Avoid using AC and heater simultaneously",
				"Use temperature sensors to automate device switching",
				"Consider using a programmable thermostat to prevent overlapping operation",
			},
			PotentialSavings: fmt.Sprintf("%.2f kWh per occurrence", float64(f.Simultaneous)*savingsPerConflict),
		})
	}
	if f.LongestACRun >= continuousACHours {
		out = append(out, domain.Recommendation{
			Category: CategoryCritical,
			Device:   "AC Unit",
			Issue:    "Extended Continuous Operation",
			Recommendation: []string{
				fmt.Sprintf("Avoid running AC continuously for more than %d hours", continuousACHours),
				"Use programmable thermostat to cycle AC operation",
				"Consider using sleep mode settings during night hours",
			},
			PotentialSavings: "10-15% on AC energy consumption",
		})
	}
	if len(f.PeakHours) > 0 {
		hours := strings.Join(lo.Map(f.PeakHours, func(h int, _ int) string { return fmt.Sprint(h) }), ", ")
		out = append(out, domain.Recommendation{
			Category: CategoryHigh,
			Device:   "All Devices",
			Issue:    "Peak Hour Usage",
			Recommendation: []string{
				fmt.Sprintf("Shift non-essential device usage away from peak hours (%s)", hours),
				"Use timer switches to automatically control device operation during peak hours",
				"Pre-cool spaces before peak hours in summer",
			},
			PotentialSavings: "10-15% on energy bills",
		})
	}
	if f.ACShare > highACShare {
		out = append(out, domain.Recommendation{
			Category: CategoryHigh,
			Device:   "AC Unit",
			Issue:    "High Energy Consumption",
			Recommendation: []string{
				"Set AC temperature 1-2 degrees higher and use fans for air circulation",
				"Clean or replace AC filters monthly",
				"Use window coverings to reduce solar heat gain",
			},
			PotentialSavings: "5-10% on AC energy consumption",
		})
	}
	if f.FanActiveShare > extendedFanShare {
		out = append(out, domain.Recommendation{
			Category: CategoryMedium,
			Device:   "Fan",
			Issue:    "Extended Usage",
			Recommendation: []string{
				"Use fans only in occupied rooms",
				"Consider installing motion sensors for automatic control",
				"Use lower speed settings when possible",
			},
			PotentialSavings: "2-5% on fan energy consumption",
		})
	}
	if f.StandbyHours > 0 {
		out = append(out, domain.Recommendation{
			Category: CategoryMedium,
			Device:   "All Devices",
			Issue:    "Standby Power Waste",
			Recommendation: []string{
				"Use smart power strips to completely turn off devices when not in use",
				"Identify and unplug devices with high standby power consumption",
				"Enable power-saving modes on all electronic devices",
			},
			PotentialSavings: fmt.Sprintf("%.2f kWh per month", f.StandbyKWh*30),
		})
	}

	out = append(out,
		domain.Recommendation{
			Category: CategoryGeneral,
			Device:   "All Devices",
			Issue:    "Overall Energy Efficiency",
			Recommendation: []string{
				"Conduct regular energy audits to identify inefficiencies",
				"Consider installing a home energy monitoring system",
				"Use natural light when possible during daytime",
			},
			PotentialSavings: "15-20% on overall energy consumption",
		},
		domain.Recommendation{
			Category: CategoryBehavioral,
			Device:   "User Habits",
			Issue:    "Energy-Conscious Behavior",
			Recommendation: []string{
				"Create a schedule for device usage based on daily routines",
				"Set reminders to turn off devices when not in use",
				"Track and review energy consumption weekly",
			},
			PotentialSavings: "5-10% through behavioral changes",
		},
	)
	return out
}

// Filter keeps recommendations of category ("all" or empty keeps every one,
// matching is case-insensitive) and truncates to limit when limit > 0.
func Filter(recs []domain.Recommendation, category string, limit int) ([]domain.Recommendation, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	category = strings.TrimSpace(category)
	out := recs
	if category != "" && !strings.EqualFold(category, "all") {
		out = lo.Filter(recs, func(r domain.Recommendation, _ int) bool {
			return strings.EqualFold(r.Category, category)
		})
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return append([]domain.Recommendation{}, out...), nil
}

// Categories lists the distinct categories present in recs, in order.
func Categories(recs []domain.Recommendation) []string {
	return lo.Uniq(lo.Map(recs, func(r domain.Recommendation, _ int) string { return r.Category }))
}

// meanStd returns the mean and sample standard deviation of vs.
func meanStd(vs []float64) (float64, float64) {
	if len(vs) == 0 {
		return 0, 0
	}
	mean := lo.Sum(vs) / float64(len(vs))
	if len(vs) < 2 {
		return mean, 0
	}
	ss := lo.SumBy(vs, func(v float64) float64 { return (v - mean) * (v - mean) })
	return mean, math.Sqrt(ss / float64(len(vs)-1))
}
