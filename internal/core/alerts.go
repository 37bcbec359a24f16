package core

import (
	"fmt"
	"sync"
)

const (
	Warning Severity = "WARNING"
	Danger  Severity = "DANGER"

	// WarningPercent is the share of a ceiling at which a warning is raised.
	WarningPercent = 85.0
)

type Severity string

// Alert is derived on every recompute and never persisted.
type Alert struct {
	Pillar   Pillar
	Severity Severity
	Percent  float64
	Overage  Money
	Message  string
}

// EvaluateAlerts compares each pillar's spend with its ceiling.
//
// A ceiling of zero or less raises nothing (income not configured yet).
// Above 100% the alert is DANGER and reports the overage; from 85% to 100%
// inclusive it is WARNING. Pillars in dismissed are skipped.
func EvaluateAlerts(totals map[Pillar]Money, limits Limits, dismissed func(Pillar) bool) []Alert {
	var alerts []Alert
	for _, p := range Pillars {
		ceiling := limits.For(p)
		if ceiling.Cents <= 0 {
			continue
		}
		if dismissed != nil && dismissed(p) {
			continue
		}
		spent := totals[p]
		pct := float64(spent.Cents) / float64(ceiling.Cents) * 100

		switch {
		case pct > 100:
			over := spent.Sub(ceiling)
			alerts = append(alerts, Alert{
				Pillar:   p,
				Severity: Danger,
				Percent:  pct,
				Overage:  over,
				Message:  fmt.Sprintf("%s exceeded its ceiling by %s", p.Label(), over),
			})
		case pct >= WarningPercent:
			alerts = append(alerts, Alert{
				Pillar:   p,
				Severity: Warning,
				Percent:  pct,
				Message:  fmt.Sprintf("%s reached %.0f%% of its ceiling", p.Label(), pct),
			})
		}
	}
	return alerts
}

// AlertTracker holds the per-session set of dismissed pillars. Dismissals
// live in memory only and are cleared whenever the observed month changes.
type AlertTracker struct {
	mu        sync.Mutex
	month     Month
	dismissed map[Pillar]struct{}
}

func NewAlertTracker(m Month) *AlertTracker {
	return &AlertTracker{month: m, dismissed: make(map[Pillar]struct{})}
}

// Dismiss suppresses p's alert for the rest of the current month.
func (t *AlertTracker) Dismiss(p Pillar) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.dismissed[p] = struct{}{}
}

func (t *AlertTracker) IsDismissed(p Pillar) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.dismissed[p]
	return ok
}

// Reset moves the tracker to m and clears every dismissal, even when m is
// the month already tracked.
func (t *AlertTracker) Reset(m Month) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.month = m
	t.dismissed = make(map[Pillar]struct{})
}

// Dismissed lists the dismissed pillars in display order.
func (t *AlertTracker) Dismissed() []Pillar {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []Pillar
	for _, p := range Pillars {
		if _, ok := t.dismissed[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

const (
	InsightCritical         = "critical"
	InsightHealthy          = "healthy"
	InsightEssentialDeficit = "essential_deficit"
)

// Insight is a household-level observation on income commitment.
type Insight struct {
	ID      string
	Level   string
	Message string
}

// Insights reports how much of the month's income is committed. Above 90%
// is critical, below 50% (with income) is healthy; an exceeded essential
// ceiling is reported separately.
func Insights(s MonthSummary) []Insight {
	var out []Insight
	ratio := 0.0
	if s.TotalIncome.Cents > 0 {
		ratio = float64(s.TotalSpent.Cents) / float64(s.TotalIncome.Cents) * 100
	}
	switch {
	case ratio > 90:
		out = append(out, Insight{
			ID:      InsightCritical,
			Level:   "danger",
			Message: fmt.Sprintf("%.0f%% of the monthly income is already committed", ratio),
		})
	case ratio < 50 && s.TotalIncome.Cents > 0:
		out = append(out, Insight{
			ID:      InsightHealthy,
			Level:   "success",
			Message: "spending is below 50% of income",
		})
	}
	if rem := s.Remaining(Essential); rem.Cents < 0 {
		out = append(out, Insight{
			ID:      InsightEssentialDeficit,
			Level:   "warning",
			Message: fmt.Sprintf("essential spending is %s over its ceiling", Money{Cents: -rem.Cents}),
		})
	}
	return out
}
