// Package tariff prices rides. Calculate is a pure function over the
// rider's plan, the plan's optional override and the active coverage; the
// Engine assembles those inputs from the database.
package tariff

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type PackageType string

const (
	PackageHourly  PackageType = "hourly"
	PackageDaily   PackageType = "daily"
	PackageWeekly  PackageType = "weekly"
	PackageMonthly PackageType = "monthly"
)

type CoverageType string

const (
	CoverageNone         CoverageType = "none"
	CoverageSubscription CoverageType = "subscription"
	CoverageReservation  CoverageType = "reservation"
)

type OvertimeKind string

const (
	FixedPrice          OvertimeKind = "FIXED_PRICE"
	PercentageReduction OvertimeKind = "PERCENTAGE_REDUCTION"
)

type Plan struct {
	ID          uuid.UUID
	Name        string
	HourlyRate  int64 `db:"hourly_rate"`
	DailyRate   int64 `db:"daily_rate"`
	WeeklyRate  int64 `db:"weekly_rate"`
	MonthlyRate int64 `db:"monthly_rate"`
	Active      bool
	CreatedAt   time.Time `db:"created_at"`
}

// Override is a per-plan overtime rule: one independent time-of-day
// coverage window per package type, plus how rides outside the window are
// priced. At most one override exists per plan.
type Override struct {
	ID            uuid.UUID
	PlanID        uuid.UUID    `db:"plan_id"`
	HourlyStart   int          `db:"hourly_start_hour"`
	HourlyEnd     int          `db:"hourly_end_hour"`
	DailyStart    int          `db:"daily_start_hour"`
	DailyEnd      int          `db:"daily_end_hour"`
	WeeklyStart   int          `db:"weekly_start_hour"`
	WeeklyEnd     int          `db:"weekly_end_hour"`
	MonthlyStart  int          `db:"monthly_start_hour"`
	MonthlyEnd    int          `db:"monthly_end_hour"`
	OvertimeKind  OvertimeKind `db:"overtime_kind"`
	OvertimeValue int64        `db:"overtime_value"`
}

// Window is a time-of-day span in whole hours. StartHour <= EndHour is a
// same-day span; StartHour > EndHour wraps past midnight.
type Window struct {
	StartHour int
	EndHour   int
}

func (w Window) Contains(hour int) bool {
	if w.StartHour <= w.EndHour {
		return hour >= w.StartHour && hour < w.EndHour
	}
	return hour >= w.StartHour || hour < w.EndHour
}

func (o Override) Window(p PackageType) Window {
	switch p {
	case PackageHourly:
		return Window{o.HourlyStart, o.HourlyEnd}
	case PackageDaily:
		return Window{o.DailyStart, o.DailyEnd}
	case PackageWeekly:
		return Window{o.WeeklyStart, o.WeeklyEnd}
	case PackageMonthly:
		return Window{o.MonthlyStart, o.MonthlyEnd}
	}
	return Window{}
}

// defaultWindows apply when a plan has no override row.
var defaultWindows = map[PackageType]Window{
	PackageHourly:  {8, 19},
	PackageDaily:   {8, 19},
	PackageWeekly:  {8, 22},
	PackageMonthly: {6, 23},
}

// defaultOvertimeReductionPct applies when a ride is overtime and the plan
// carries no override rule.
const defaultOvertimeReductionPct = 30

// Input is everything Calculate needs. Coverage is CoverageNone when the
// rider has neither an active subscription nor reservation; Package is
// only meaningful otherwise.
type Input struct {
	Plan            Plan
	Override        *Override
	Coverage        CoverageType
	Package         PackageType
	DurationMinutes int
	StartTime       time.Time
}

// Quote is the priced result. AppliedRule is a human-readable audit string
// stored verbatim in the payment's ledger metadata; it is computed once at
// settlement and never re-derived.
type Quote struct {
	BaseCost        int64        `json:"baseCost"`
	FinalCost       int64        `json:"finalCost"`
	DiscountApplied int64        `json:"discountApplied"`
	IsOvertime      bool         `json:"isOvertime"`
	AppliedRule     string       `json:"appliedRule"`
	Coverage        CoverageType `json:"coverageType"`
}

// Calculate prices a ride. Deterministic: identical inputs always yield an
// identical quote.
func Calculate(in Input) Quote {
	roundedHours := int64(in.DurationMinutes+59) / 60
	baseCost := roundedHours * in.Plan.HourlyRate

	q := Quote{
		BaseCost: baseCost,
		Coverage: in.Coverage,
	}

	if in.Coverage == CoverageNone {
		q.FinalCost = baseCost
		q.AppliedRule = "normal tariff"
		return q
	}

	window := defaultWindows[in.Package]
	if in.Override != nil {
		window = in.Override.Window(in.Package)
	}

	if window.Contains(in.StartTime.Hour()) {
		q.FinalCost = 0
		q.DiscountApplied = baseCost
		q.AppliedRule = fmt.Sprintf("included in %s package (%02d:00-%02d:00)", in.Package, window.StartHour, window.EndHour)
		return q
	}

	q.IsOvertime = true

	switch {
	case in.Override != nil && in.Override.OvertimeKind == FixedPrice:
		q.FinalCost = in.Override.OvertimeValue
		q.AppliedRule = fmt.Sprintf("overtime fixed price %d", in.Override.OvertimeValue)
	case in.Override != nil && in.Override.OvertimeKind == PercentageReduction:
		q.FinalCost = baseCost - roundPct(baseCost, in.Override.OvertimeValue)
		q.AppliedRule = fmt.Sprintf("overtime %d%% reduction", in.Override.OvertimeValue)
	default:
		q.FinalCost = baseCost - roundPct(baseCost, defaultOvertimeReductionPct)
		q.AppliedRule = fmt.Sprintf("overtime default %d%% reduction", defaultOvertimeReductionPct)
	}
	q.DiscountApplied = baseCost - q.FinalCost
	return q
}

// roundPct computes round(amount * pct / 100), half away from zero.
func roundPct(amount, pct int64) int64 {
	return (amount*pct + 50) / 100
}
