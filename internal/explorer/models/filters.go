package models

import "time"

// SortKey selects the ordering of an employer search.
type SortKey string

const (
	SortByName             SortKey = ""
	SortByAvgSalary        SortKey = "avg_salary"
	SortByApplicationCount SortKey = "application_count"
	SortByAcceptanceRate   SortKey = "acceptance_rate"
)

// ParseSortKey maps a request value to a SortKey. Unknown values fall back
// to ordering by name.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortByAvgSalary, SortByApplicationCount, SortByAcceptanceRate:
		return SortKey(s)
	default:
		return SortByName
	}
}

// EmployerSearchFilter holds the optional filters of an employer search.
// Nil pointers and empty strings mean "no filter".
type EmployerSearchFilter struct {
	// Prefix matches the start of the employer name.
	Prefix string
	City   string
	State  string
	// MinAvgSalary and MaxAvgSalary bound the annualized average salary.
	MinAvgSalary *float64
	MaxAvgSalary *float64
	// JobCategory matches any part of a job classification title the
	// employer filed cases under.
	JobCategory string
	// Industry matches any part of the employer's industry name.
	Industry string
	// MinApplications is the minimum number of cases.
	MinApplications *int
	// MinAcceptanceRate is a fraction in [0, 1].
	MinAcceptanceRate *float64
	Sort              SortKey
}

// PositionFilter selects an employer's positions.
type PositionFilter struct {
	EmployerID  string
	JobCategory string
	MinSalary   *float64
	MaxSalary   *float64
}

// DefaultCaseDateFrom is the lower received-date bound of a case search
// when none is given.
var DefaultCaseDateFrom = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// CaseSearchFilter selects an employer's cases.
type CaseSearchFilter struct {
	EmployerID string
	// SOCCode restricts results to one job classification code.
	SOCCode string
	// SalaryFrom is the minimum starting wage of the case's position.
	SalaryFrom float64
	// DateFrom and DateTo bound the received date. Zero values are
	// replaced by DefaultCaseDateFrom and the current time.
	DateFrom time.Time
	DateTo   time.Time
}

// WithDefaults returns a copy of f with the date window filled in.
func (f CaseSearchFilter) WithDefaults(now time.Time) CaseSearchFilter {
	if f.DateFrom.IsZero() {
		f.DateFrom = DefaultCaseDateFrom
	}
	if f.DateTo.IsZero() {
		f.DateTo = now
	}
	return f
}

// DropdownCriteria names the value list a dropdown asks for.
type DropdownCriteria string

const (
	DropdownCity        DropdownCriteria = "city"
	DropdownState       DropdownCriteria = "state"
	DropdownJobCategory DropdownCriteria = "job_category"
)
