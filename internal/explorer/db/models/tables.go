// Package models maps the externally owned dataset tables for GORM.
// The service only reads these tables; migrations are used by test
// fixtures alone.
package models

import (
	"time"
)

// Employer maps the Employers table.
type Employer struct {
	ID              string `gorm:"column:id;primaryKey;size:64"`
	Name            string `gorm:"column:name;index"`
	Address         string `gorm:"column:address"`
	City            string `gorm:"column:city"`
	State           string `gorm:"column:state"`
	Phone           string `gorm:"column:phone"`
	NAICSCode       string `gorm:"column:naics_code"`
	WillfulViolator bool   `gorm:"column:willful_violator"`
}

func (Employer) TableName() string { return "Employers" }

// Case maps the Cases table.
type Case struct {
	CaseNumber   string     `gorm:"column:case_number;primaryKey;size:64"`
	CaseStatus   string     `gorm:"column:case_status"`
	ReceivedDate *time.Time `gorm:"column:received_date"`
	DecisionDate *time.Time `gorm:"column:decision_date"`
	SOCCode      string     `gorm:"column:soc_code"`
	EmployerID   string     `gorm:"column:employer_id;index"`
	JobTitle     string     `gorm:"column:job_title"`
}

func (Case) TableName() string { return "Cases" }

// Position maps the Positions table, keyed by (employer_id, job_title).
type Position struct {
	EmployerID        string   `gorm:"column:employer_id;primaryKey;size:64"`
	JobTitle          string   `gorm:"column:job_title;primaryKey;size:255"`
	WageRateOfPayFrom float64  `gorm:"column:wage_rate_of_pay_from"`
	WageRateOfPayTo   *float64 `gorm:"column:wage_rate_of_pay_to"`
	WageUnitOfPay     string   `gorm:"column:wage_unit_of_pay"`
}

func (Position) TableName() string { return "Positions" }

// FilingStats maps the FilingStats table. ID is the employer id.
type FilingStats struct {
	ID                 string `gorm:"column:id;primaryKey;size:64"`
	ContinuingApproval int64  `gorm:"column:continuing_approval"`
	InitialApproval    int64  `gorm:"column:initial_approval"`
	ContinuingDenial   int64  `gorm:"column:continuing_denial"`
	InitialDenial      int64  `gorm:"column:initial_denial"`
}

func (FilingStats) TableName() string { return "FilingStats" }

// Industry maps the Industry lookup table.
type Industry struct {
	NAICSCode string `gorm:"column:naics_code;primaryKey;size:16"`
	Name      string `gorm:"column:name"`
}

func (Industry) TableName() string { return "Industry" }

// JobClass maps the JobClass lookup table.
type JobClass struct {
	SOCCode  string `gorm:"column:soc_code;primaryKey;size:16"`
	SOCTitle string `gorm:"column:soc_title"`
}

func (JobClass) TableName() string { return "JobClass" }

// All lists every table, in dependency order, for fixtures.
func All() []interface{} {
	return []interface{}{
		&Industry{},
		&JobClass{},
		&Employer{},
		&Position{},
		&Case{},
		&FilingStats{},
	}
}
