package models

import "time"

// Case is a single filing looked up by case number, joined with its
// employer's name and the position's starting wage.
type Case struct {
	CaseNumber        string     `json:"case_number"`
	CaseStatus        string     `json:"case_status"`
	ReceivedDate      *time.Time `json:"received_date"`
	DecisionDate      *time.Time `json:"decision_date"`
	SOCCode           string     `json:"soc_code"`
	EmployerID        string     `json:"employer_id"`
	JobTitle          string     `json:"job_title"`
	EmployerName      string     `json:"employer_name"`
	WageRateOfPayFrom *float64   `json:"wage_rate_of_pay_from"`
}

// CaseListing is one row of an employer's case search.
type CaseListing struct {
	CaseNumber        string     `json:"case_number"`
	CaseStatus        string     `json:"case_status"`
	ReceivedDate      *time.Time `json:"received_date"`
	DecisionDate      *time.Time `json:"decision_date"`
	SOCCode           string     `json:"soc_code"`
	JobTitle          string     `json:"job_title"`
	WageRateOfPayFrom float64    `json:"wage_rate_of_pay_from"`
	// WageRateOfPayTo falls back to WageRateOfPayFrom when the position
	// declares a single wage.
	WageRateOfPayTo float64 `json:"wage_rate_of_pay_to"`
	WageUnitOfPay   string  `json:"wage_unit_of_pay"`
}

// Case statuses seen in the dataset. The set is open; these are the ones
// the query layer refers to.
const (
	CaseStatusCertified          = "Certified"
	CaseStatusCertifiedWithdrawn = "Certified - Withdrawn"
	CaseStatusDenied             = "Denied"
	CaseStatusWithdrawn          = "Withdrawn"
)
