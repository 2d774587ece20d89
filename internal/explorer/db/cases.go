package db

import (
	"context"
	"time"

	e "github.com/gartstein/visaexplorer/internal/explorer/errors"
	"github.com/gartstein/visaexplorer/internal/explorer/models"
)

const unknownEmployerName = "N/A"

type caseRow struct {
	CaseNumber        string     `gorm:"column:case_number"`
	CaseStatus        string     `gorm:"column:case_status"`
	ReceivedDate      *time.Time `gorm:"column:received_date"`
	DecisionDate      *time.Time `gorm:"column:decision_date"`
	SOCCode           string     `gorm:"column:soc_code"`
	EmployerID        string     `gorm:"column:employer_id"`
	JobTitle          string     `gorm:"column:job_title"`
	EmployerName      *string    `gorm:"column:employer_name"`
	WageRateOfPayFrom *float64   `gorm:"column:wage_rate_of_pay_from"`
}

type caseListingRow struct {
	CaseNumber        string     `gorm:"column:case_number"`
	CaseStatus        string     `gorm:"column:case_status"`
	ReceivedDate      *time.Time `gorm:"column:received_date"`
	DecisionDate      *time.Time `gorm:"column:decision_date"`
	SOCCode           string     `gorm:"column:soc_code"`
	JobTitle          string     `gorm:"column:job_title"`
	WageRateOfPayFrom float64    `gorm:"column:wage_rate_of_pay_from"`
	WageRateOfPayTo   float64    `gorm:"column:wage_rate_of_pay_to"`
	WageUnitOfPay     string     `gorm:"column:wage_unit_of_pay"`
}

const getCaseQuery = `SELECT c.case_number AS case_number, c.case_status AS case_status,
  c.received_date AS received_date, c.decision_date AS decision_date, c.soc_code AS soc_code,
  c.employer_id AS employer_id, c.job_title AS job_title,
  e.name AS employer_name, p.wage_rate_of_pay_from AS wage_rate_of_pay_from
FROM Cases c
  LEFT JOIN Employers e ON c.employer_id = e.id
  LEFT JOIN Positions p ON c.employer_id = p.employer_id AND c.job_title = p.job_title
WHERE c.case_number = ?`

// GetCase fetches one case with its employer name and starting wage.
func (r *Repository) GetCase(ctx context.Context, caseNumber string) (*models.Case, error) {
	var rows []caseRow
	if err := r.raw(ctx, getCaseQuery, caseNumber).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, e.ErrNotFound
	}

	row := rows[0]
	employerName := unknownEmployerName
	if row.EmployerName != nil && *row.EmployerName != "" {
		employerName = *row.EmployerName
	}
	return &models.Case{
		CaseNumber:        row.CaseNumber,
		CaseStatus:        row.CaseStatus,
		ReceivedDate:      row.ReceivedDate,
		DecisionDate:      row.DecisionDate,
		SOCCode:           row.SOCCode,
		EmployerID:        row.EmployerID,
		JobTitle:          row.JobTitle,
		EmployerName:      employerName,
		WageRateOfPayFrom: row.WageRateOfPayFrom,
	}, nil
}

// SearchCases lists an employer's cases newest decision first. The filter
// must already carry its date window.
func (r *Repository) SearchCases(ctx context.Context, filter models.CaseSearchFilter) ([]models.CaseListing, error) {
	query, args := buildCaseSearch(filter)

	var rows []caseListingRow
	if err := r.raw(ctx, query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	listings := make([]models.CaseListing, 0, len(rows))
	for _, row := range rows {
		listings = append(listings, models.CaseListing{
			CaseNumber:        row.CaseNumber,
			CaseStatus:        row.CaseStatus,
			ReceivedDate:      row.ReceivedDate,
			DecisionDate:      row.DecisionDate,
			SOCCode:           row.SOCCode,
			JobTitle:          models.CleanJobTitle(row.JobTitle),
			WageRateOfPayFrom: row.WageRateOfPayFrom,
			WageRateOfPayTo:   row.WageRateOfPayTo,
			WageUnitOfPay:     row.WageUnitOfPay,
		})
	}
	return listings, nil
}
