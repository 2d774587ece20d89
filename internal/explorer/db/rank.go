package db

import (
	"context"
	"fmt"

	"github.com/gartstein/visaexplorer/internal/explorer/models"
)

const rankLimit = 5

// RankCities returns the cities with the highest case-weighted annualized
// salary among certified cases. Only cities backed by more than
// cityRankMinGroups (employer, job title) groups are ranked.
func (r *Repository) RankCities(ctx context.Context) ([]models.CityRank, error) {
	query := fmt.Sprintf(`WITH Employer_Case AS (
  SELECT e.id, e.city, e.state, p.job_title, COUNT(*) AS case_count, %s AS salary
  FROM Employers e
    JOIN Positions p ON e.id = p.employer_id
    JOIN Cases c ON p.employer_id = c.employer_id AND p.job_title = c.job_title
  WHERE c.case_status = ?
  GROUP BY e.id, e.city, e.state, p.job_title,
    p.wage_rate_of_pay_from, p.wage_rate_of_pay_to, p.wage_unit_of_pay
)
SELECT ec.city AS city, ec.state AS state, %s AS average_salary
FROM Employer_Case ec
GROUP BY ec.city, ec.state
HAVING COUNT(*) > ? AND SUM(ec.salary * ec.case_count) IS NOT NULL
ORDER BY average_salary DESC
LIMIT %d`,
		r.dialect.round2(annualizedSalary("p")),
		r.dialect.round2("SUM(ec.salary * ec.case_count) / SUM(ec.case_count)"),
		rankLimit)

	var rows []struct {
		City          string  `gorm:"column:city"`
		State         string  `gorm:"column:state"`
		AverageSalary float64 `gorm:"column:average_salary"`
	}
	err := r.raw(ctx, query, models.CaseStatusCertified, r.cityRankMinGroups).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	ranks := make([]models.CityRank, 0, len(rows))
	for _, row := range rows {
		ranks = append(ranks, models.CityRank{City: row.City, State: row.State, AverageSalary: row.AverageSalary})
	}
	return ranks, nil
}

// RankIndustries returns the cities with the most cases outside software
// job titles and computer industries. The exclusion is a substring
// heuristic, not a category taxonomy.
func (r *Repository) RankIndustries(ctx context.Context) ([]models.IndustryRank, error) {
	query := fmt.Sprintf(`SELECT e.city AS city, e.state AS state, COUNT(*) AS num_application
FROM Cases c
  JOIN Employers e ON e.id = c.employer_id
WHERE c.job_title NOT IN (
    SELECT job_title FROM Positions WHERE LOWER(job_title) LIKE ?
  )
  AND e.naics_code NOT IN (
    SELECT naics_code FROM Industry WHERE LOWER(name) LIKE ?
  )
GROUP BY e.city, e.state
ORDER BY num_application DESC, e.city
LIMIT %d`, rankLimit)

	var rows []struct {
		City           string `gorm:"column:city"`
		State          string `gorm:"column:state"`
		NumApplication int64  `gorm:"column:num_application"`
	}
	if err := r.raw(ctx, query, "%software%", "%computer%").Scan(&rows).Error; err != nil {
		return nil, err
	}

	ranks := make([]models.IndustryRank, 0, len(rows))
	for _, row := range rows {
		ranks = append(ranks, models.IndustryRank{City: row.City, State: row.State, NumApplication: row.NumApplication})
	}
	return ranks, nil
}
