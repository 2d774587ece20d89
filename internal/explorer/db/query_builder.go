package db

import (
	"fmt"
	"strings"

	"github.com/gartstein/visaexplorer/internal/explorer/models"
)

// clauses collects conditional WHERE and HAVING predicates with their
// positional arguments.
type clauses struct {
	where      []string
	whereArgs  []interface{}
	having     []string
	havingArgs []interface{}
}

func (c *clauses) Where(cond string, args ...interface{}) {
	c.where = append(c.where, cond)
	c.whereArgs = append(c.whereArgs, args...)
}

func (c *clauses) Having(cond string, args ...interface{}) {
	c.having = append(c.having, cond)
	c.havingArgs = append(c.havingArgs, args...)
}

func (c *clauses) writeWhere(b *strings.Builder) {
	if len(c.where) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(c.where, "\n  AND "))
	}
}

func (c *clauses) writeHaving(b *strings.Builder) {
	if len(c.having) > 0 {
		b.WriteString("\nHAVING ")
		b.WriteString(strings.Join(c.having, "\n  AND "))
	}
}

// args returns WHERE arguments followed by HAVING arguments, the order the
// placeholders appear in the statement.
func (c *clauses) args(leading ...interface{}) []interface{} {
	out := make([]interface{}, 0, len(leading)+len(c.whereArgs)+len(c.havingArgs))
	out = append(out, leading...)
	out = append(out, c.whereArgs...)
	return append(out, c.havingArgs...)
}

var employerSearchOrder = map[models.SortKey]string{
	models.SortByAvgSalary:        "a.avg_salary DESC, e.name",
	models.SortByApplicationCount: "application_count DESC, e.name",
	models.SortByAcceptanceRate:   "ar.acceptance_rate DESC, e.name",
	models.SortByName:             "e.name",
}

// buildEmployerSearch assembles the employer search aggregation. Average
// salary and acceptance rate are computed once per employer in CTEs and
// joined in, so grouping by them does not split an employer's rows.
func buildEmployerSearch(d dialect, f models.EmployerSearchFilter) (string, []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, `WITH Average_Salary AS (
  SELECT p.employer_id AS id, %s AS avg_salary
  FROM Positions p
  GROUP BY p.employer_id
), Acceptance_Rate AS (
  SELECT f.id, %s AS acceptance_rate
  FROM FilingStats f
)
SELECT e.id AS id, e.name AS name, e.city AS city, e.state AS state, i.name AS industry,
  COUNT(*) AS application_count, ar.acceptance_rate AS acceptance_rate, a.avg_salary AS avg_salary
FROM Employers e
  JOIN Cases c ON e.id = c.employer_id
  JOIN Acceptance_Rate ar ON ar.id = e.id
  JOIN Industry i ON e.naics_code = i.naics_code
  JOIN Average_Salary a ON a.id = e.id`,
		d.round2("AVG("+annualizedSalary("p")+")"), acceptanceRate("f"))

	var c clauses
	if f.Prefix != "" {
		c.Where("e.name LIKE ? ESCAPE '"+likeEscape+"'", likePrefix(f.Prefix))
	}
	if f.City != "" {
		c.Where("e.city = ?", f.City)
	}
	if f.State != "" {
		c.Where("e.state = ?", f.State)
	}
	if f.MinAvgSalary != nil {
		c.Where("a.avg_salary >= ?", *f.MinAvgSalary)
	}
	if f.MaxAvgSalary != nil {
		c.Where("a.avg_salary <= ?", *f.MaxAvgSalary)
	}
	if f.JobCategory != "" {
		c.Where(`e.id IN (
    SELECT jcc.employer_id
    FROM Cases jcc JOIN JobClass jc ON jcc.soc_code = jc.soc_code
    WHERE jc.soc_title LIKE ? ESCAPE '`+likeEscape+`')`, likeContains(f.JobCategory))
	}
	if f.Industry != "" {
		c.Where("i.name LIKE ? ESCAPE '"+likeEscape+"'", likeContains(f.Industry))
	}
	if f.MinApplications != nil {
		c.Having("COUNT(*) >= ?", *f.MinApplications)
	}
	if f.MinAcceptanceRate != nil {
		c.Having("ar.acceptance_rate >= ?", *f.MinAcceptanceRate)
	}

	c.writeWhere(&b)
	b.WriteString("\nGROUP BY e.id, e.name, e.city, e.state, i.name, ar.acceptance_rate, a.avg_salary")
	c.writeHaving(&b)

	order, ok := employerSearchOrder[f.Sort]
	if !ok {
		order = employerSearchOrder[models.SortByName]
	}
	b.WriteString("\nORDER BY ")
	b.WriteString(order)

	return b.String(), c.args()
}

// buildPositions assembles the per-position salary and application count
// query of one employer. Salary bounds compare against the rounded
// per-position average.
func buildPositions(d dialect, f models.PositionFilter) (string, []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, `WITH Employer_Positions AS (
  SELECT e.id AS id, p.job_title AS position, %s AS avg_salary
  FROM Employers e
    JOIN Positions p ON e.id = p.employer_id
  WHERE e.id = ?
)
SELECT ep.position AS position, jc.soc_title AS job_category, COUNT(*) AS num_application, ep.avg_salary AS avg_salary
FROM Employer_Positions ep
  JOIN Cases c ON ep.id = c.employer_id AND ep.position = c.job_title
  JOIN JobClass jc ON c.soc_code = jc.soc_code`, d.round2(annualizedSalary("p")))

	var c clauses
	if f.JobCategory != "" {
		c.Where("jc.soc_title LIKE ? ESCAPE '"+likeEscape+"'", likeContains(f.JobCategory))
	}
	if f.MinSalary != nil {
		c.Where("ep.avg_salary > ?", *f.MinSalary)
	}
	if f.MaxSalary != nil {
		c.Where("ep.avg_salary < ?", *f.MaxSalary)
	}

	c.writeWhere(&b)
	b.WriteString("\nGROUP BY ep.position, jc.soc_title, ep.avg_salary")
	b.WriteString("\nORDER BY num_application DESC, ep.position")

	return b.String(), c.args(f.EmployerID)
}

// buildCaseSearch assembles an employer's case listing. Cases without a
// received date are never excluded by the date window.
func buildCaseSearch(f models.CaseSearchFilter) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(`SELECT c.case_number AS case_number, c.case_status AS case_status,
  c.received_date AS received_date, c.decision_date AS decision_date, c.soc_code AS soc_code,
  c.job_title AS job_title, p.wage_rate_of_pay_from AS wage_rate_of_pay_from,
  COALESCE(p.wage_rate_of_pay_to, p.wage_rate_of_pay_from) AS wage_rate_of_pay_to,
  p.wage_unit_of_pay AS wage_unit_of_pay
FROM Cases c
  JOIN Positions p ON c.employer_id = p.employer_id AND c.job_title = p.job_title`)

	var c clauses
	c.Where("c.employer_id = ?", f.EmployerID)
	c.Where("p.wage_rate_of_pay_from >= ?", f.SalaryFrom)
	c.Where("(c.received_date IS NULL OR c.received_date >= ?)", f.DateFrom)
	c.Where("(c.received_date IS NULL OR c.received_date <= ?)", f.DateTo)
	if f.SOCCode != "" {
		c.Where("c.soc_code = ?", f.SOCCode)
	}

	c.writeWhere(&b)
	b.WriteString("\nORDER BY c.decision_date DESC, c.case_number")

	return b.String(), c.args()
}
