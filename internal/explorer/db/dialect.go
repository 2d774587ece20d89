package db

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gartstein/visaexplorer/internal/explorer/models"
)

// dialect is the GORM dialector name of the connected store.
type dialect string

// datasetTables matches the dataset table names as they appear in the raw
// queries. CTE names such as Employer_Positions are not matched.
var datasetTables = regexp.MustCompile(`\b(Employers|Cases|Positions|FilingStats|Industry|JobClass)\b`)

// tables adapts the table names of a raw query to the store. PostgreSQL
// folds unquoted identifiers to lower case, so the mixed-case names are
// quoted there.
func (d dialect) tables(query string) string {
	if d != DriverPostgres {
		return query
	}
	return datasetTables.ReplaceAllString(query, `"$1"`)
}

// round2 rounds a numeric SQL expression to two decimals. PostgreSQL only
// rounds NUMERIC values to a given scale.
func (d dialect) round2(expr string) string {
	if d == DriverPostgres {
		return fmt.Sprintf("ROUND(CAST(%s AS NUMERIC), 2)", expr)
	}
	return fmt.Sprintf("ROUND(%s, 2)", expr)
}

// annualizedSalary renders the per-row annualized wage midpoint for the
// Positions alias p. Rows with an unrecognized unit evaluate to NULL.
func annualizedSalary(p string) string {
	from := p + ".wage_rate_of_pay_from"
	to := p + ".wage_rate_of_pay_to"
	midpoint := fmt.Sprintf("COALESCE(%s + %s, %s * 2) / 2", from, to, from)

	var b strings.Builder
	b.WriteString("CASE")
	for _, u := range models.WageUnits {
		fmt.Fprintf(&b, " WHEN %s.wage_unit_of_pay = '%s' THEN %s * %s",
			p, u, midpoint, formatMultiplier(u.Multiplier()))
	}
	b.WriteString(" END")
	return b.String()
}

func formatMultiplier(m float64) string {
	s := fmt.Sprintf("%g", m)
	if !strings.Contains(s, ".") {
		// keep the product floating point on stores with integer division
		s += ".0"
	}
	return s
}

// acceptanceRate renders approvals over all decisions of the FilingStats
// alias f, NULL when the employer has no decisions.
func acceptanceRate(f string) string {
	approvals := fmt.Sprintf("(%[1]s.continuing_approval + %[1]s.initial_approval)", f)
	decisions := fmt.Sprintf("(%[1]s.continuing_approval + %[1]s.initial_approval + %[1]s.continuing_denial + %[1]s.initial_denial)", f)
	return fmt.Sprintf("%s * 1.0 / NULLIF(%s, 0)", approvals, decisions)
}

// likeEscape is the escape character of every LIKE pattern built here.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func likePrefix(s string) string {
	return likeEscaper.Replace(s) + "%"
}

func likeContains(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
