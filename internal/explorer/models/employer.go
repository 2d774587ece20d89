// Package models defines the core domain models of the visa filings
// explorer: employers, cases, positions, rankings and the filter sets
// the query layer accepts.
package models

// Employer defines the domain model for an employer row.
type Employer struct {
	// ID is the employer identifier used across every dataset table.
	ID string `json:"id"`
	// Name is the employer's registered name.
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Phone   string `json:"phone"`
	// NAICSCode links the employer to its Industry classification.
	NAICSCode string `json:"naics_code"`
	// WillfulViolator flags employers listed as willful violators.
	WillfulViolator bool `json:"willful_violator"`
}

// EmployerStats is an employer together with the statistics derived
// from its cases, positions and filing counts.
type EmployerStats struct {
	Employer        *Employer `json:"employer"`
	NumApplications int64     `json:"num_applications"`
	// AcceptanceRate is a fraction in [0, 1]; nil when the employer has
	// no approvals or denials on record.
	AcceptanceRate *float64 `json:"acceptance_rate"`
	// AverageSalary is the annualized average over all positions; nil
	// when no position carries a recognized wage unit.
	AverageSalary *float64 `json:"average_salary"`
	Industry      string   `json:"industry"`
}

// EmployerSearchResult is one row of the employer search.
type EmployerSearchResult struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	City             string   `json:"city"`
	State            string   `json:"state"`
	Industry         string   `json:"industry"`
	ApplicationCount int64    `json:"application_count"`
	AcceptanceRate   *float64 `json:"acceptance_rate"`
	AvgSalary        *float64 `json:"avg_salary"`
}

// NameEntry is an autocomplete suggestion and the document stored in the
// name search index.
type NameEntry struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// ReindexResult summarizes a full rebuild of the name search index.
type ReindexResult struct {
	// Deleted is the number of documents removed before loading.
	Deleted int64 `json:"deleted"`
	// Indexed is the number of documents the bulk load accepted.
	Indexed int64 `json:"indexed"`
	// Failed is the number of documents the bulk load rejected.
	Failed int64 `json:"failed"`
	// Documents is the index document count after the rebuild.
	Documents int64 `json:"documents"`
	TookMS    int64 `json:"took_ms"`
}
