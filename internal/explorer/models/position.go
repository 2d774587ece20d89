package models

// Position is an employer's job title with its annualized salary and the
// number of cases filed for it.
type Position struct {
	Position       string   `json:"position"`
	JobCategory    string   `json:"job_category"`
	NumApplication int64    `json:"num_application"`
	AvgSalary      *float64 `json:"avg_salary"`
}
