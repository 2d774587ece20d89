package models

// CityRank is a (city, state) pair ranked by volume-weighted annualized
// salary of certified cases.
type CityRank struct {
	City          string  `json:"city"`
	State         string  `json:"state"`
	AverageSalary float64 `json:"average_salary"`
}

// IndustryRank is a (city, state) pair ranked by the number of cases
// outside software titles and computer industries.
type IndustryRank struct {
	City           string `json:"city"`
	State          string `json:"state"`
	NumApplication int64  `json:"num_application"`
}
