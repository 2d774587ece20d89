package handlers

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	e "github.com/gartstein/visaexplorer/internal/explorer/errors"
	"github.com/gartstein/visaexplorer/internal/explorer/models"
)

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func queryString(q url.Values, key string) string {
	return strings.TrimSpace(q.Get(key))
}

func optionalFloat(q url.Values, key string) (*float64, error) {
	raw := queryString(q, key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: invalid %s %q", e.ErrInvalidInput, key, raw)
	}
	return &v, nil
}

func optionalInt(q url.Values, key string) (*int, error) {
	raw := queryString(q, key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid %s %q", e.ErrInvalidInput, key, raw)
	}
	return &v, nil
}

func optionalDate(q url.Values, key string) (time.Time, error) {
	raw := queryString(q, key)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid %s %q", e.ErrInvalidInput, key, raw)
}

// parseEmployerSearch reads the employer search filters. acceptance_rate
// is given in percent.
func parseEmployerSearch(q url.Values) (models.EmployerSearchFilter, error) {
	f := models.EmployerSearchFilter{
		Prefix:      queryString(q, "prefix"),
		City:        queryString(q, "city"),
		State:       queryString(q, "state"),
		JobCategory: queryString(q, "job_category"),
		Industry:    queryString(q, "industry"),
		Sort:        models.ParseSortKey(queryString(q, "sort")),
	}

	var err error
	if f.MinAvgSalary, err = optionalFloat(q, "min_avg_salary"); err != nil {
		return f, err
	}
	if f.MaxAvgSalary, err = optionalFloat(q, "max_avg_salary"); err != nil {
		return f, err
	}
	if f.MinApplications, err = optionalInt(q, "application_count"); err != nil {
		return f, err
	}
	rate, err := optionalFloat(q, "acceptance_rate")
	if err != nil {
		return f, err
	}
	if rate != nil {
		fraction := *rate / 100
		f.MinAcceptanceRate = &fraction
	}
	return f, nil
}

func parsePositions(q url.Values) (models.PositionFilter, error) {
	f := models.PositionFilter{
		EmployerID:  queryString(q, "employer_id"),
		JobCategory: queryString(q, "job_category"),
	}

	var err error
	if f.MinSalary, err = optionalFloat(q, "min_salary"); err != nil {
		return f, err
	}
	if f.MaxSalary, err = optionalFloat(q, "max_salary"); err != nil {
		return f, err
	}
	return f, nil
}

func parseCaseSearch(q url.Values) (models.CaseSearchFilter, error) {
	f := models.CaseSearchFilter{
		EmployerID: queryString(q, "employer_id"),
		SOCCode:    queryString(q, "soc_code"),
	}

	salary, err := optionalFloat(q, "salary_from")
	if err != nil {
		return f, err
	}
	if salary != nil {
		f.SalaryFrom = *salary
	}
	if f.DateFrom, err = optionalDate(q, "date_from"); err != nil {
		return f, err
	}
	if f.DateTo, err = optionalDate(q, "date_to"); err != nil {
		return f, err
	}
	return f, nil
}
