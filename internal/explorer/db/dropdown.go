package db

import (
	"context"
	"strings"

	dbmodels "github.com/gartstein/visaexplorer/internal/explorer/db/models"
)

// Cities returns the distinct cities of a state, trimmed and de-duplicated.
func (r *Repository) Cities(ctx context.Context, state string) ([]string, error) {
	var raw []string
	result := r.db.WithContext(ctx).Model(&dbmodels.Employer{}).
		Distinct("city").
		Where("state = ?", state).
		Order("city").
		Pluck("city", &raw)
	if result.Error != nil {
		return nil, result.Error
	}
	return trimDistinct(raw), nil
}

// States returns the distinct non-empty employer states.
func (r *Repository) States(ctx context.Context) ([]string, error) {
	var raw []string
	result := r.db.WithContext(ctx).Model(&dbmodels.Employer{}).
		Distinct("state").
		Where("state IS NOT NULL AND state <> ''").
		Order("state").
		Pluck("state", &raw)
	if result.Error != nil {
		return nil, result.Error
	}
	return trimDistinct(raw), nil
}

// JobCategories returns every job classification title.
func (r *Repository) JobCategories(ctx context.Context) ([]string, error) {
	var titles []string
	result := r.db.WithContext(ctx).Model(&dbmodels.JobClass{}).
		Distinct("soc_title").
		Order("soc_title").
		Pluck("soc_title", &titles)
	if result.Error != nil {
		return nil, result.Error
	}
	return titles, nil
}

func trimDistinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
