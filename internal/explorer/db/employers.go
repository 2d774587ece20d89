package db

import (
	"context"
	"errors"
	"fmt"

	dbmodels "github.com/gartstein/visaexplorer/internal/explorer/db/models"
	e "github.com/gartstein/visaexplorer/internal/explorer/errors"
	"github.com/gartstein/visaexplorer/internal/explorer/models"
	"gorm.io/gorm"
)

type employerSearchRow struct {
	ID               string   `gorm:"column:id"`
	Name             string   `gorm:"column:name"`
	City             string   `gorm:"column:city"`
	State            string   `gorm:"column:state"`
	Industry         string   `gorm:"column:industry"`
	ApplicationCount int64    `gorm:"column:application_count"`
	AcceptanceRate   *float64 `gorm:"column:acceptance_rate"`
	AvgSalary        *float64 `gorm:"column:avg_salary"`
}

type positionRow struct {
	Position       string   `gorm:"column:position"`
	JobCategory    string   `gorm:"column:job_category"`
	NumApplication int64    `gorm:"column:num_application"`
	AvgSalary      *float64 `gorm:"column:avg_salary"`
}

// SearchEmployers runs the filtered employer aggregation.
func (r *Repository) SearchEmployers(ctx context.Context, filter models.EmployerSearchFilter) ([]models.EmployerSearchResult, error) {
	query, args := buildEmployerSearch(r.dialect, filter)

	var rows []employerSearchRow
	if err := r.raw(ctx, query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	results := make([]models.EmployerSearchResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, models.EmployerSearchResult{
			ID:               row.ID,
			Name:             row.Name,
			City:             row.City,
			State:            row.State,
			Industry:         row.Industry,
			ApplicationCount: row.ApplicationCount,
			AcceptanceRate:   row.AcceptanceRate,
			AvgSalary:        row.AvgSalary,
		})
	}
	return results, nil
}

func (r *Repository) GetEmployer(ctx context.Context, id string) (*models.Employer, error) {
	var employer dbmodels.Employer
	result := r.db.WithContext(ctx).First(&employer, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, result.Error
	}
	return &models.Employer{
		ID:              employer.ID,
		Name:            employer.Name,
		Address:         employer.Address,
		City:            employer.City,
		State:           employer.State,
		Phone:           employer.Phone,
		NAICSCode:       employer.NAICSCode,
		WillfulViolator: employer.WillfulViolator,
	}, nil
}

// CountApplications returns the number of cases filed by an employer.
func (r *Repository) CountApplications(ctx context.Context, employerID string) (int64, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&dbmodels.Case{}).
		Where("employer_id = ?", employerID).
		Count(&count)
	return count, result.Error
}

// AcceptanceRate returns the employer's approval fraction. A missing
// FilingStats row yields ErrStatsUnavailable; a row with no decisions
// yields a nil rate.
func (r *Repository) AcceptanceRate(ctx context.Context, employerID string) (*float64, error) {
	var rows []struct {
		AcceptanceRate *float64 `gorm:"column:acceptance_rate"`
	}
	query := fmt.Sprintf("SELECT %s AS acceptance_rate FROM FilingStats f WHERE f.id = ?", acceptanceRate("f"))
	if err := r.raw(ctx, query, employerID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no filing statistics", e.ErrStatsUnavailable)
	}
	return rows[0].AcceptanceRate, nil
}

// AverageSalary returns the annualized average over all of the employer's
// positions, nil when none has a recognized wage unit.
func (r *Repository) AverageSalary(ctx context.Context, employerID string) (*float64, error) {
	var rows []struct {
		AverageSalary *float64 `gorm:"column:average_salary"`
	}
	query := fmt.Sprintf("SELECT %s AS average_salary FROM Positions p WHERE p.employer_id = ?",
		r.dialect.round2("AVG("+annualizedSalary("p")+")"))
	if err := r.raw(ctx, query, employerID).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no salary aggregate", e.ErrStatsUnavailable)
	}
	return rows[0].AverageSalary, nil
}

// IndustryName looks up an industry by NAICS code.
func (r *Repository) IndustryName(ctx context.Context, naicsCode string) (string, error) {
	var industry dbmodels.Industry
	result := r.db.WithContext(ctx).First(&industry, "naics_code = ?", naicsCode)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", fmt.Errorf("%w: unknown industry %q", e.ErrStatsUnavailable, naicsCode)
		}
		return "", result.Error
	}
	return industry.Name, nil
}

// ListPositions returns an employer's positions ordered by application count.
func (r *Repository) ListPositions(ctx context.Context, filter models.PositionFilter) ([]models.Position, error) {
	query, args := buildPositions(r.dialect, filter)

	var rows []positionRow
	if err := r.raw(ctx, query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	positions := make([]models.Position, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, models.Position{
			Position:       row.Position,
			JobCategory:    row.JobCategory,
			NumApplication: row.NumApplication,
			AvgSalary:      row.AvgSalary,
		})
	}
	return positions, nil
}

// ForEachEmployerName streams every (id, name) pair in primary key order,
// batchSize rows at a time.
func (r *Repository) ForEachEmployerName(ctx context.Context, batchSize int, fn func([]models.NameEntry) error) error {
	var batch []dbmodels.Employer
	result := r.db.WithContext(ctx).Model(&dbmodels.Employer{}).
		Select("id", "name").
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			entries := make([]models.NameEntry, 0, len(batch))
			for _, emp := range batch {
				entries = append(entries, models.NameEntry{ID: emp.ID, Name: emp.Name})
			}
			return fn(entries)
		})
	return result.Error
}
