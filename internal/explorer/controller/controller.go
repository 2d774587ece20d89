// Package controller implements the service layer of the visa filings
// explorer: input validation, statistics orchestration, response caching
// and maintenance of the employer name index.
package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/visaexplorer/internal/explorer/errors"
	"github.com/gartstein/visaexplorer/internal/explorer/events"
	"github.com/gartstein/visaexplorer/internal/explorer/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultRebuildBatchSize = 1000

// Repository defines the read access to the filings dataset.
type Repository interface {
	SearchEmployers(ctx context.Context, filter models.EmployerSearchFilter) ([]models.EmployerSearchResult, error)
	GetEmployer(ctx context.Context, id string) (*models.Employer, error)
	CountApplications(ctx context.Context, employerID string) (int64, error)
	AcceptanceRate(ctx context.Context, employerID string) (*float64, error)
	AverageSalary(ctx context.Context, employerID string) (*float64, error)
	IndustryName(ctx context.Context, naicsCode string) (string, error)
	ListPositions(ctx context.Context, filter models.PositionFilter) ([]models.Position, error)
	ForEachEmployerName(ctx context.Context, batchSize int, fn func([]models.NameEntry) error) error
	GetCase(ctx context.Context, caseNumber string) (*models.Case, error)
	SearchCases(ctx context.Context, filter models.CaseSearchFilter) ([]models.CaseListing, error)
	RankCities(ctx context.Context) ([]models.CityRank, error)
	RankIndustries(ctx context.Context) ([]models.IndustryRank, error)
	Cities(ctx context.Context, state string) ([]string, error)
	States(ctx context.Context) ([]string, error)
	JobCategories(ctx context.Context) ([]string, error)
	Ping(ctx context.Context) error
}

// SearchIndex is the employer name index behind autocomplete.
type SearchIndex interface {
	Prefix(ctx context.Context, prefix string) ([]models.NameEntry, error)
	Clear(ctx context.Context) (int64, error)
	Load(ctx context.Context, feed func(add func([]models.NameEntry) error) error) (indexed int64, failed int64, err error)
	Refresh(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
}

// Cache stores JSON-encodable responses of parameterless or low-cardinality
// queries.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	Invalidate(ctx context.Context) error
}

type EventProducer interface {
	Produce(event events.Event)
}

type Option func(*ExplorerService)

// WithQueryTimeout bounds every dataset query. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *ExplorerService) { s.queryTimeout = d }
}

func WithCache(c Cache) Option {
	return func(s *ExplorerService) { s.cache = c }
}

func WithProducer(p EventProducer) Option {
	return func(s *ExplorerService) { s.producer = p }
}

// WithIndexName sets the index name reported in rebuild events.
func WithIndexName(name string) Option {
	return func(s *ExplorerService) { s.indexName = name }
}

func WithRebuildBatchSize(n int) Option {
	return func(s *ExplorerService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// ExplorerService answers the explorer's queries. A nil index disables
// autocomplete and index rebuilds.
type ExplorerService struct {
	repo         Repository
	index        SearchIndex
	cache        Cache
	producer     EventProducer
	logger       *zap.Logger
	queryTimeout time.Duration
	indexName    string
	batchSize    int
	now          func() time.Time
}

func NewExplorerService(repo Repository, index SearchIndex, logger *zap.Logger, opts ...Option) *ExplorerService {
	s := &ExplorerService{
		repo:      repo,
		index:     index,
		logger:    logger.Named("explorer_service"),
		batchSize: defaultRebuildBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ExplorerService) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// SearchEmployers returns the employers matching every given filter.
func (s *ExplorerService) SearchEmployers(ctx context.Context, filter models.EmployerSearchFilter) ([]models.EmployerSearchResult, error) {
	if rate := filter.MinAcceptanceRate; rate != nil && !(*rate >= 0 && *rate <= 1) {
		return nil, fmt.Errorf("%w: acceptance rate must be between 0 and 100", e.ErrInvalidInput)
	}
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	results, err := s.repo.SearchEmployers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search employers: %w", err)
	}
	return results, nil
}

// GetEmployerStats loads an employer and derives its statistics. The four
// statistics queries run concurrently; any failure fails the whole call.
func (s *ExplorerService) GetEmployerStats(ctx context.Context, id string) (*models.EmployerStats, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: missing employer id", e.ErrInvalidInput)
	}
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	employer, err := s.repo.GetEmployer(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get employer: %w", err)
	}

	stats := &models.EmployerStats{Employer: employer}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.repo.CountApplications(gctx, id)
		stats.NumApplications = n
		return err
	})
	g.Go(func() error {
		rate, err := s.repo.AcceptanceRate(gctx, id)
		stats.AcceptanceRate = rate
		return err
	})
	g.Go(func() error {
		avg, err := s.repo.AverageSalary(gctx, id)
		stats.AverageSalary = avg
		return err
	})
	g.Go(func() error {
		name, err := s.repo.IndustryName(gctx, employer.NAICSCode)
		stats.Industry = name
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("Failed to load employer statistics",
			zap.String("employer_id", id),
			zap.Error(err),
		)
		if errors.Is(err, e.ErrStatsUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load employer statistics: %w", err)
	}
	return stats, nil
}

// ListPositions returns the employer's positions, most applied-for first.
func (s *ExplorerService) ListPositions(ctx context.Context, filter models.PositionFilter) ([]models.Position, error) {
	if strings.TrimSpace(filter.EmployerID) == "" {
		return nil, fmt.Errorf("%w: employer id is required", e.ErrInvalidInput)
	}
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	positions, err := s.repo.ListPositions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("%w: no positions for employer %s", e.ErrNotFound, filter.EmployerID)
	}
	return positions, nil
}

// GetCase looks a case up by case number.
func (s *ExplorerService) GetCase(ctx context.Context, caseNumber string) (*models.Case, error) {
	if strings.TrimSpace(caseNumber) == "" {
		return nil, fmt.Errorf("%w: missing case number", e.ErrInvalidInput)
	}
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	c, err := s.repo.GetCase(ctx, caseNumber)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return c, nil
}

// SearchCases lists an employer's cases inside the received-date window,
// which defaults to 2000-01-01 through now.
func (s *ExplorerService) SearchCases(ctx context.Context, filter models.CaseSearchFilter) ([]models.CaseListing, error) {
	if strings.TrimSpace(filter.EmployerID) == "" {
		return nil, fmt.Errorf("%w: employer id is required", e.ErrInvalidInput)
	}
	filter = filter.WithDefaults(s.now().UTC())
	if filter.DateFrom.After(filter.DateTo) {
		return nil, fmt.Errorf("%w: date_from is after date_to", e.ErrInvalidInput)
	}
	ctx, cancel := s.queryContext(ctx)
	defer cancel()

	cases, err := s.repo.SearchCases(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search cases: %w", err)
	}
	return cases, nil
}

// RankCities returns the five best paying cities.
func (s *ExplorerService) RankCities(ctx context.Context) ([]models.CityRank, error) {
	var ranks []models.CityRank
	err := s.cached(ctx, cacheKey("rank", "city"), &ranks, func(ctx context.Context) (interface{}, error) {
		r, err := s.repo.RankCities(ctx)
		ranks = r
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rank cities: %w", err)
	}
	return ranks, nil
}

// RankIndustries returns the five cities with the most non-software cases.
func (s *ExplorerService) RankIndustries(ctx context.Context) ([]models.IndustryRank, error) {
	var ranks []models.IndustryRank
	err := s.cached(ctx, cacheKey("rank", "industry"), &ranks, func(ctx context.Context) (interface{}, error) {
		r, err := s.repo.RankIndustries(ctx)
		ranks = r
		return r, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rank industries: %w", err)
	}
	return ranks, nil
}

// Dropdown returns the option values for a filter control.
func (s *ExplorerService) Dropdown(ctx context.Context, criteria models.DropdownCriteria, state string) ([]string, error) {
	var load func(ctx context.Context) ([]string, error)
	key := cacheKey("dropdown", string(criteria))

	switch criteria {
	case models.DropdownCity:
		state = strings.TrimSpace(state)
		if state == "" {
			return nil, fmt.Errorf("%w: state is required for city values", e.ErrInvalidInput)
		}
		key = cacheKey("dropdown", string(criteria), state)
		load = func(ctx context.Context) ([]string, error) { return s.repo.Cities(ctx, state) }
	case models.DropdownState:
		load = s.repo.States
	case models.DropdownJobCategory:
		load = s.repo.JobCategories
	default:
		return nil, fmt.Errorf("%w: unknown criteria %q", e.ErrInvalidInput, criteria)
	}

	var values []string
	err := s.cached(ctx, key, &values, func(ctx context.Context) (interface{}, error) {
		v, err := load(ctx)
		values = v
		return v, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s values: %w", criteria, err)
	}
	return values, nil
}

// Autocomplete suggests employers whose name starts with prefix.
func (s *ExplorerService) Autocomplete(ctx context.Context, prefix string) ([]models.NameEntry, error) {
	if prefix == "" {
		return []models.NameEntry{}, nil
	}
	if s.index == nil {
		return nil, errors.New("search index is not configured")
	}
	entries, err := s.index.Prefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("autocomplete failed: %w", err)
	}
	return entries, nil
}

// RebuildIndex empties the name index and reloads it from every employer
// row. Readers may see a partial index while it runs.
func (s *ExplorerService) RebuildIndex(ctx context.Context) (*models.ReindexResult, error) {
	if s.index == nil {
		return nil, errors.New("search index is not configured")
	}
	start := s.now()

	result, err := s.rebuild(ctx)
	if err != nil {
		s.logger.Error("Index rebuild failed", zap.Error(err))
		s.produce(events.Event{Type: events.IndexRebuildFailed, Index: s.indexName, Error: err.Error()})
		return nil, err
	}
	result.TookMS = s.now().Sub(start).Milliseconds()

	s.logger.Info("Index rebuilt",
		zap.Int64("deleted", result.Deleted),
		zap.Int64("indexed", result.Indexed),
		zap.Int64("failed", result.Failed),
		zap.Int64("documents", result.Documents),
		zap.Int64("took_ms", result.TookMS),
	)
	s.produce(events.Event{Type: events.IndexRebuilt, Index: s.indexName, Result: result})
	return result, nil
}

func (s *ExplorerService) rebuild(ctx context.Context) (*models.ReindexResult, error) {
	deleted, err := s.index.Clear(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to clear index: %w", err)
	}

	indexed, failed, err := s.index.Load(ctx, func(add func([]models.NameEntry) error) error {
		return s.repo.ForEachEmployerName(ctx, s.batchSize, add)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load index: %w", err)
	}

	if err := s.index.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("failed to refresh index: %w", err)
	}
	documents, err := s.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count documents: %w", err)
	}

	return &models.ReindexResult{
		Deleted:   deleted,
		Indexed:   indexed,
		Failed:    failed,
		Documents: documents,
	}, nil
}

// InvalidateCache drops every cached response.
func (s *ExplorerService) InvalidateCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

// HandleDatasetRefreshed reacts to the ingestion process reloading the
// dataset: cached responses are dropped and the name index is rebuilt.
func (s *ExplorerService) HandleDatasetRefreshed(ctx context.Context, event events.Event) error {
	s.logger.Info("Dataset refreshed", zap.Time("occurred_at", event.OccurredAt))
	if err := s.InvalidateCache(ctx); err != nil {
		return err
	}
	if s.index == nil {
		return nil
	}
	_, err := s.RebuildIndex(ctx)
	return err
}

// Health reports whether the dataset store is reachable.
func (s *ExplorerService) Health(ctx context.Context) error {
	ctx, cancel := s.queryContext(ctx)
	defer cancel()
	return s.repo.Ping(ctx)
}

func (s *ExplorerService) produce(event events.Event) {
	if s.producer == nil {
		return
	}
	s.producer.Produce(event)
}
