package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"
)

// Pagination bounds for audit queries
const (
	DefaultPageSize = 50
	MaxPageSize     = 100
)

// exportBatchSize is how many rows an export pulls per query
const exportBatchSize = 500

// Service answers audit queries. Writes go through the Recorder; the service
// is read-only except for retention cleanup.
type Service struct {
	store *Store
}

// NewService creates an audit query service
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Query returns one page of entries matching the filter, newest first. Page
// and limit are clamped to sane bounds; a filter that matches nothing yields
// an empty page with total 0.
func (s *Service) Query(ctx context.Context, f Filter, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	total, err := s.store.Count(ctx, f)
	if err != nil {
		return nil, err
	}

	result := &Page{
		Logs:  []*Entry{},
		Total: total,
		Page:  page,
		Limit: limit,
	}
	if total == 0 {
		return result, nil
	}

	result.TotalPages = (total + int64(limit) - 1) / int64(limit)

	logs, err := s.store.Search(ctx, f, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	result.Logs = logs

	return result, nil
}

// EntityHistory returns the most recent entries touching one record,
// identified by target model and ID.
func (s *Service) EntityHistory(ctx context.Context, model, id string, limit int) ([]*Entry, error) {
	if limit < 1 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	return s.store.Search(ctx, Filter{TargetModel: model, TargetID: id}, limit, 0)
}

// UserActions returns the most recent entries performed by one user,
// optionally bounded to actions at or after from.
func (s *Service) UserActions(ctx context.Context, userID int64, from *time.Time, limit int) ([]*Entry, error) {
	if limit < 1 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	return s.store.Search(ctx, Filter{PerformedBy: &userID, From: from}, limit, 0)
}

// CriticalEvents returns the most recent CRITICAL entries since the given
// time.
func (s *Service) CriticalEvents(ctx context.Context, since time.Time, limit int) ([]*Entry, error) {
	if limit < 1 || limit > MaxPageSize {
		limit = DefaultPageSize
	}
	f := Filter{
		Severities: []Severity{SeverityCritical},
		From:       &since,
	}
	return s.store.Search(ctx, f, limit, 0)
}

// Stats aggregates audit activity since the given time. The four underlying
// counts run concurrently.
func (s *Service) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	stats := &Stats{}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		total, err := s.store.TotalSince(gctx, since)
		if err != nil {
			return err
		}
		stats.Total = total
		return nil
	})
	g.Go(func() error {
		counts, err := s.store.ActionCounts(gctx, since)
		if err != nil {
			return err
		}
		stats.ByAction = counts
		return nil
	})
	g.Go(func() error {
		counts, err := s.store.SeverityCounts(gctx, since)
		if err != nil {
			return err
		}
		stats.BySeverity = counts
		return nil
	})
	g.Go(func() error {
		counts, err := s.store.ModelCounts(gctx, since)
		if err != nil {
			return err
		}
		stats.ByModel = counts
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// Export streams every entry matching the filter to w in the given format,
// oldest batch of the result set first within each page of the backing
// query. Returns the number of entries written.
func (s *Service) Export(ctx context.Context, f Filter, format ExportFormat, w io.Writer) (int64, error) {
	var (
		cw  *csv.Writer
		enc *json.Encoder
	)

	switch format {
	case ExportFormatCSV:
		cw = csv.NewWriter(w)
		if err := cw.Write(csvHeader()); err != nil {
			return 0, fmt.Errorf("failed to write CSV header: %w", err)
		}
	case ExportFormatNDJSON:
		enc = json.NewEncoder(w)
	default:
		return 0, fmt.Errorf("unsupported export format: %s", format)
	}

	var written int64
	offset := 0
	for {
		entries, err := s.store.Search(ctx, f, exportBatchSize, offset)
		if err != nil {
			return written, err
		}

		for _, e := range entries {
			if cw != nil {
				if err := cw.Write(csvRow(e)); err != nil {
					return written, fmt.Errorf("failed to write CSV row: %w", err)
				}
			} else {
				if err := enc.Encode(e); err != nil {
					return written, fmt.Errorf("failed to encode entry: %w", err)
				}
			}
			written++
		}

		if len(entries) < exportBatchSize {
			break
		}
		offset += exportBatchSize
	}

	if cw != nil {
		cw.Flush()
		if err := cw.Error(); err != nil {
			return written, fmt.Errorf("CSV writer error: %w", err)
		}
	}
	return written, nil
}
