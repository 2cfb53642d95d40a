package audit

import (
	"context"
	"fmt"
	"time"
)

// RetentionPolicy controls how long audit entries are kept. Days must be
// positive; a zero-day policy is rejected rather than treated as "delete
// everything".
type RetentionPolicy struct {
	Days    int
	Archive bool
}

// CleanupResult reports what one retention run did
type CleanupResult struct {
	Cutoff   time.Time `json:"cutoff"`
	Archived int64     `json:"archived"`
	Deleted  int64     `json:"deleted"`
}

// Cleanup deletes entries older than the retention window. When the policy
// has archiving enabled, every expired entry is uploaded through the
// archiver before anything is deleted; an archive failure aborts the run
// with nothing removed.
func (s *Service) Cleanup(ctx context.Context, policy RetentionPolicy, archiver Archiver) (*CleanupResult, error) {
	if policy.Days < 1 {
		return nil, fmt.Errorf("retention days must be positive, got %d", policy.Days)
	}
	if policy.Archive && archiver == nil {
		return nil, fmt.Errorf("archiving enabled but no archiver configured")
	}

	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -policy.Days)
	result := &CleanupResult{Cutoff: cutoff}

	if policy.Archive {
		offset := 0
		batch := 0
		for {
			entries, err := s.store.OlderThan(ctx, cutoff, exportBatchSize, offset)
			if err != nil {
				return nil, err
			}
			if len(entries) == 0 {
				break
			}

			if err := archiver.Archive(ctx, archiveKey(now, batch), entries); err != nil {
				return nil, err
			}
			result.Archived += int64(len(entries))

			if len(entries) < exportBatchSize {
				break
			}
			offset += exportBatchSize
			batch++
		}
	}

	deleted, err := s.store.DeleteBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	result.Deleted = deleted

	return result, nil
}
