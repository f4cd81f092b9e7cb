package scheduler

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// HistoryPruner drops execution records older than a given age
type HistoryPruner interface {
	PruneHistory(maxAge time.Duration) int
}

// HistoryRetentionJob keeps the execution history within its retention window
type HistoryRetentionJob struct {
	pruner    HistoryPruner
	retention time.Duration
	log       zerolog.Logger
}

// NewHistoryRetentionJob creates a new history retention job
func NewHistoryRetentionJob(pruner HistoryPruner, retention time.Duration, log zerolog.Logger) *HistoryRetentionJob {
	return &HistoryRetentionJob{
		pruner:    pruner,
		retention: retention,
		log:       log.With().Str("job", "history_retention").Logger(),
	}
}

// Name returns the job name
func (j *HistoryRetentionJob) Name() string {
	return "history_retention"
}

// Run prunes old execution records
func (j *HistoryRetentionJob) Run() error {
	if j.retention <= 0 {
		return fmt.Errorf("invalid retention %s", j.retention)
	}

	removed := j.pruner.PruneHistory(j.retention)
	if removed > 0 {
		j.log.Info().
			Int("removed", removed).
			Dur("retention", j.retention).
			Msg("Pruned execution history")
	}
	return nil
}
