package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/cache"
	"github.com/trackarr/trackarr/pkg/logger"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
	"go.uber.org/zap"
)

const jobTypeImport = "import"

const pollInterval = 5 * time.Second

// Executor runs one import job for its source.
type Executor func(ctx context.Context, job *storage.Job) (*Result, error)

// Scheduler drives recurring imports through the jobs table. Workers
// coordinate only through committed job state, so a crashed run is simply
// rescheduled on the next poll.
type Scheduler struct {
	store     storage.Storage
	interval  time.Duration
	cleanup   time.Duration
	executors map[string]Executor
	running   *cache.Cache[int64, context.CancelFunc]
}

// NewScheduler creates a scheduler. interval is how long after a finished
// job its successor is scheduled; zero disables recurrence. cleanup is how
// long finished jobs are kept; zero disables pruning.
func NewScheduler(store storage.Storage, interval, cleanup time.Duration, executors map[string]Executor) *Scheduler {
	return &Scheduler{
		store:     store,
		interval:  interval,
		cleanup:   cleanup,
		executors: executors,
		running:   cache.New[int64, context.CancelFunc](),
	}
}

// Schedule enqueues an import job. Recurrence is handled by the scheduler
// when the job finishes.
func (s *Scheduler) Schedule(ctx context.Context, source string, userID int64, mode Mode, at time.Time) (int64, error) {
	if _, ok := s.executors[source]; !ok {
		return 0, fmt.Errorf("no executor for import source %q", source)
	}
	return s.store.CreateJob(ctx, model.Job{
		Type:        jobTypeImport,
		Source:      source,
		UserID:      int32(userID),
		Mode:        string(mode),
		ScheduledAt: at,
	}, storage.JobStatePending)
}

// Run polls for due jobs until the context is cancelled, then cancels
// whatever is still running. Blocking call.
func (s *Scheduler) Run(ctx context.Context) error {
	go s.runPruning(ctx)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case <-ticker.C:
			s.runDueJobs(ctx)
		}
	}
}

func (s *Scheduler) runDueJobs(ctx context.Context) {
	log := logger.FromCtx(ctx)

	jobs, err := s.store.ListJobsByState(ctx, storage.JobStatePending)
	if err != nil {
		log.Error("failed to list pending jobs", zap.Error(err))
		return
	}

	now := time.Now()
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return
		}
		if job.ScheduledAt.After(now) {
			continue
		}
		s.execute(ctx, job)
	}
}

func (s *Scheduler) execute(ctx context.Context, job *storage.Job) {
	log := logger.FromCtx(ctx).With(
		zap.Int64("job_id", int64(job.ID)),
		zap.String("source", job.Source),
	)

	executor, ok := s.executors[job.Source]
	if !ok {
		msg := "no executor for import source"
		log.Error(msg)
		if err := s.store.UpdateJobState(ctx, int64(job.ID), storage.JobStateError, &msg); err != nil {
			log.Error("failed to fail job", zap.Error(err))
		}
		return
	}

	if err := s.store.UpdateJobState(ctx, int64(job.ID), storage.JobStateRunning, nil); err != nil {
		log.Error("failed to mark job running", zap.Error(err))
		return
	}

	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.running.Set(int64(job.ID), cancel)
	defer s.running.Delete(int64(job.ID))

	result, err := executor(jobCtx, job)
	if err != nil {
		log.Warn("import job failed", zap.Error(err))
		msg := err.Error()
		if err := s.store.UpdateJobState(ctx, int64(job.ID), storage.JobStateError, &msg); err != nil {
			log.Error("failed to mark job failed", zap.Error(err))
		}
		s.reschedule(ctx, job)
		return
	}

	log.Info("import job finished",
		zap.Any("counts", result.Counts),
		zap.Int("warnings", len(result.Warnings)))
	if err := s.store.UpdateJobState(ctx, int64(job.ID), storage.JobStateDone, nil); err != nil {
		log.Error("failed to mark job done", zap.Error(err))
	}
	s.reschedule(ctx, job)
}

// reschedule enqueues the successor of a finished recurring job unless one
// is already waiting.
func (s *Scheduler) reschedule(ctx context.Context, job *storage.Job) {
	if s.interval <= 0 {
		return
	}
	log := logger.FromCtx(ctx)

	pending, err := s.store.ListJobs(ctx, table.Job.Source.EQ(sqlite.String(job.Source)).
		AND(table.Job.UserID.EQ(sqlite.Int32(job.UserID))).
		AND(table.Job.State.EQ(sqlite.String(string(storage.JobStatePending)))))
	if err != nil {
		log.Error("failed to check for pending successor", zap.Error(err))
		return
	}
	if len(pending) > 0 {
		return
	}

	if _, err := s.Schedule(ctx, job.Source, int64(job.UserID), Mode(job.Mode), time.Now().Add(s.interval)); err != nil {
		log.Error("failed to reschedule import", zap.Error(err))
	}
}

func (s *Scheduler) runPruning(ctx context.Context) {
	if s.cleanup <= 0 {
		return
	}

	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pruneFinishedJobs(ctx)
		}
	}
}

func (s *Scheduler) pruneFinishedJobs(ctx context.Context) {
	log := logger.FromCtx(ctx)

	cutoff := time.Now().Add(-s.cleanup)
	finished, err := s.store.ListJobs(ctx, table.Job.State.IN(
		sqlite.String(string(storage.JobStateDone)),
		sqlite.String(string(storage.JobStateError)),
	))
	if err != nil {
		log.Error("failed to list finished jobs", zap.Error(err))
		return
	}

	pruned := 0
	for _, job := range finished {
		if job.FinishedAt == nil || job.FinishedAt.After(cutoff) {
			continue
		}
		if err := s.store.DeleteJob(ctx, int64(job.ID)); err != nil {
			log.Error("failed to prune job", zap.Int64("job_id", int64(job.ID)), zap.Error(err))
			continue
		}
		pruned++
	}
	if pruned > 0 {
		log.Info("pruned finished jobs", zap.Int("count", pruned))
	}
}

func (s *Scheduler) shutdown() {
	var wg sync.WaitGroup
	for _, id := range s.running.Keys() {
		if cancel, ok := s.running.Get(id); ok {
			wg.Add(1)
			go func(cancel context.CancelFunc) {
				defer wg.Done()
				cancel()
			}(cancel)
		}
	}
	wg.Wait()
}

// ListScheduled returns a user's import jobs, soonest first.
func ListScheduled(ctx context.Context, store storage.Storage, userID int64) ([]*storage.Job, error) {
	return store.ListJobs(ctx, table.Job.UserID.EQ(sqlite.Int64(userID)).
		AND(table.Job.Type.EQ(sqlite.String(jobTypeImport))))
}
