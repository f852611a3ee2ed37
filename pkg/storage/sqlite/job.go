package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-jet/jet/v2/qrm"
	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/storage"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/table"
)

// CreateJob stores a job after validating the initial state transition
func (s *SQLite) CreateJob(ctx context.Context, job model.Job, initialState storage.JobState) (int64, error) {
	wrapped := storage.Job{Job: job}
	if err := wrapped.Machine().ToState(initialState); err != nil {
		return 0, err
	}
	job.State = string(initialState)

	if job.ScheduledAt.IsZero() {
		job.ScheduledAt = time.Now()
	}

	stmt := table.Job.
		INSERT(table.Job.MutableColumns.Except(table.Job.CreatedAt, table.Job.UpdatedAt)).
		MODEL(job)

	result, err := s.handleInsert(ctx, stmt)
	if err != nil {
		return 0, err
	}

	return result.LastInsertId()
}

// GetJob gets a job by id
func (s *SQLite) GetJob(ctx context.Context, id int64) (*storage.Job, error) {
	stmt := table.Job.
		SELECT(table.Job.AllColumns).
		FROM(table.Job).
		WHERE(table.Job.ID.EQ(sqlite.Int64(id)))

	var job storage.Job
	err := stmt.QueryContext(ctx, s.handle(), &job.Job)
	if err != nil {
		if errors.Is(err, qrm.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ListJobs lists jobs matching the given condition, soonest first
func (s *SQLite) ListJobs(ctx context.Context, where sqlite.BoolExpression) ([]*storage.Job, error) {
	rows := make([]*model.Job, 0)

	stmt := table.Job.
		SELECT(table.Job.AllColumns).
		FROM(table.Job).
		WHERE(where).
		ORDER_BY(table.Job.ScheduledAt.ASC())

	err := stmt.QueryContext(ctx, s.handle(), &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	jobs := make([]*storage.Job, 0, len(rows))
	for _, r := range rows {
		jobs = append(jobs, &storage.Job{Job: *r})
	}

	return jobs, nil
}

// ListJobsByState lists jobs in the given state
func (s *SQLite) ListJobsByState(ctx context.Context, state storage.JobState) ([]*storage.Job, error) {
	return s.ListJobs(ctx, table.Job.State.EQ(sqlite.String(string(state))))
}

// UpdateJobState transitions a job after validating against its state
// machine. Running stamps started_at; done and error stamp finished_at.
func (s *SQLite) UpdateJobState(ctx context.Context, id int64, state storage.JobState, errorMsg *string) error {
	return s.Tx(ctx, func(store storage.Storage) error {
		tx := store.(*SQLite)

		job, err := tx.GetJob(ctx, id)
		if err != nil {
			return err
		}

		if err := job.Machine().ToState(state); err != nil {
			return err
		}

		now := time.Now()
		job.Job.State = string(state)
		job.Job.Error = errorMsg
		job.Job.UpdatedAt = &now

		switch state {
		case storage.JobStateRunning:
			job.Job.StartedAt = &now
		case storage.JobStateDone, storage.JobStateError:
			job.Job.FinishedAt = &now
		case storage.JobStatePending:
			job.Job.StartedAt = nil
			job.Job.FinishedAt = nil
		}

		stmt := table.Job.
			UPDATE(table.Job.MutableColumns.Except(table.Job.CreatedAt)).
			MODEL(job.Job).
			WHERE(table.Job.ID.EQ(sqlite.Int64(id)))

		_, err = tx.handleUpdate(ctx, stmt)
		return err
	})
}

// DeleteJob removes a job by id
func (s *SQLite) DeleteJob(ctx context.Context, id int64) error {
	stmt := table.Job.
		DELETE().
		WHERE(table.Job.ID.EQ(sqlite.Int64(id)))

	_, err := s.handleDelete(ctx, stmt)
	return err
}

var _ storage.JobStorage = (*SQLite)(nil)
