package storage

import (
	"context"

	"github.com/go-jet/jet/v2/sqlite"
	"github.com/trackarr/trackarr/pkg/machine"
	"github.com/trackarr/trackarr/pkg/storage/sqlite/schema/gen/model"
)

type JobState string

const (
	JobStateNew     JobState = ""
	JobStatePending JobState = "pending"
	JobStateRunning JobState = "running"
	JobStateError   JobState = "error"
	JobStateDone    JobState = "done"
)

// Job is a scheduled background task, currently recurring imports.
type Job struct {
	model.Job
}

func (j Job) State() JobState {
	return JobState(j.Job.State)
}

func (j Job) Machine() *machine.StateMachine[JobState] {
	return machine.New(j.State(),
		machine.From(JobStateNew).To(JobStatePending),
		machine.From(JobStatePending).To(JobStateRunning),
		machine.From(JobStateRunning).To(JobStateError, JobStateDone),
		machine.From(JobStateError).To(JobStatePending),
		machine.From(JobStateDone).To(JobStatePending),
	)
}

type JobStorage interface {
	CreateJob(ctx context.Context, job model.Job, initialState JobState) (int64, error)
	GetJob(ctx context.Context, id int64) (*Job, error)
	ListJobs(ctx context.Context, where sqlite.BoolExpression) ([]*Job, error)
	ListJobsByState(ctx context.Context, state JobState) ([]*Job, error)
	// UpdateJobState validates the transition against the job's state
	// machine before persisting it.
	UpdateJobState(ctx context.Context, id int64, state JobState, errorMsg *string) error
	DeleteJob(ctx context.Context, id int64) error
}
