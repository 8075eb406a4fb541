//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/model"
	"lecture-script-service/internal/domain/ports/repository"
)

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// ---- Mock JobRepository ----

type MockJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job

	SaveFunc          func(ctx context.Context, job *model.Job) error
	MarkStartedFunc   func(ctx context.Context, id string, at time.Time) (bool, error)
	MarkCancelledFunc func(ctx context.Context, id string) (bool, error)
}

var _ repository.JobRepository = (*MockJobRepo)(nil)

func NewMockJobRepo() *MockJobRepo {
	return &MockJobRepo{jobs: make(map[string]*model.Job)}
}

func (m *MockJobRepo) Save(ctx context.Context, job *model.Job) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if job.ID == "" {
		job.ID = "job-" + time.Now().Format("150405.000000000")
	}
	cp := *job
	m.jobs[job.ID] = &cp
	return nil
}

func (m *MockJobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MockJobRepo) List(ctx context.Context, status model.JobStatus, offset, limit int) ([]*model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	for _, j := range m.jobs {
		if status != "" && j.Status != status {
			continue
		}
		cp := *j
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MockJobRepo) MarkStarted(ctx context.Context, id string, at time.Time) (bool, error) {
	if m.MarkStartedFunc != nil {
		return m.MarkStartedFunc(ctx, id, at)
	}
	return m.transition(id, func(j *model.Job) bool {
		if j.Status != model.JobStatusPending {
			return false
		}
		j.Status = model.JobStatusProcessing
		j.StartedAt = &at
		return true
	})
}

func (m *MockJobRepo) UpdateProgress(ctx context.Context, id string, progress int) (bool, error) {
	return m.transition(id, func(j *model.Job) bool {
		if j.Status != model.JobStatusProcessing || progress < j.Progress {
			return false
		}
		j.Progress = progress
		return true
	})
}

func (m *MockJobRepo) MarkCompleted(ctx context.Context, tx repository.Tx, id string, at time.Time) (bool, error) {
	return m.transition(id, func(j *model.Job) bool {
		if j.Status != model.JobStatusProcessing {
			return false
		}
		j.Status = model.JobStatusCompleted
		j.Progress = 100
		j.CompletedAt = &at
		return true
	})
}

func (m *MockJobRepo) MarkFailed(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	return m.transition(id, func(j *model.Job) bool {
		if j.Status != model.JobStatusPending && j.Status != model.JobStatusProcessing {
			return false
		}
		j.Status = model.JobStatusFailed
		j.ErrorMessage = reason
		j.CompletedAt = &at
		return true
	})
}

func (m *MockJobRepo) MarkCancelled(ctx context.Context, id string) (bool, error) {
	if m.MarkCancelledFunc != nil {
		return m.MarkCancelledFunc(ctx, id)
	}
	return m.transition(id, func(j *model.Job) bool {
		if j.Status != model.JobStatusPending && j.Status != model.JobStatusProcessing {
			return false
		}
		j.Status = model.JobStatusCancelled
		return true
	})
}

func (m *MockJobRepo) transition(id string, apply func(*model.Job) bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return false, nil
	}
	return apply(job), nil
}

// ---- Mock MediaFileRepository ----

type MockFileRepo struct {
	mu    sync.Mutex
	files map[string]*model.MediaFile
}

var _ repository.MediaFileRepository = (*MockFileRepo)(nil)

func NewMockFileRepo() *MockFileRepo {
	return &MockFileRepo{files: make(map[string]*model.MediaFile)}
}

func (m *MockFileRepo) FindByID(ctx context.Context, id string) (*model.MediaFile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (m *MockFileRepo) Save(ctx context.Context, file *model.MediaFile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *file
	m.files[file.ID] = &cp
	return nil
}

// ---- Mock ScriptRepository ----

type MockScriptRepo struct {
	mu      sync.Mutex
	scripts map[string]*model.Script // keyed by job ID
}

var _ repository.ScriptRepository = (*MockScriptRepo)(nil)

func NewMockScriptRepo() *MockScriptRepo {
	return &MockScriptRepo{scripts: make(map[string]*model.Script)}
}

func (m *MockScriptRepo) Save(ctx context.Context, tx repository.Tx, script *model.Script) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *script
	m.scripts[script.JobID] = &cp
	return nil
}

func (m *MockScriptRepo) FindByID(ctx context.Context, id string) (*model.Script, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.scripts {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockScriptRepo) FindByJobID(ctx context.Context, jobID string) (*model.Script, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scripts[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// ---- Mock Dispatcher ----

type MockDispatcher struct {
	mu         sync.Mutex
	Dispatched []*model.Job

	DispatchFunc func(job *model.Job) error
}

func (m *MockDispatcher) Dispatch(job *model.Job) error {
	if m.DispatchFunc != nil {
		return m.DispatchFunc(job)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Dispatched = append(m.Dispatched, job)
	return nil
}

// ---- Mock Publisher ----

type MockPublisher struct {
	mu     sync.Mutex
	Events []model.ProgressEvent
}

func (m *MockPublisher) Publish(event model.ProgressEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, event)
}

func (m *MockPublisher) Published() []model.ProgressEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ProgressEvent, len(m.Events))
	copy(out, m.Events)
	return out
}
