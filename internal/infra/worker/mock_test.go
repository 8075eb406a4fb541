//go:build !integration

package worker_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"lecture-script-service/internal/domain"
	"lecture-script-service/internal/domain/model"
	"lecture-script-service/internal/domain/ports/adapter"
	"lecture-script-service/internal/domain/ports/repository"
)

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// ---- Mock TransactionManager ----

type MockTxManager struct{}

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	return fn(ctx, nil)
}

// ---- Mock JobRepository ----

type MockJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*model.Job

	UpdateProgressFunc func(ctx context.Context, id string, progress int) (bool, error)

	ProgressLog []int
}

var _ repository.JobRepository = (*MockJobRepo)(nil)

func NewMockJobRepo() *MockJobRepo {
	return &MockJobRepo{jobs: make(map[string]*model.Job)}
}

func (m *MockJobRepo) Seed(job *model.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *job
	m.jobs[job.ID] = &cp
}

func (m *MockJobRepo) Get(id string) *model.Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j, ok := m.jobs[id]; ok {
		cp := *j
		return &cp
	}
	return nil
}

func (m *MockJobRepo) Save(ctx context.Context, job *model.Job) error {
	m.Seed(job)
	return nil
}

func (m *MockJobRepo) FindByID(ctx context.Context, id string) (*model.Job, error) {
	if j := m.Get(id); j != nil {
		return j, nil
	}
	return nil, domain.ErrNotFound
}

func (m *MockJobRepo) List(ctx context.Context, status model.JobStatus, offset, limit int) ([]*model.Job, error) {
	return nil, nil
}

func (m *MockJobRepo) MarkStarted(ctx context.Context, id string, at time.Time) (bool, error) {
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
	if m.UpdateProgressFunc != nil {
		return m.UpdateProgressFunc(ctx, id, progress)
	}
	return m.transition(id, func(j *model.Job) bool {
		if j.Status != model.JobStatusProcessing || progress < j.Progress {
			return false
		}
		j.Progress = progress
		m.ProgressLog = append(m.ProgressLog, progress)
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
	scripts map[string]*model.Script

	SaveFunc func(ctx context.Context, tx repository.Tx, script *model.Script) error
}

var _ repository.ScriptRepository = (*MockScriptRepo)(nil)

func NewMockScriptRepo() *MockScriptRepo {
	return &MockScriptRepo{scripts: make(map[string]*model.Script)}
}

func (m *MockScriptRepo) Save(ctx context.Context, tx repository.Tx, script *model.Script) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, tx, script)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *script
	m.scripts[script.JobID] = &cp
	return nil
}

func (m *MockScriptRepo) FindByID(ctx context.Context, id string) (*model.Script, error) {
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

// ---- Mock MediaPreparer ----

type MockPreparer struct {
	PrepareFunc func(ctx context.Context, sourcePath, jobID string) (string, error)
}

var _ adapter.MediaPreparer = (*MockPreparer)(nil)

func (m *MockPreparer) PrepareAudio(ctx context.Context, sourcePath, jobID string) (string, error) {
	return m.PrepareFunc(ctx, sourcePath, jobID)
}

// ---- Mock TranscriptionEngine / EngineProvider ----

type MockEngine struct {
	TranscribeFunc func(ctx context.Context, audioPath string, opts adapter.TranscribeOptions, onProgress adapter.ProgressFunc) (*adapter.Transcript, error)
}

var _ adapter.TranscriptionEngine = (*MockEngine)(nil)

func (m *MockEngine) Transcribe(ctx context.Context, audioPath string, opts adapter.TranscribeOptions, onProgress adapter.ProgressFunc) (*adapter.Transcript, error) {
	return m.TranscribeFunc(ctx, audioPath, opts, onProgress)
}

type MockEngineProvider struct {
	Engine adapter.TranscriptionEngine
	Err    error

	LastConfig adapter.EngineConfig
}

var _ adapter.EngineProvider = (*MockEngineProvider)(nil)

func (m *MockEngineProvider) GetOrLoad(ctx context.Context, cfg adapter.EngineConfig) (adapter.TranscriptionEngine, error) {
	m.LastConfig = cfg
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Engine, nil
}

// ---- Mock SlideExtractor ----

type MockExtractor struct {
	Slides []adapter.Slide
	Err    error
}

var _ adapter.SlideExtractor = (*MockExtractor)(nil)

func (m *MockExtractor) Extract(ctx context.Context, path string) ([]adapter.Slide, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Slides, nil
}

// ---- Mock AIServiceAdapter ----

type MockAI struct {
	ChatFunc func(ctx context.Context, mdl string, messages []adapter.Message) (string, adapter.Usage, error)
}

var _ adapter.AIServiceAdapter = (*MockAI)(nil)

func (m *MockAI) ListModels(ctx context.Context) ([]string, error) {
	return []string{"mock-model"}, nil
}

func (m *MockAI) Chat(ctx context.Context, mdl string, messages []adapter.Message) (string, error) {
	reply, _, err := m.ChatFunc(ctx, mdl, messages)
	return reply, err
}

func (m *MockAI) ChatWithUsage(ctx context.Context, mdl string, messages []adapter.Message) (string, adapter.Usage, error) {
	return m.ChatFunc(ctx, mdl, messages)
}
