package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wmweemba/ioss-compliance-reporter/internal/domain"
)

// syncRunner is the slice of the sync engine the job manager drives.
type syncRunner interface {
	SyncFull(ctx context.Context, connectionID string) (*domain.SyncResult, error)
	SyncIncremental(ctx context.Context, connectionID string) (*domain.SyncResult, error)
}

// JobStatus tracks a background sync through its lifecycle.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// SyncJob is a point-in-time snapshot of one tracked background sync.
type SyncJob struct {
	ID           string             `json:"id"`
	ConnectionID string             `json:"connectionId"`
	Full         bool               `json:"full"`
	Status       JobStatus          `json:"status"`
	Result       *domain.SyncResult `json:"result,omitempty"`
	Error        string             `json:"error,omitempty"`
	EnqueuedAt   time.Time          `json:"enqueuedAt"`
	StartedAt    *time.Time         `json:"startedAt,omitempty"`
	FinishedAt   *time.Time         `json:"finishedAt,omitempty"`
}

// SyncJobManager runs syncs detached from the request that triggered them
// and keeps finished jobs queryable for a while. State is in-memory: a
// restart forgets job history but never order data, and the shared sync
// lock keeps restarted instances from doubling up on work.
type SyncJobManager struct {
	runner  syncRunner
	timeout time.Duration // budget per job, independent of the enqueuing request
	retain  time.Duration // how long finished jobs stay queryable
	logger  zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*SyncJob
}

// NewSyncJobManager creates a new sync job manager
func NewSyncJobManager(runner syncRunner, timeout time.Duration, logger zerolog.Logger) *SyncJobManager {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &SyncJobManager{
		runner:  runner,
		timeout: timeout,
		retain:  time.Hour,
		jobs:    make(map[string]*SyncJob),
		logger:  logger,
	}
}

// Enqueue registers a background sync and starts it immediately. The
// returned snapshot carries the job ID callers poll with Get.
func (m *SyncJobManager) Enqueue(connectionID string, full bool) *SyncJob {
	job := &SyncJob{
		ID:           uuid.NewString(),
		ConnectionID: connectionID,
		Full:         full,
		Status:       JobPending,
		EnqueuedAt:   time.Now().UTC(),
	}

	m.mu.Lock()
	m.pruneLocked()
	m.jobs[job.ID] = job
	snapshot := *job
	m.mu.Unlock()

	m.logger.Info().
		Str("jobId", job.ID).
		Str("connectionId", connectionID).
		Bool("full", full).
		Msg("Background sync enqueued")

	go m.run(job.ID)

	return &snapshot
}

// Get returns a snapshot of the job, or false when it never existed or has
// been pruned.
func (m *SyncJobManager) Get(jobID string) (*SyncJob, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneLocked()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, false
	}
	snapshot := *job
	return &snapshot, true
}

func (m *SyncJobManager) run(jobID string) {
	m.mu.Lock()
	job, ok := m.jobs[jobID]
	if !ok {
		m.mu.Unlock()
		return
	}
	connectionID, full := job.ConnectionID, job.Full
	startedAt := time.Now().UTC()
	job.Status = JobRunning
	job.StartedAt = &startedAt
	m.mu.Unlock()

	// Detached from the enqueuing request on purpose: the job outlives it.
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var result *domain.SyncResult
	var err error
	if full {
		result, err = m.runner.SyncFull(ctx, connectionID)
	} else {
		result, err = m.runner.SyncIncremental(ctx, connectionID)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok = m.jobs[jobID]
	if !ok {
		return
	}
	finishedAt := time.Now().UTC()
	job.FinishedAt = &finishedAt
	job.Result = result
	if err != nil {
		job.Status = JobFailed
		job.Error = err.Error()
		m.logger.Warn().Err(err).Str("jobId", jobID).Str("connectionId", connectionID).Msg("Background sync failed")
		return
	}
	job.Status = JobCompleted
}

// pruneLocked drops finished jobs past the retention window. Callers hold
// the mutex.
func (m *SyncJobManager) pruneLocked() {
	cutoff := time.Now().Add(-m.retain)
	for id, job := range m.jobs {
		if job.FinishedAt != nil && job.FinishedAt.Before(cutoff) {
			delete(m.jobs, id)
		}
	}
}
