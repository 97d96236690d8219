package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job tracks one background voucher build.
type Job struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Status    JobStatus `json:"status"`
	VoucherID int64     `json:"voucherId,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type jobStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
}

func newJobStore() *jobStore {
	return &jobStore{jobs: map[string]*Job{}}
}

func (s *jobStore) start(filename string) Job {
	now := time.Now().UTC()
	job := &Job{ID: uuid.NewString(), Filename: filename, Status: JobRunning, CreatedAt: now, UpdatedAt: now}
	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return *job
}

func (s *jobStore) finish(id string, voucherID int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return
	}
	job.UpdatedAt = time.Now().UTC()
	if err != nil {
		job.Status = JobFailed
		job.Error = err.Error()
		return
	}
	job.Status = JobDone
	job.VoucherID = voucherID
}

func (s *jobStore) get(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}
