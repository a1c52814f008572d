package render

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Job queue states.
const (
	StatusPending = "pending"
	StatusRunning = "running"
	StatusDone    = "done"
	StatusFailed  = "failed"
)

// QueuedJob is one entry in the on-disk queue, stored as <id>.json.
type QueuedJob struct {
	ID      string    `json:"id"`
	Status  string    `json:"status"`
	Created time.Time `json:"created"`
	Error   string    `json:"error,omitempty"`
	Config  Config    `json:"config"`
}

// Queue is a directory of JSON job files. Single-consumer: Claim does not
// guard against two workers racing on the same directory.
type Queue struct {
	Dir string
}

// Enqueue adds a job and returns its id.
func (q Queue) Enqueue(cfg Config) (string, error) {
	if err := os.MkdirAll(q.Dir, 0755); err != nil {
		return "", fmt.Errorf("create queue dir: %w", err)
	}
	job := QueuedJob{
		ID:      uuid.NewString(),
		Status:  StatusPending,
		Created: time.Now().UTC(),
		Config:  cfg,
	}
	if err := q.write(job); err != nil {
		return "", err
	}
	return job.ID, nil
}

// Claim picks the oldest pending job, marks it running and returns it.
// ok is false when the queue has no pending work.
func (q Queue) Claim() (QueuedJob, bool, error) {
	jobs, err := q.List()
	if err != nil {
		return QueuedJob{}, false, err
	}
	for _, job := range jobs {
		if job.Status != StatusPending {
			continue
		}
		job.Status = StatusRunning
		if err := q.write(job); err != nil {
			return QueuedJob{}, false, err
		}
		return job, true, nil
	}
	return QueuedJob{}, false, nil
}

// Finish records a job's outcome.
func (q Queue) Finish(id string, runErr error) error {
	job, err := q.load(id)
	if err != nil {
		return err
	}
	if runErr != nil {
		job.Status = StatusFailed
		job.Error = runErr.Error()
	} else {
		job.Status = StatusDone
		job.Error = ""
	}
	return q.write(job)
}

// List returns every job, oldest first.
func (q Queue) List() ([]QueuedJob, error) {
	entries, err := os.ReadDir(q.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read queue dir: %w", err)
	}
	var jobs []QueuedJob
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		job, err := q.loadFile(filepath.Join(q.Dir, e.Name()))
		if err != nil {
			// a torn write should not wedge the whole queue
			continue
		}
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Created.Before(jobs[j].Created) })
	return jobs, nil
}

func (q Queue) load(id string) (QueuedJob, error) {
	return q.loadFile(filepath.Join(q.Dir, id+".json"))
}

func (q Queue) loadFile(path string) (QueuedJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return QueuedJob{}, fmt.Errorf("read queue entry: %w", err)
	}
	var job QueuedJob
	if err := json.Unmarshal(data, &job); err != nil {
		return QueuedJob{}, fmt.Errorf("parse queue entry %s: %w", path, err)
	}
	return job, nil
}

func (q Queue) write(job QueuedJob) error {
	data, err := json.MarshalIndent(job, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue entry: %w", err)
	}
	path := filepath.Join(q.Dir, job.ID+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write queue entry: %w", err)
	}
	return nil
}
