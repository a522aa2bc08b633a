// Package jobs keeps one evaluator per job and serializes the calls made against each.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/robbyt/go-shapescript"
	"github.com/robbyt/go-shapescript/internal/helpers"
)

var (
	ErrJobNotFound = errors.New("job not found")
	ErrNoFactory   = errors.New("evaluator factory is nil")
)

// EvaluatorFactory builds the evaluator for a new job.
type EvaluatorFactory func() (*shapescript.Evaluator, error)

type job struct {
	mu      sync.Mutex
	ev      *shapescript.Evaluator
	cleared bool
}

// Registry maps job ids to evaluators. It is safe for concurrent use; calls against one job run
// one at a time while different jobs proceed in parallel.
type Registry struct {
	mu      sync.Mutex
	jobs    map[string]*job
	factory EvaluatorFactory
	logger  *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(handler slog.Handler, factory EvaluatorFactory) (*Registry, error) {
	if factory == nil {
		return nil, ErrNoFactory
	}
	_, logger := helpers.SetupLogger(handler, "jobs", "Registry")
	return &Registry{
		jobs:    make(map[string]*job),
		factory: factory,
		logger:  logger,
	}, nil
}

// Open creates an evaluator for a new job and returns the job id.
func (r *Registry) Open() (string, error) {
	ev, err := r.factory()
	if err != nil {
		return "", fmt.Errorf("failed to create evaluator: %w", err)
	}

	id := uuid.New().String()
	r.mu.Lock()
	r.jobs[id] = &job{ev: ev}
	r.mu.Unlock()

	r.logger.Debug("job opened", "job", id)
	return id, nil
}

// Do runs fn with the job's evaluator. Calls for the same job are serialized.
func (r *Registry) Do(ctx context.Context, jobID string, fn func(*shapescript.Evaluator) error) error {
	j, ok := r.lookup(jobID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	if j.cleared {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(j.ev)
}

// Clear tears down the job's execution context and forgets the job. It waits for a call in
// progress on that job to finish.
func (r *Registry) Clear(jobID string) error {
	r.mu.Lock()
	j, ok := r.jobs[jobID]
	delete(r.jobs, jobID)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.cleared = true
	r.logger.Debug("job cleared", "job", jobID)
	return j.ev.Reset()
}

// Jobs returns the open job ids in sorted order.
func (r *Registry) Jobs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.jobs))
	for id := range r.jobs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close clears every job.
func (r *Registry) Close() error {
	var errs []error
	for _, id := range r.Jobs() {
		if err := r.Clear(id); err != nil && !errors.Is(err, ErrJobNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) lookup(jobID string) (*job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobID]
	return j, ok
}
