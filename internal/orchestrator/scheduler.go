package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nidhogg/pipboy/internal/agent"
)

// Scheduler fans jobs out to agents over a bounded goroutine pool.
type Scheduler struct {
	engine  *agent.Engine
	mu      sync.RWMutex
	running map[string]*Job
	pool    chan struct{} // semaphore-based pool
	logger  *zap.Logger
}

// NewScheduler creates a scheduler with a bounded goroutine pool.
func NewScheduler(engine *agent.Engine, poolSize int, logger *zap.Logger) *Scheduler {
	if poolSize <= 0 {
		poolSize = 4
	}
	return &Scheduler{
		engine:  engine,
		running: make(map[string]*Job),
		pool:    make(chan struct{}, poolSize),
		logger:  logger,
	}
}

// Dispatch executes jobs in parallel, returning results via channel.
// The channel closes once every job has reported.
func (s *Scheduler) Dispatch(ctx context.Context, jobs []*Job) <-chan *JobResult {
	results := make(chan *JobResult, len(jobs))
	var wg sync.WaitGroup

	for i, j := range jobs {
		j.ID = uuid.New().String()
		j.Seq = i
		j.Status = JobPending
		j.CreatedAt = time.Now()

		wg.Add(1)
		go func(job *Job) {
			defer wg.Done()
			s.pool <- struct{}{}        // acquire slot
			defer func() { <-s.pool }() // release slot

			results <- s.executeJob(ctx, job)
		}(j)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// executeJob runs a single job against its agent.
func (s *Scheduler) executeJob(ctx context.Context, job *Job) *JobResult {
	if ctx.Err() != nil {
		job.Status = JobCancelled
		return &JobResult{
			JobID:   job.ID,
			Seq:     job.Seq,
			AgentID: job.AgentID,
			Status:  JobCancelled,
			Error:   ctx.Err().Error(),
		}
	}

	start := time.Now()
	now := start
	job.StartedAt = &now
	job.Status = JobRunning

	s.mu.Lock()
	s.running[job.ID] = job
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, job.ID)
		s.mu.Unlock()
	}()

	s.logger.Info("executing job",
		zap.String("job", job.ID),
		zap.String("agent", job.AgentID))

	out, err := s.engine.ChatSimple(ctx, job.AgentID, job.Input, job.SystemPrompt)
	if err != nil {
		job.Status = JobFailed
		return &JobResult{
			JobID:    job.ID,
			Seq:      job.Seq,
			AgentID:  job.AgentID,
			Status:   JobFailed,
			Error:    err.Error(),
			Duration: time.Since(start),
		}
	}

	done := time.Now()
	job.CompletedAt = &done
	job.Status = JobDone

	return &JobResult{
		JobID:    job.ID,
		Seq:      job.Seq,
		AgentID:  job.AgentID,
		Output:   out,
		Status:   JobDone,
		Duration: time.Since(start),
	}
}

// Running returns currently executing jobs.
func (s *Scheduler) Running() []*Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]*Job, 0, len(s.running))
	for _, j := range s.running {
		jobs = append(jobs, j)
	}
	return jobs
}
