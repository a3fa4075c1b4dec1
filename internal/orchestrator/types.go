package orchestrator

import "time"

// JobStatus tracks execution state.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobDone      JobStatus = "done"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Job is a one-shot prompt assigned to an agent.
type Job struct {
	ID           string     `json:"id"`
	Seq          int        `json:"seq"`
	AgentID      string     `json:"agent_id"`
	Input        string     `json:"input"`
	SystemPrompt string     `json:"system_prompt,omitempty"`
	Status       JobStatus  `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// JobResult holds the output of a finished job. Seq preserves the
// dispatch order so callers can reassemble parallel results.
type JobResult struct {
	JobID    string        `json:"job_id"`
	Seq      int           `json:"seq"`
	AgentID  string        `json:"agent_id"`
	Output   string        `json:"output"`
	Status   JobStatus     `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}
