package agent

import "time"

// Status represents an agent's current state.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusThinking Status = "thinking"
	StatusWorking  Status = "working"
)

// Agent is a named assistant configuration: which model it talks to
// and how it introduces itself.
type Agent struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	SystemPrompt string    `json:"system_prompt"`
	Model        string    `json:"model"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
