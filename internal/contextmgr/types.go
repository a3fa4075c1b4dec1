package contextmgr

import "fmt"

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// InvalidRoleError is returned by Append when the role is outside the known set.
type InvalidRoleError struct {
	Role Role
}

func (e *InvalidRoleError) Error() string {
	return fmt.Sprintf("invalid role: %q", string(e.Role))
}

// Message is a single turn in the conversation log. Seq is assigned at append
// time and never reassigned, so the retention policy can order messages by
// insertion even after earlier turns have been dropped.
type Message struct {
	Role            Role   `json:"role"`
	Content         string `json:"content"`
	EstimatedTokens int    `json:"estimated_tokens"`
	Seq             int    `json:"seq"`
}

// Status is the usage tier reported by Monitor.
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// Usage is a point-in-time reading of window occupancy.
type Usage struct {
	TotalTokens int     `json:"total_tokens"`
	MaxTokens   int     `json:"max_tokens"`
	UsageRatio  float64 `json:"usage_ratio"`
	Status      Status  `json:"status"`
}

// CompactResult reports the effect of one compaction pass.
type CompactResult struct {
	RemovedCount  int `json:"removed_count"`
	RetainedCount int `json:"retained_count"`
	TokensFreed   int `json:"tokens_freed"`
}

// Stats aggregates the current log.
type Stats struct {
	MessageCount int          `json:"message_count"`
	TotalTokens  int          `json:"total_tokens"`
	PerRole      map[Role]int `json:"per_role_breakdown"`
	UsageRatio   float64      `json:"usage_ratio"`
	Compactions  int          `json:"compaction_count"`
}
