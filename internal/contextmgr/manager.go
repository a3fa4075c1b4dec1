package contextmgr

import (
	"fmt"
	"math"
	"sync"

	"go.uber.org/zap"
)

// warnRatio is where Monitor starts reporting StatusWarning.
const warnRatio = 0.7

// Config controls window sizing and the retention policy. Zero-value fields
// take defaults; explicitly out-of-range values are rejected by New.
type Config struct {
	MaxTokens            int     `json:"max_tokens"`
	CompressionThreshold float64 `json:"compression_threshold"`
	TokenFactor          float64 `json:"token_factor"`
	RetainRecentNonUser  int     `json:"retain_recent_non_user"`
}

// DefaultConfig returns the standard window settings.
func DefaultConfig() Config {
	return Config{
		MaxTokens:            4000,
		CompressionThreshold: 0.8,
		TokenFactor:          0.3,
		RetainRecentNonUser:  5,
	}
}

func (c Config) normalize() Config {
	d := DefaultConfig()
	if c.MaxTokens == 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.CompressionThreshold == 0 {
		c.CompressionThreshold = d.CompressionThreshold
	}
	if c.TokenFactor == 0 {
		c.TokenFactor = d.TokenFactor
	}
	if c.RetainRecentNonUser == 0 {
		c.RetainRecentNonUser = d.RetainRecentNonUser
	}
	return c
}

func (c Config) validate() error {
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.CompressionThreshold <= 0 || c.CompressionThreshold > 1 {
		return fmt.Errorf("compression_threshold must be in (0, 1], got %g", c.CompressionThreshold)
	}
	if c.TokenFactor <= 0 {
		return fmt.Errorf("token_factor must be positive, got %g", c.TokenFactor)
	}
	if c.RetainRecentNonUser < 0 {
		return fmt.Errorf("retain_recent_non_user must not be negative, got %d", c.RetainRecentNonUser)
	}
	return nil
}

// Manager owns one conversation's ordered message log and its token
// accounting. Operations are synchronous and never touch I/O; the lock
// keeps the log coherent when the REST surface and the engine share a
// conversation. Compaction only happens when Compact is called; Append
// never triggers it.
type Manager struct {
	mu          sync.RWMutex
	cfg         Config
	messages    []Message
	totalTokens int
	nextSeq     int
	compactions int
	logger      *zap.Logger
}

// New builds a Manager, filling zero-value config fields with defaults and
// rejecting out-of-range settings.
func New(cfg Config, logger *zap.Logger) (*Manager, error) {
	cfg = cfg.normalize()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Manager{cfg: cfg, logger: logger}, nil
}

// Config returns the settings the manager was built with.
func (m *Manager) Config() Config {
	return m.cfg
}

// estimate approximates the token cost of content from its length. The crude
// factor stands in for a real tokenizer; all thresholds are calibrated to it.
func (m *Manager) estimate(content string) int {
	return int(math.Ceil(float64(len(content)) * m.cfg.TokenFactor))
}

// Append adds a message to the end of the log. The only possible failure is
// an unknown role, which leaves the log untouched.
func (m *Manager) Append(role Role, content string) (Message, error) {
	if !role.Valid() {
		return Message{}, &InvalidRoleError{Role: role}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := Message{
		Role:            role,
		Content:         content,
		EstimatedTokens: m.estimate(content),
		Seq:             m.nextSeq,
	}
	m.nextSeq++
	m.messages = append(m.messages, msg)
	m.totalTokens += msg.EstimatedTokens
	m.logger.Debug("appended message",
		zap.String("role", string(role)),
		zap.Int("tokens", msg.EstimatedTokens),
		zap.Int("total", m.totalTokens))
	return msg, nil
}

// TotalTokens returns the estimated token cost of the whole log.
func (m *Manager) TotalTokens() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalTokens
}

func (m *Manager) usageRatio() float64 {
	return float64(m.totalTokens) / float64(m.cfg.MaxTokens)
}

// Monitor reports current window occupancy without mutating the log.
func (m *Manager) Monitor() Usage {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ratio := m.usageRatio()
	status := StatusOK
	switch {
	case ratio >= m.cfg.CompressionThreshold:
		status = StatusCritical
	case ratio >= warnRatio:
		status = StatusWarning
	}
	return Usage{
		TotalTokens: m.totalTokens,
		MaxTokens:   m.cfg.MaxTokens,
		UsageRatio:  ratio,
		Status:      status,
	}
}

// ShouldCompress reports whether usage has reached the compression threshold.
// Hitting the threshold exactly counts. The check is advisory: the caller
// decides when to compact.
func (m *Manager) ShouldCompress() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.usageRatio() >= m.cfg.CompressionThreshold
}

// Compact applies the retention policy: every user message survives, and only
// the most recent RetainRecentNonUser non-user messages survive alongside
// them. The pass filters, never reorders, so running it again without
// intervening appends removes nothing.
func (m *Manager) Compact() CompactResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.messages)
	beforeTokens := m.totalTokens

	nonUser := 0
	for _, msg := range m.messages {
		if msg.Role != RoleUser {
			nonUser++
		}
	}
	// The log is oldest-first, so dropping the first excess non-user
	// messages keeps exactly the most recent ones.
	excess := nonUser - m.cfg.RetainRecentNonUser

	retained := make([]Message, 0, len(m.messages))
	dropped := 0
	total := 0
	for _, msg := range m.messages {
		if msg.Role != RoleUser && dropped < excess {
			dropped++
			continue
		}
		retained = append(retained, msg)
		total += msg.EstimatedTokens
	}

	m.messages = retained
	m.totalTokens = total

	res := CompactResult{
		RemovedCount:  before - len(retained),
		RetainedCount: len(retained),
		TokensFreed:   beforeTokens - total,
	}
	if res.RemovedCount > 0 {
		m.compactions++
		m.logger.Info("compacted context",
			zap.Int("removed", res.RemovedCount),
			zap.Int("retained", res.RetainedCount),
			zap.Int("tokens_freed", res.TokensFreed))
	}
	return res
}

// Stats aggregates the current log without mutating it.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	perRole := make(map[Role]int, 4)
	for _, msg := range m.messages {
		perRole[msg.Role]++
	}
	return Stats{
		MessageCount: len(m.messages),
		TotalTokens:  m.totalTokens,
		PerRole:      perRole,
		UsageRatio:   m.usageRatio(),
		Compactions:  m.compactions,
	}
}

// Recent returns a copy of the last n messages in their original order.
// n beyond the log length returns the whole log; n <= 0 returns none.
func (m *Manager) Recent(n int) []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 {
		return []Message{}
	}
	if n > len(m.messages) {
		n = len(m.messages)
	}
	out := make([]Message, n)
	copy(out, m.messages[len(m.messages)-n:])
	return out
}

// Messages returns a copy of the full log, oldest first.
func (m *Manager) Messages() []Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Clear drops the whole log and restarts sequence numbering. The lifetime
// compaction counter is kept.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
	m.totalTokens = 0
	m.nextSeq = 0
	m.logger.Info("cleared context")
}

// CompactionCount reports how many compaction passes removed at least one
// message over the manager's lifetime.
func (m *Manager) CompactionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.compactions
}
