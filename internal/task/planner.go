package task

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Planner tracks a project's tasks, their dependencies, and overall
// progress. It manages state only; execution is driven from outside.
type Planner struct {
	mu          sync.RWMutex
	tasks       map[string]*Task
	order       []string
	ProjectName string
	StartDate   time.Time
}

// NewPlanner creates an empty planner.
func NewPlanner(projectName string) *Planner {
	return &Planner{
		tasks:       make(map[string]*Task),
		ProjectName: projectName,
		StartDate:   time.Now(),
	}
}

// Add registers a task. Re-adding an ID replaces the task in place.
func (p *Planner) Add(t *Task) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	if _, exists := p.tasks[t.ID]; !exists {
		p.order = append(p.order, t.ID)
	}
	p.tasks[t.ID] = t
}

// Get returns a task by ID.
func (p *Planner) Get(id string) (*Task, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, ok := p.tasks[id]
	return t, ok
}

// All returns every task in insertion order.
func (p *Planner) All() []*Task {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.inOrder()
}

func (p *Planner) inOrder() []*Task {
	out := make([]*Task, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.tasks[id])
	}
	return out
}

func (p *Planner) byStatus(s Status) []*Task {
	var out []*Task
	for _, t := range p.inOrder() {
		if t.Status == s {
			out = append(out, t)
		}
	}
	return out
}

// ReadyTasks returns pending tasks whose dependencies are all
// completed, highest priority first.
func (p *Planner) ReadyTasks() []*Task {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var completed []string
	for _, t := range p.inOrder() {
		if t.Status == StatusCompleted {
			completed = append(completed, t.ID)
		}
	}

	var ready []*Task
	for _, t := range p.inOrder() {
		if t.Status == StatusPending && t.CanStart(completed) {
			ready = append(ready, t)
		}
	}
	sort.SliceStable(ready, func(i, j int) bool {
		return ready[i].Priority > ready[j].Priority
	})
	return ready
}

// BlockedTasks returns tasks parked with a blocking reason.
func (p *Planner) BlockedTasks() []*Task {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byStatus(StatusBlocked)
}

// InProgressTasks returns tasks currently being worked.
func (p *Planner) InProgressTasks() []*Task {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byStatus(StatusInProgress)
}

// CompletedTasks returns finished tasks.
func (p *Planner) CompletedTasks() []*Task {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byStatus(StatusCompleted)
}

// Waves groups every task into execution layers: a task lands in the
// first wave after the one holding the last of its dependencies.
// Tasks that can never be placed, because their dependencies form a
// cycle or name no known task, are returned as an error.
func (p *Planner) Waves() ([][]*Task, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.waves()
}

func (p *Planner) waves() ([][]*Task, error) {
	placed := make(map[string]bool, len(p.tasks))
	remaining := p.inOrder()
	var out [][]*Task
	for len(remaining) > 0 {
		var wave, rest []*Task
		for _, t := range remaining {
			ready := true
			for _, dep := range t.Dependencies {
				if !placed[dep] {
					ready = false
					break
				}
			}
			if ready {
				wave = append(wave, t)
			} else {
				rest = append(rest, t)
			}
		}
		if len(wave) == 0 {
			ids := make([]string, 0, len(rest))
			for _, t := range rest {
				ids = append(ids, t.ID)
			}
			return out, fmt.Errorf("unschedulable tasks (dependency cycle or unknown dependency): %s", strings.Join(ids, ", "))
		}
		for _, t := range wave {
			placed[t.ID] = true
		}
		out = append(out, wave)
		remaining = rest
	}
	return out, nil
}

// Timeline summarizes the project's state with a serial completion
// estimate and a critical-path estimate over the dependency waves.
type Timeline struct {
	ProjectName          string    `json:"project_name"`
	StartDate            time.Time `json:"start_date"`
	TotalTasks           int       `json:"total_tasks"`
	CompletedTasks       int       `json:"completed_tasks"`
	InProgressTasks      int       `json:"in_progress_tasks"`
	PendingTasks         int       `json:"pending_tasks"`
	BlockedTasks         int       `json:"blocked_tasks"`
	TotalEstimatedHours  float64   `json:"total_estimated_hours"`
	TotalActualHours     float64   `json:"total_actual_hours"`
	CriticalPathHours    float64   `json:"critical_path_hours"`
	DependencyIssue      string    `json:"dependency_issue,omitempty"`
	EarliestCompletion   time.Time `json:"earliest_completion_date"`
	CompletionPercentage float64   `json:"completion_percentage"`
}

// Timeline computes the current project summary. The completion date
// assumes serial execution; CriticalPathHours assumes each dependency
// wave runs fully in parallel. When the dependency graph is broken,
// the critical path falls back to the serial total and DependencyIssue
// says why.
func (p *Planner) Timeline() Timeline {
	p.mu.RLock()
	defer p.mu.RUnlock()

	tl := Timeline{
		ProjectName: p.ProjectName,
		StartDate:   p.StartDate,
		TotalTasks:  len(p.tasks),
	}
	var estimated, actual float64
	for _, t := range p.inOrder() {
		estimated += t.EstimatedHours
		actual += t.ActualHours
		switch t.Status {
		case StatusCompleted:
			tl.CompletedTasks++
		case StatusInProgress:
			tl.InProgressTasks++
		case StatusPending:
			tl.PendingTasks++
		case StatusBlocked:
			tl.BlockedTasks++
		}
	}
	tl.TotalEstimatedHours = math.Round(estimated*100) / 100
	tl.TotalActualHours = math.Round(actual*100) / 100
	tl.EarliestCompletion = p.StartDate.Add(time.Duration(estimated * float64(time.Hour)))
	if len(p.tasks) > 0 {
		tl.CompletionPercentage = math.Round(float64(tl.CompletedTasks)/float64(len(p.tasks))*1000) / 10
	}

	waves, err := p.waves()
	if err != nil {
		tl.CriticalPathHours = tl.TotalEstimatedHours
		tl.DependencyIssue = err.Error()
		return tl
	}
	var critical float64
	for _, wave := range waves {
		longest := 0.0
		for _, t := range wave {
			if t.EstimatedHours > longest {
				longest = t.EstimatedHours
			}
		}
		critical += longest
	}
	tl.CriticalPathHours = math.Round(critical*100) / 100
	return tl
}

// Visualize renders the plan as a text block for the terminal.
func (p *Planner) Visualize() string {
	tl := p.Timeline()

	var b strings.Builder
	fmt.Fprintf(&b, "Project plan - %s\n", tl.ProjectName)
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	fmt.Fprintf(&b, "Overview:\n")
	fmt.Fprintf(&b, "  start date:       %s\n", tl.StartDate.Format("2006-01-02"))
	fmt.Fprintf(&b, "  estimated finish: %s\n", tl.EarliestCompletion.Format("2006-01-02"))
	fmt.Fprintf(&b, "  total tasks:      %d\n", tl.TotalTasks)
	fmt.Fprintf(&b, "  progress:         %.1f%%\n\n", tl.CompletionPercentage)

	fmt.Fprintf(&b, "Status breakdown:\n")
	fmt.Fprintf(&b, "  completed:   %d\n", tl.CompletedTasks)
	fmt.Fprintf(&b, "  in progress: %d\n", tl.InProgressTasks)
	fmt.Fprintf(&b, "  pending:     %d\n", tl.PendingTasks)
	fmt.Fprintf(&b, "  blocked:     %d\n\n", tl.BlockedTasks)

	fmt.Fprintf(&b, "Hours: %.2f estimated, %.2f actual\n\n", tl.TotalEstimatedHours, tl.TotalActualHours)

	if waves, err := p.Waves(); err != nil {
		fmt.Fprintf(&b, "Dependency problem: %v\n\n", err)
	} else if len(waves) > 1 {
		b.WriteString("Execution waves:\n")
		for i, wave := range waves {
			titles := make([]string, 0, len(wave))
			for _, t := range wave {
				titles = append(titles, t.Title)
			}
			fmt.Fprintf(&b, "  %d. %s\n", i+1, strings.Join(titles, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("Ready to start:\n")
	ready := p.ReadyTasks()
	if len(ready) == 0 {
		b.WriteString("  none\n")
	}
	for i, t := range ready {
		if i == 5 {
			break
		}
		fmt.Fprintf(&b, "  %d. [P%d] %s (%.1fh)\n", i+1, t.Priority, t.Title, t.EstimatedHours)
	}

	if blocked := p.BlockedTasks(); len(blocked) > 0 {
		b.WriteString("\nBlocked:\n")
		for i, t := range blocked {
			if i == 3 {
				break
			}
			reason := t.Metadata["blocking_reason"]
			if reason == "" {
				reason = "unknown"
			}
			fmt.Fprintf(&b, "  - %s (%s)\n", t.Title, reason)
		}
	}
	return b.String()
}
