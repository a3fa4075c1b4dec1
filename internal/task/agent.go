package task

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"go.uber.org/zap"
)

// planPrompt instructs the model to emit nothing but the plan JSON.
var planPrompt = heredoc.Doc(`
	你是一个项目任务规划助手。请把用户的目标拆解成可执行的任务列表。
	请严格只输出一个 JSON 对象，不要任何解释或额外文本。
	JSON 结构示例:
	{
	  "goal_summary": "你理解到的目标摘要",
	  "tasks": [
	    {
	      "id": "task_1",
	      "title": "步骤名称",
	      "description": "一句话说明",
	      "priority": 1,
	      "estimated_hours": 2.0
	    }
	  ],
	  "execution_notes": "用一两句话解释推荐的执行顺序"
	}
`)

// Chatter is the one-shot LLM call the planning agent depends on.
type Chatter interface {
	ChatSimple(ctx context.Context, agentID, userMsg, systemPrompt string) (string, error)
}

// Plan is the parsed output of a planning run.
type Plan struct {
	GoalSummary    string  `json:"goal_summary"`
	Tasks          []*Task `json:"tasks"`
	ExecutionNotes string  `json:"execution_notes"`
}

type planDoc struct {
	GoalSummary    string     `json:"goal_summary"`
	Tasks          []planTask `json:"tasks"`
	ExecutionNotes string     `json:"execution_notes"`
}

type planTask struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       *int     `json:"priority"`
	EstimatedHours *float64 `json:"estimated_hours"`
}

// PlanningAgent turns a natural language goal into tasks via the LLM.
type PlanningAgent struct {
	chatter Chatter
	agentID string
	logger  *zap.Logger
}

// NewPlanningAgent creates a planning agent bound to one engine agent.
func NewPlanningAgent(chatter Chatter, agentID string, logger *zap.Logger) *PlanningAgent {
	return &PlanningAgent{chatter: chatter, agentID: agentID, logger: logger}
}

// Plan asks the model to decompose the goal and parses the result.
// Missing or malformed task fields fall back to sensible defaults;
// a reply without a JSON object is an error.
func (a *PlanningAgent) Plan(ctx context.Context, goal string) (*Plan, error) {
	content, err := a.chatter.ChatSimple(ctx, a.agentID, goal, planPrompt)
	if err != nil {
		return nil, fmt.Errorf("plan goal: %w", err)
	}

	raw, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	var doc planDoc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parse plan JSON: %w", err)
	}

	plan := &Plan{GoalSummary: doc.GoalSummary, ExecutionNotes: doc.ExecutionNotes}
	for i, pt := range doc.Tasks {
		id := pt.ID
		if id == "" {
			id = fmt.Sprintf("llm_task_%d", i+1)
		}
		title := strings.TrimSpace(pt.Title)
		if title == "" {
			title = fmt.Sprintf("步骤%d", i+1)
		}
		desc := strings.TrimSpace(pt.Description)
		if desc == "" {
			desc = title
		}

		t := NewTask(id, title, desc)
		if pt.Priority != nil {
			p := *pt.Priority
			if p < 1 {
				p = 1
			}
			if p > 5 {
				p = 5
			}
			t.Priority = p
		} else if p := 5 - i; p > 1 {
			t.Priority = p
		}
		if pt.EstimatedHours != nil {
			t.EstimatedHours = *pt.EstimatedHours
		} else {
			t.EstimatedHours = 2.0
		}
		plan.Tasks = append(plan.Tasks, t)
	}

	a.logger.Info("plan generated",
		zap.String("goal_summary", plan.GoalSummary),
		zap.Int("tasks", len(plan.Tasks)))
	return plan, nil
}

func extractJSON(s string) (string, error) {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object in model output")
	}
	return s[start : end+1], nil
}
