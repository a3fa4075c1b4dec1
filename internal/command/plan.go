package command

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/nidhogg/pipboy/internal/task"
)

// RegisterPlanCommands registers /plan, /tasks, and /timeline. The
// defaultAgentID is the agent used for planning when the session has
// no current agent.
func RegisterPlanCommands(reg *Registry, planner *task.Planner, chatter task.Chatter, defaultAgentID string, logger *zap.Logger) {
	reg.Register(planCommand(planner, chatter, defaultAgentID, logger))
	reg.Register(tasksCommand(planner))
	reg.Register(timelineCommand(planner))
}

// ---------------------------------------------------------------------------
// /plan <goal>
// ---------------------------------------------------------------------------

func planCommand(planner *task.Planner, chatter task.Chatter, defaultAgentID string, logger *zap.Logger) *Command {
	return &Command{
		Name:        "plan",
		Description: "Break a goal into tasks with an LLM planner",
		Usage:       "/plan <goal>",
		Handler: func(ctx context.Context, args string, cc *Context) (*Result, error) {
			goal := strings.TrimSpace(args)
			if goal == "" {
				return &Result{Content: "Usage: /plan <goal>"}, nil
			}

			agentID := cc.AgentID
			if agentID == "" {
				agentID = defaultAgentID
			}

			pa := task.NewPlanningAgent(chatter, agentID, logger)
			plan, err := pa.Plan(ctx, goal)
			if err != nil {
				return &Result{Content: fmt.Sprintf("Planning failed: %v", err)}, nil
			}
			for _, t := range plan.Tasks {
				planner.Add(t)
			}

			var b strings.Builder
			fmt.Fprintf(&b, "Plan: %s\n", plan.GoalSummary)
			fmt.Fprintf(&b, "Added %d task(s):\n", len(plan.Tasks))
			for _, t := range plan.Tasks {
				fmt.Fprintf(&b, "  [P%d] %s (%.1fh)\n", t.Priority, t.Title, t.EstimatedHours)
			}
			if plan.ExecutionNotes != "" {
				fmt.Fprintf(&b, "Notes: %s\n", plan.ExecutionNotes)
			}
			return &Result{Content: b.String(), Data: plan}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /tasks
// ---------------------------------------------------------------------------

func tasksCommand(planner *task.Planner) *Command {
	return &Command{
		Name:        "tasks",
		Description: "Show the project task board",
		Usage:       "/tasks",
		Handler: func(_ context.Context, _ string, _ *Context) (*Result, error) {
			if len(planner.All()) == 0 {
				return &Result{Content: "No tasks yet. Use /plan <goal> to create some."}, nil
			}
			return &Result{Content: planner.Visualize()}, nil
		},
	}
}

// ---------------------------------------------------------------------------
// /timeline
// ---------------------------------------------------------------------------

func timelineCommand(planner *task.Planner) *Command {
	return &Command{
		Name:        "timeline",
		Description: "Show the project completion estimate",
		Usage:       "/timeline",
		Handler: func(_ context.Context, _ string, _ *Context) (*Result, error) {
			tl := planner.Timeline()
			if tl.TotalTasks == 0 {
				return &Result{Content: "No tasks yet. Use /plan <goal> to create some."}, nil
			}
			var b strings.Builder
			fmt.Fprintf(&b, "Timeline — %s\n", tl.ProjectName)
			fmt.Fprintf(&b, "  Tasks: %d total, %d completed (%.1f%%)\n",
				tl.TotalTasks, tl.CompletedTasks, tl.CompletionPercentage)
			fmt.Fprintf(&b, "  Hours: %.1f estimated, %.1f logged\n",
				tl.TotalEstimatedHours, tl.TotalActualHours)
			fmt.Fprintf(&b, "  Earliest completion: %s\n",
				tl.EarliestCompletion.Format("2006-01-02 15:04"))
			return &Result{Content: b.String(), Data: tl}, nil
		},
	}
}
