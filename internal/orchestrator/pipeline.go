package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nidhogg/pipboy/internal/agent"
)

const plannerPrompt = "你是项目规划子代理。负责把高层目标拆成 3-7 个小任务，按顺序列出。只输出任务列表，每行一个步骤。"

const implementerPrompt = "你是实现子代理。针对给定的单个任务，输出一个非常具体的执行方案，包含 3-5 步的操作清单。"

// Pipeline chains a planner agent and an implementer agent: the goal
// is decomposed into steps, then every step is expanded into a
// concrete execution plan in parallel.
type Pipeline struct {
	engine        *agent.Engine
	scheduler     *Scheduler
	plannerID     string
	implementerID string
	logger        *zap.Logger
}

// PipelineResult aggregates a full pipeline run.
type PipelineResult struct {
	Goal     string        `json:"goal"`
	Plan     string        `json:"plan"`
	Steps    []string      `json:"steps"`
	Details  []*JobResult  `json:"details"`
	Duration time.Duration `json:"duration"`
}

// NewPipeline wires the two pipeline stages to their agents.
func NewPipeline(engine *agent.Engine, scheduler *Scheduler, plannerID, implementerID string, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		engine:        engine,
		scheduler:     scheduler,
		plannerID:     plannerID,
		implementerID: implementerID,
		logger:        logger,
	}
}

// Run executes the full pipeline for a goal.
func (p *Pipeline) Run(ctx context.Context, goal string) (*PipelineResult, error) {
	start := time.Now()

	plan, err := p.engine.ChatSimple(ctx, p.plannerID, goal, plannerPrompt)
	if err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	steps := splitSteps(plan)
	if len(steps) == 0 {
		return nil, fmt.Errorf("planner returned no steps")
	}
	p.logger.Info("goal decomposed", zap.Int("steps", len(steps)))

	jobs := make([]*Job, len(steps))
	for i, step := range steps {
		jobs[i] = &Job{
			AgentID:      p.implementerID,
			Input:        step,
			SystemPrompt: implementerPrompt,
		}
	}

	var details []*JobResult
	for r := range p.scheduler.Dispatch(ctx, jobs) {
		details = append(details, r)
	}
	sort.Slice(details, func(i, j int) bool { return details[i].Seq < details[j].Seq })

	p.logger.Info("pipeline complete",
		zap.Int("steps", len(steps)),
		zap.Duration("took", time.Since(start)))

	return &PipelineResult{
		Goal:     goal,
		Plan:     plan,
		Steps:    steps,
		Details:  details,
		Duration: time.Since(start),
	}, nil
}

// splitSteps extracts the non-empty lines from the planner output.
func splitSteps(plan string) []string {
	var steps []string
	for _, line := range strings.Split(plan, "\n") {
		if s := strings.TrimSpace(line); s != "" {
			steps = append(steps, s)
		}
	}
	return steps
}
