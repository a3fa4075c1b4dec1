package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/nidhogg/pipboy/internal/agent"
	"github.com/nidhogg/pipboy/internal/contextmgr"
	"github.com/nidhogg/pipboy/internal/orchestrator"
	"github.com/nidhogg/pipboy/internal/provider"
	"github.com/nidhogg/pipboy/internal/task"
	"github.com/nidhogg/pipboy/internal/tool"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	engine         *agent.Engine
	history        *contextmgr.Manager
	tools          *tool.Registry
	router         *provider.Router
	planner        *task.Planner
	pipeline       *orchestrator.Pipeline
	plannerAgentID string
	logger         *zap.Logger
}

// NewHandler creates a new API handler. The plannerAgentID names the
// agent used for /api/plan requests.
func NewHandler(
	engine *agent.Engine,
	history *contextmgr.Manager,
	tools *tool.Registry,
	router *provider.Router,
	planner *task.Planner,
	pipeline *orchestrator.Pipeline,
	plannerAgentID string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		engine:         engine,
		history:        history,
		tools:          tools,
		router:         router,
		planner:        planner,
		pipeline:       pipeline,
		plannerAgentID: plannerAgentID,
		logger:         logger,
	}
}

// Router builds the chi router with all routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.healthCheck)

		// Agent routes
		r.Get("/agents", h.listAgents)
		r.Post("/agents", h.createAgent)
		r.Get("/agents/{id}", h.getAgent)
		r.Post("/agents/{id}/chat", h.chatWithAgent)

		// Conversation context routes
		r.Post("/context/messages", h.appendMessage)
		r.Get("/context/monitor", h.monitorContext)
		r.Post("/context/compact", h.compactContext)
		r.Get("/context/stats", h.contextStats)
		r.Get("/context/recent", h.recentMessages)
		r.Post("/context/clear", h.clearContext)

		// Tool routes
		r.Get("/tools", h.listTools)

		// Provider routes
		r.Get("/providers", h.listProviders)

		// Task planner routes
		r.Get("/tasks", h.listTasks)
		r.Post("/tasks", h.createTask)
		r.Get("/tasks/ready", h.readyTasks)
		r.Get("/tasks/{id}", h.getTask)
		r.Post("/tasks/{id}/start", h.startTask)
		r.Post("/tasks/{id}/complete", h.completeTask)
		r.Post("/tasks/{id}/block", h.blockTask)
		r.Post("/tasks/{id}/fail", h.failTask)
		r.Post("/tasks/{id}/unblock", h.unblockTask)
		r.Get("/timeline", h.timeline)
		r.Get("/visualize", h.visualize)
		r.Post("/plan", h.planGoal)

		// Subagent pipeline routes
		r.Post("/pipeline", h.runPipeline)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "pipboy"})
}

// ---------------------------------------------------------------------------
// Agents
// ---------------------------------------------------------------------------

func (h *Handler) listAgents(w http.ResponseWriter, r *http.Request) {
	agents := h.engine.List()
	writeJSON(w, http.StatusOK, agents)
}

func (h *Handler) createAgent(w http.ResponseWriter, r *http.Request) {
	var a agent.Agent
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if a.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}
	h.engine.Register(&a)
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) getAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, ok := h.engine.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "agent not found"})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *Handler) chatWithAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
		return
	}

	result, err := h.engine.Chat(r.Context(), id, req.Message)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, agent.ErrAgentNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ---------------------------------------------------------------------------
// Conversation context
// ---------------------------------------------------------------------------

type appendRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (h *Handler) appendMessage(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	msg, err := h.history.Append(contextmgr.Role(req.Role), req.Content)
	if err != nil {
		var roleErr *contextmgr.InvalidRoleError
		if errors.As(err, &roleErr) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *Handler) monitorContext(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.history.Monitor())
}

func (h *Handler) compactContext(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.history.Compact())
}

func (h *Handler) contextStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.history.Stats())
}

func (h *Handler) recentMessages(w http.ResponseWriter, r *http.Request) {
	n := 5
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be an integer"})
			return
		}
		n = parsed
	}
	msgs := h.history.Recent(n)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(msgs),
		"messages": msgs,
	})
}

func (h *Handler) clearContext(w http.ResponseWriter, r *http.Request) {
	h.history.Clear()
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// ---------------------------------------------------------------------------
// Tools and providers
// ---------------------------------------------------------------------------

func (h *Handler) listTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tools.Definitions())
}

type providerInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Default bool   `json:"default"`
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	defaultID := h.router.Default()
	providers := h.router.List()
	infos := make([]providerInfo, 0, len(providers))
	for _, p := range providers {
		infos = append(infos, providerInfo{
			ID:      p.ID(),
			Name:    p.Name(),
			Default: p.ID() == defaultID,
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

// ---------------------------------------------------------------------------
// Task planner
// ---------------------------------------------------------------------------

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.planner.All())
}

type taskCreateRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       int      `json:"priority"`
	EstimatedHours float64  `json:"estimated_hours"`
	Dependencies   []string `json:"dependencies,omitempty"`
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	var req taskCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	t := task.NewTask("", req.Title, req.Description)
	if req.Priority != 0 {
		t.Priority = req.Priority
	}
	t.EstimatedHours = req.EstimatedHours
	t.Dependencies = req.Dependencies
	h.planner.Add(t)
	writeJSON(w, http.StatusCreated, t)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, ok := h.planner.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) readyTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.planner.ReadyTasks())
}

// transitionTask runs one state change on a task and writes the result.
func (h *Handler) transitionTask(w http.ResponseWriter, r *http.Request, fn func(*task.Task) error) {
	id := chi.URLParam(r, "id")
	t, ok := h.planner.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "task not found"})
		return
	}
	if err := fn(t); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) startTask(w http.ResponseWriter, r *http.Request) {
	h.transitionTask(w, r, func(t *task.Task) error {
		completed := make([]string, 0)
		for _, c := range h.planner.CompletedTasks() {
			completed = append(completed, c.ID)
		}
		if !t.CanStart(completed) {
			return errors.New("task has incomplete dependencies")
		}
		return t.Start()
	})
}

func (h *Handler) completeTask(w http.ResponseWriter, r *http.Request) {
	h.transitionTask(w, r, (*task.Task).Complete)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) blockTask(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	h.transitionTask(w, r, func(t *task.Task) error {
		return t.Block(req.Reason)
	})
}

func (h *Handler) failTask(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	h.transitionTask(w, r, func(t *task.Task) error {
		return t.Fail(req.Reason)
	})
}

func (h *Handler) unblockTask(w http.ResponseWriter, r *http.Request) {
	h.transitionTask(w, r, (*task.Task).Unblock)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.planner.Timeline())
}

func (h *Handler) visualize(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"text": h.planner.Visualize()})
}

type planRequest struct {
	Goal string `json:"goal"`
}

func (h *Handler) planGoal(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Goal == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "goal is required"})
		return
	}

	pa := task.NewPlanningAgent(h.engine, h.plannerAgentID, h.logger)
	plan, err := pa.Plan(r.Context(), req.Goal)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	for _, t := range plan.Tasks {
		h.planner.Add(t)
	}
	writeJSON(w, http.StatusCreated, plan)
}

// ---------------------------------------------------------------------------
// Pipeline
// ---------------------------------------------------------------------------

type pipelineRequest struct {
	Goal string `json:"goal"`
}

func (h *Handler) runPipeline(w http.ResponseWriter, r *http.Request) {
	if h.pipeline == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "pipeline not initialized"})
		return
	}
	var req pipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if req.Goal == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "goal is required"})
		return
	}

	result, err := h.pipeline.Run(r.Context(), req.Goal)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
