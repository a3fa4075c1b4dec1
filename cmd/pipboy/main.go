package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nidhogg/pipboy/internal/agent"
	"github.com/nidhogg/pipboy/internal/api"
	"github.com/nidhogg/pipboy/internal/config"
	"github.com/nidhogg/pipboy/internal/contextmgr"
	"github.com/nidhogg/pipboy/internal/orchestrator"
	"github.com/nidhogg/pipboy/internal/provider"
	"github.com/nidhogg/pipboy/internal/store"
	"github.com/nidhogg/pipboy/internal/task"
	"github.com/nidhogg/pipboy/internal/tool"
)

const assistantPrompt = "你是 Pip-Boy，一个可靠的助手。你可以调用工具来计算、查时间、查天气、发邮件、查询数据库，以及管理对话上下文。回答保持简洁。"

const plannerPrompt = "你是项目规划助手。负责把用户的目标拆解成可执行的任务。"

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting Pip-Boy...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/pipboy.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Initialize provider router
	router := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		switch pc.Type {
		case "openai":
			router.Register(provider.NewOpenAIProvider(provider.Config{
				ID: pc.ID, Type: pc.Type, Name: pc.Name,
				Endpoint: pc.Endpoint, APIKey: pc.APIKey,
			}, logger))
		case "anthropic":
			router.Register(provider.NewAnthropicProvider(provider.Config{
				ID: pc.ID, Type: pc.Type, Name: pc.Name,
				Endpoint: pc.Endpoint, APIKey: pc.APIKey,
			}, logger))
		case "mock":
			router.Register(provider.NewMockProvider(pc.ID))
		default:
			logger.Warn("unknown provider type", zap.String("id", pc.ID), zap.String("type", pc.Type))
		}
	}

	// Initialize SQLite demo database
	var st *store.Store
	dsn := cfg.Database.SQLite.DSN
	if dsn == "" {
		dsn = "pipboy.db"
	}
	st, err = store.Open(dsn, logger)
	if err != nil {
		logger.Warn("SQLite unavailable, running without the database tool", zap.Error(err))
		st = nil
	} else if cfg.Database.SQLite.Seed {
		if seedErr := st.Seed(context.Background()); seedErr != nil {
			logger.Warn("seeding demo data failed", zap.Error(seedErr))
		}
	}

	// Initialize conversation context
	history, err := contextmgr.New(cfg.Context, logger)
	if err != nil {
		logger.Fatal("invalid context config", zap.Error(err))
	}

	// Initialize tools
	tools := tool.NewRegistry()
	tool.RegisterBuiltins(tools, history, st)

	// Initialize agent engine
	engine := agent.NewEngine(router, tools, history, agent.Options{
		MaxHistory:    cfg.Chat.MaxHistory,
		RatePerMinute: cfg.Chat.RatePerMinute,
	}, logger)

	model := cfg.Chat.DefaultModel
	if model == "" {
		model = "gpt-4o-mini"
	}
	engine.Register(&agent.Agent{ID: "pipboy", Name: "Pip-Boy", SystemPrompt: assistantPrompt, Model: model})
	engine.Register(&agent.Agent{ID: "planner", Name: "Planner", SystemPrompt: plannerPrompt, Model: model})
	engine.Register(&agent.Agent{ID: "implementer", Name: "Implementer", Model: model})

	// Initialize task planner and subagent pipeline
	planner := task.NewPlanner("pipboy")
	scheduler := orchestrator.NewScheduler(engine, cfg.Workers, logger)
	pipeline := orchestrator.NewPipeline(engine, scheduler, "planner", "implementer", logger)

	// Build HTTP handler
	handler := api.NewHandler(engine, history, tools, router, planner, pipeline, "planner", logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Pip-Boy listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Pip-Boy...")
	srv.Shutdown(context.Background())
	if st != nil {
		st.Close()
	}
}
