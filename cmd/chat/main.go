package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/nidhogg/pipboy/internal/agent"
	"github.com/nidhogg/pipboy/internal/command"
	"github.com/nidhogg/pipboy/internal/config"
	"github.com/nidhogg/pipboy/internal/contextmgr"
	"github.com/nidhogg/pipboy/internal/provider"
	"github.com/nidhogg/pipboy/internal/store"
	"github.com/nidhogg/pipboy/internal/task"
	"github.com/nidhogg/pipboy/internal/tool"
)

const systemPrompt = "你是 Pip-Boy，一个可靠的终端助手。你可以调用工具来计算、查时间、查天气、发邮件、查询数据库，以及管理对话上下文。回答保持简洁。"

func main() {
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	_ = godotenv.Load()

	logger := zap.NewNop()
	if *verbose {
		logger, _ = zap.NewDevelopment()
	}
	defer logger.Sync()

	cfg, err := config.FromEnv()
	if err != nil {
		printError("Bad configuration: %v", err)
		os.Exit(1)
	}

	// Provider: real OpenAI when a key is present, offline mock otherwise.
	router := provider.NewRouter(logger)
	if cfg.APIKey != "" {
		router.Register(provider.NewOpenAIProvider(provider.Config{
			ID:       "openai",
			Type:     "openai",
			Name:     "OpenAI",
			Endpoint: cfg.BaseURL,
			APIKey:   cfg.APIKey,
		}, logger))
	} else {
		fmt.Println("\033[33mOPENAI_API_KEY not set — running with the offline mock provider.\033[0m")
		router.Register(provider.NewMockProvider("mock"))
	}

	// SQLite demo database for the execute_sql tool.
	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		printError("SQLite unavailable, the database tool is disabled: %v", err)
		st = nil
	} else {
		defer st.Close()
		if err := st.Seed(context.Background()); err != nil {
			printError("Seeding demo data failed: %v", err)
		}
	}

	history, err := contextmgr.New(cfg.ContextConfig(), logger)
	if err != nil {
		printError("Bad context configuration: %v", err)
		os.Exit(1)
	}

	tools := tool.NewRegistry()
	tool.RegisterBuiltins(tools, history, st)

	engine := agent.NewEngine(router, tools, history, agent.Options{
		MaxHistory:    cfg.MaxHistory,
		RatePerMinute: cfg.RatePerMinute,
	}, logger)
	engine.Register(&agent.Agent{ID: "pipboy", Name: "Pip-Boy", SystemPrompt: systemPrompt, Model: cfg.Model})

	currentAgent := "pipboy"

	planner := task.NewPlanner("pipboy-session")
	cmdReg := command.NewRegistry()
	command.RegisterBuiltins(cmdReg, engine, tools)
	command.RegisterContextCommands(cmdReg, history)
	command.RegisterProviderCommands(cmdReg, router, engine)
	command.RegisterPlanCommands(cmdReg, planner, engine, "pipboy", logger)
	command.RegisterCreateCommands(cmdReg, engine, cfg.Model)
	cmdReg.Register(&command.Command{
		Name:        "use",
		Description: "Switch the current agent",
		Usage:       "/use <agent_id>",
		Handler: func(_ context.Context, args string, _ *command.Context) (*command.Result, error) {
			id := strings.TrimSpace(args)
			if id == "" {
				return &command.Result{Content: "Usage: /use <agent_id>"}, nil
			}
			if _, ok := engine.Get(id); !ok {
				return &command.Result{Content: fmt.Sprintf("Unknown agent %q. Use /agents to list them.", id)}, nil
			}
			currentAgent = id
			return &command.Result{Content: fmt.Sprintf("Now talking to %s.", id)}, nil
		},
	})

	fmt.Println("Pip-Boy Terminal")
	fmt.Printf("Model: %s | Context window: %d tokens\n", cfg.Model, cfg.MaxTokens)
	fmt.Println("Type /help for commands. 'exit' or 'quit' to leave.")
	fmt.Println("---")

	ctx := context.Background()
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\n> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		if command.IsCommand(input) {
			res, err := cmdReg.Dispatch(ctx, input, &command.Context{AgentID: currentAgent})
			if err != nil {
				printError("Command failed: %v", err)
				continue
			}
			fmt.Println(strings.TrimRight(res.Content, "\n"))
			continue
		}

		result, err := engine.Chat(ctx, currentAgent, input)
		if err != nil {
			printError("Chat failed: %v", err)
			continue
		}
		fmt.Printf("\033[36m[%s]\033[0m %s\n", currentAgent, result.Content)
		if result.ToolCalls > 0 {
			fmt.Printf("\033[2m(%d tool call(s) across %d round(s))\033[0m\n", result.ToolCalls, result.Rounds)
		}
		if history.ShouldCompress() {
			fmt.Println("\033[33mContext window is filling up. Run /compact to trim old replies.\033[0m")
		}
	}
	fmt.Println("Bye!")
}

func printError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\033[31m"+format+"\033[0m\n", args...)
}
