// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command anvil is the CLI for the Anvil coding agent.
//
// Usage:
//
//	anvil run "write a hello world script and run it"
//	anvil chat --workspace ./project
//	anvil tools
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/kadirpekel/anvil/pkg/agent"
	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/llms"
	"github.com/kadirpekel/anvil/pkg/logger"
	"github.com/kadirpekel/anvil/pkg/tools"
	"github.com/kadirpekel/anvil/pkg/utils"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Run     RunCmd     `cmd:"" help:"Run the agent on a single goal."`
	Chat    ChatCmd    `cmd:"" help:"Start an interactive session."`
	Tools   ToolsCmd   `cmd:"" help:"List registered tools."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	Workspace string `short:"w" help:"Workspace directory (overrides config)." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error)." default:"info"`
	LogFile   string `help:"Log file path (empty = stderr)."`
	LogFormat string `help:"Log format (simple or verbose)." default:"simple"`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run(cli *CLI) error {
	version := "dev"
	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "(devel)" && info.Main.Version != "" {
			version = info.Main.Version
		}
	}
	fmt.Printf("Anvil version %s\n", version)
	return nil
}

// RunCmd runs the agent on one goal and exits.
type RunCmd struct {
	Goal string `arg:"" help:"Goal for the agent to pursue."`
}

func (c *RunCmd) Run(cli *CLI) error {
	ctx := signalContext()

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	session, err := buildSession(cfg)
	if err != nil {
		return err
	}

	result, err := session.Run(ctx, c.Goal)
	if err != nil {
		return err
	}

	switch result.Phase {
	case agent.PhaseDone:
		fmt.Printf("\n%s\n", result.FinalMessage)
		return nil
	case agent.PhaseStoppedBudget:
		return fmt.Errorf("step budget exhausted after %d steps without a final answer", result.Steps)
	default:
		return fmt.Errorf("session ended in unexpected phase %s", result.Phase)
	}
}

// ChatCmd starts the interactive REPL.
type ChatCmd struct{}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx := signalContext()

	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	return runREPL(ctx, cfg)
}

// ToolsCmd lists the registered tools with their descriptions.
type ToolsCmd struct{}

func (c *ToolsCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli)
	if err != nil {
		return err
	}

	catalog, err := tools.NewToolRegistryWithConfig(cfg.Workspace.Root, cfg.Tools)
	if err != nil {
		return err
	}

	for _, info := range catalog.ListTools() {
		fmt.Printf("%-22s %s\n", info.Name, info.Description)
	}
	return nil
}

func loadConfig(cli *CLI) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		slog.Warn("Failed to load .env file", "error", err)
	}

	var cfg *config.Config
	if cli.Config != "" {
		loaded, err := config.LoadFromFile(cli.Config)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.DefaultConfig()
	}

	if cli.Workspace != "" {
		cfg.Workspace.Root = cli.Workspace
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func buildSession(cfg *config.Config, opts ...agent.SessionOption) (*agent.Session, error) {
	provider, err := llms.NewLLMRegistry().CreateLLMFromConfig("main", &cfg.LLM)
	if err != nil {
		return nil, err
	}

	catalog, err := tools.NewToolRegistryWithConfig(cfg.Workspace.Root, cfg.Tools)
	if err != nil {
		return nil, err
	}

	summary := utils.SummarizeWorkspace(cfg.Workspace.Root, cfg.Workspace.SummaryMaxFileSize)
	state := agent.NewState(summary, cfg.Agent.RecentFilesCap)

	sessionOpts := []agent.SessionOption{agent.WithStepCallback(printStep)}
	if counter, err := utils.NewTokenCounter(cfg.LLM.Model); err == nil {
		sessionOpts = append(sessionOpts, agent.WithTokenCounter(counter))
	} else {
		slog.Debug("Token counter unavailable, using byte-length estimate", "error", err)
	}
	sessionOpts = append(sessionOpts, opts...)

	return agent.NewSession(provider, catalog, state, &cfg.Agent, sessionOpts...)
}

func printStep(e agent.StepEvent) {
	if e.Step != nil && e.Step.Thought != "" {
		fmt.Printf("\n[%d] thought: %s\n", e.Index+1, e.Step.Thought)
	}
	if e.Step != nil && e.Step.Action != nil {
		fmt.Printf("[%d] action:  %s\n", e.Index+1, e.Step.Action.Tool)
	}

	if e.Result.ToolName == "final" {
		return
	}
	if e.Result.Success {
		fmt.Printf("[%d] outcome: %s\n", e.Index+1, utils.Clip(e.Result.Content, 500))
	} else {
		fmt.Printf("[%d] FAILED:  %s\n", e.Index+1, e.Result.Error)
	}
}

func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		slog.Info("Shutting down...")
		cancel()
	}()

	return ctx
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("anvil"),
		kong.Description("Anvil - a sandboxed step-by-step coding agent"),
		kong.UsageOnError(),
	)

	level, err := logger.ParseLevel(cli.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}

	output := os.Stderr
	if cli.LogFile != "" {
		file, cleanup, err := logger.OpenLogFile(cli.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer cleanup()
		output = file
	}
	logger.Init(level, output, cli.LogFormat)

	ctx.FatalIfErrorf(ctx.Run(&cli))
}
