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

package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kadirpekel/anvil/pkg/agent"
	"github.com/kadirpekel/anvil/pkg/config"
	"github.com/kadirpekel/anvil/pkg/llms"
	"github.com/kadirpekel/anvil/pkg/tools"
	"github.com/kadirpekel/anvil/pkg/utils"
)

const replHelp = `Commands:
  :help    show this help
  :tools   list registered tools
  :state   dump the current agent state
  :ls      list workspace files
  :quit    exit

Anything else is sent to the agent as a goal.`

// runREPL drives the interactive session. Agent state persists across
// goals within one REPL run; each goal gets a fresh transcript.
func runREPL(ctx context.Context, cfg *config.Config) error {
	provider, err := llms.NewLLMRegistry().CreateLLMFromConfig("main", &cfg.LLM)
	if err != nil {
		return err
	}
	defer provider.Close()

	catalog, err := tools.NewToolRegistryWithConfig(cfg.Workspace.Root, cfg.Tools)
	if err != nil {
		return err
	}

	summary := utils.SummarizeWorkspace(cfg.Workspace.Root, cfg.Workspace.SummaryMaxFileSize)
	state := agent.NewState(summary, cfg.Agent.RecentFilesCap)

	sessionOpts := []agent.SessionOption{agent.WithStepCallback(printStep)}
	if counter, err := utils.NewTokenCounter(cfg.LLM.Model); err == nil {
		sessionOpts = append(sessionOpts, agent.WithTokenCounter(counter))
	} else {
		slog.Debug("Token counter unavailable, using byte-length estimate", "error", err)
	}

	fmt.Printf("Anvil interactive session\n")
	fmt.Printf("workspace: %s\n", cfg.Workspace.Root)
	fmt.Printf("model:     %s (%s)\n", cfg.LLM.Model, cfg.LLM.Type)
	fmt.Printf("type :help for commands\n\n")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		if ctx.Err() != nil {
			return nil
		}

		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, ":") {
			if quit := handleCommand(line, cfg, catalog, state); quit {
				return nil
			}
			continue
		}

		session, err := agent.NewSession(provider, catalog, state, &cfg.Agent, sessionOpts...)
		if err != nil {
			return err
		}

		result, err := session.Run(ctx, line)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("error: %v\n", err)
			continue
		}

		switch result.Phase {
		case agent.PhaseDone:
			fmt.Printf("\n%s\n\n", result.FinalMessage)
		case agent.PhaseStoppedBudget:
			fmt.Printf("\nstep budget exhausted after %d steps\n\n", result.Steps)
		}
	}
}

// handleCommand runs one ":" introspection command. Returns true on :quit.
func handleCommand(line string, cfg *config.Config, catalog *tools.ToolRegistry, state *agent.State) bool {
	switch line {
	case ":help":
		fmt.Println(replHelp)

	case ":tools":
		for _, info := range catalog.ListTools() {
			fmt.Printf("  %-22s %s\n", info.Name, info.Description)
		}

	case ":state":
		fmt.Println(state.ContextString())

	case ":ls":
		entries, err := os.ReadDir(cfg.Workspace.Root)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			break
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() {
				name += "/"
			}
			fmt.Printf("  %s\n", name)
		}

	case ":quit", ":q", ":exit":
		return true

	default:
		fmt.Printf("unknown command %q, type :help\n", line)
	}

	return false
}
