package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/job-tracker/internal/agent"
	"github.com/jonathan/job-tracker/internal/agent/client"
	"github.com/jonathan/job-tracker/internal/agent/state"
	"github.com/spf13/cobra"
)

var (
	agentStateDir string
	agentAPIBase  string
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Start the tracking agent",
	Long: `Start the browser-side tracking agent as a native messaging host.
The agent speaks length-prefixed JSON over stdio, keeps per-tab tracking
state, detects apply interactions, and forwards them to the backend.`,
	RunE: runAgent,
}

func init() {
	agentCmd.Flags().StringVar(&agentStateDir, "state-dir", "", "Directory for the agent's local state (default $JOB_TRACKER_STATE_DIR or ~/.job-tracker)")
	agentCmd.Flags().StringVar(&agentAPIBase, "api", "", "Backend API base URL (default $JOB_TRACKER_API or http://localhost:5000)")
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, _ []string) error {
	stateDir := agentStateDir
	if stateDir == "" {
		stateDir = os.Getenv("JOB_TRACKER_STATE_DIR")
	}
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		stateDir = filepath.Join(home, ".job-tracker")
	}

	apiBase := agentAPIBase
	if apiBase == "" {
		apiBase = os.Getenv("JOB_TRACKER_API")
	}
	if apiBase == "" {
		apiBase = "http://localhost:5000"
	}

	st, err := state.Open(stateDir)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer st.Close()

	api := client.New(apiBase, st)

	a, err := agent.New(agent.Config{
		State: st,
		API:   api,
	})
	if err != nil {
		return fmt.Errorf("failed to create agent: %w", err)
	}
	defer a.Close()

	return a.Run(cmd.Context(), os.Stdin, os.Stdout)
}
