package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/AnEntrypoint/sandboxbox-sub004/internal/app"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/config"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/errors"
	"github.com/AnEntrypoint/sandboxbox-sub004/internal/sandbox"
)

var agentGroup = &cobra.Group{ID: "agents", Title: "Agents:"}

func init() {
	rootCmd.AddGroup(agentGroup)
	addAgentCommands(config.Default())
}

// addAgentCommands registers one subcommand per agent in cfg, skipping names
// that are already taken.
func addAgentCommands(cfg *config.Config) {
	names := cfg.AgentNames()
	sort.Strings(names)
	for _, name := range names {
		if hasCommand(name) {
			continue
		}
		agent, _ := cfg.Agent(name)
		rootCmd.AddCommand(newAgentCmd(name, agent))
	}
}

func hasCommand(name string) bool {
	for _, c := range rootCmd.Commands() {
		if c.Name() == name || c.HasAlias(name) {
			return true
		}
	}
	return false
}

func newAgentCmd(name string, agent config.AgentConfig) *cobra.Command {
	short := agent.Description
	if short == "" {
		short = fmt.Sprintf("Run %s in a sandbox", name)
	}
	c := &cobra.Command{
		Use:     name + " <projectDir> [args...]",
		Short:   short,
		GroupID: agentGroup.ID,
		Args:    projectArgs(1, -1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd, name, args)
		},
	}
	c.Flags().SetInterspersed(false)
	return c
}

// runAgent resolves the agent again from the loaded config, which may come
// from --config.
func runAgent(cmd *cobra.Command, name string, args []string) error {
	cfg, err := app.Default.LoadConfig()
	if err != nil {
		return err
	}
	agent, ok := cfg.Agent(name)
	if !ok {
		return errors.ValidationErrorf("agent %q is not configured", name)
	}
	command := append(append([]string{}, agent.Command...), args[1:]...)
	return runInSandbox(cmd, args[0], command, sandbox.TaskInteractive)
}
