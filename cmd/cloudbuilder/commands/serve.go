package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/cloudbuilder/internal/app"
)

func (c *CLI) newWorkerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run a worker node that builds jobs for one target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			return c.app.ServeWorker(cmd.Context(), app.ServeOptions{ConfigPath: path})
		},
	}
	addConfigFlag(cmd)
	return cmd
}

func (c *CLI) newOrchestratorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orchestrator",
		Short: "Run the orchestrator node that chains builds across workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			return c.app.ServeOrchestrator(cmd.Context(), app.ServeOptions{ConfigPath: path})
		},
	}
	addConfigFlag(cmd)
	return cmd
}

func addConfigFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("config", "c", "", "Path to the configuration file (default cloudbuilder.yaml)")
}
