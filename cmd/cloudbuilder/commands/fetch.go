package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/cloudbuilder/internal/app"
)

func (c *CLI) newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <session> <target>",
		Short: "Download the stored archive of a persistent build",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			server, _ := cmd.Flags().GetString("server")
			out, _ := cmd.Flags().GetString("out")
			extract, _ := cmd.Flags().GetString("extract")

			return c.app.Fetch(cmd.Context(), app.FetchOptions{
				Server:  server,
				Session: args[0],
				Target:  args[1],
				Out:     out,
				Extract: extract,
			})
		},
	}

	cmd.Flags().String("server", defaultServer, "Base URL of the orchestrator")
	cmd.Flags().StringP("out", "o", "", "Where to write the archive (default <target>.tar.gz)")
	cmd.Flags().StringP("extract", "x", "", "Unpack the archive into this directory instead")
	cmd.MarkFlagsMutuallyExclusive("out", "extract")
	return cmd
}
