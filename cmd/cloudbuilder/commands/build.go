package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/cloudbuilder/internal/app"
)

const defaultServer = "http://127.0.0.1:8000"

func (c *CLI) newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a package on one or more targets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			server, _ := flags.GetString("server")
			targets, _ := flags.GetStringSlice("target")
			persistent, _ := flags.GetBool("persistent")
			fragment, _ := flags.GetString("fragment")
			files, _ := flags.GetStringArray("file")
			out, _ := flags.GetString("out")
			name, _ := flags.GetString("name")
			brand, _ := flags.GetString("brand")
			category, _ := flags.GetString("category")

			return c.app.Build(cmd.Context(), app.BuildOptions{
				Server:       server,
				Targets:      targets,
				Persistent:   persistent,
				FragmentPath: fragment,
				FilePaths:    files,
				Out:          out,
				Name:         name,
				Brand:        brand,
				Category:     category,
			})
		},
	}

	cmd.Flags().String("server", defaultServer, "Base URL of the orchestrator")
	cmd.Flags().StringSliceP("target", "t", nil, "Target to build on (repeatable)")
	cmd.Flags().BoolP("persistent", "p", false, "Store the artifact of every target on the orchestrator")
	cmd.Flags().String("fragment", "", "Buildroot package fragment (.mk)")
	cmd.Flags().StringArrayP("file", "f", nil, "Source file to submit (repeatable)")
	cmd.Flags().StringP("out", "o", "", "Where to write the archive (default <target>.tar.gz)")
	cmd.Flags().String("name", "", "Plugin name recorded for persistent builds")
	cmd.Flags().String("brand", "", "Plugin brand recorded for persistent builds")
	cmd.Flags().String("category", "", "Plugin category recorded for persistent builds")
	_ = cmd.MarkFlagRequired("fragment")
	return cmd
}
