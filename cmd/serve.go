package cmd

import (
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/devbydaniel/a11yverify/internal/server"
)

func getServeCmd(root *rootCommand) *cobra.Command {
	var dir, addr string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve a static site directory",
		Long: `Serve a directory over HTTP until interrupted, so that the page can be
verified at http://localhost:8000/public/index.html. The run command never
starts this server itself.`,
		Example: `
  # in the project root, next to public/ and js/
  a11yverify serve &
  a11yverify run`[1:],
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			root.gs.logger.WithField("dir", abs).Debug("Serving directory")
			srv := server.New(afero.NewBasePathFs(root.gs.fs, abs), root.gs.logger)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}
	serveCmd.Flags().StringVar(&dir, "dir", ".", "directory to serve")
	serveCmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "address to listen on")
	return serveCmd
}
