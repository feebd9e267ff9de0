package cmd

import (
	"github.com/spf13/cobra"

	"github.com/devbydaniel/a11yverify/internal/errext"
	"github.com/devbydaniel/a11yverify/internal/errext/exitcodes"
	"github.com/devbydaniel/a11yverify/internal/verify"
)

func getRunCmd(root *rootCommand) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the verification",
		Long: `Run the verification against the configured page.

Every flag can also be set through its VERIFY_* environment variable
(VERIFY_URL, VERIFY_OUTPUT, VERIFY_DRIVER, ...). Flags win over the environment.`,
		Example: `
  # verify the page served on localhost:8000
  a11yverify run

  # against another server, with Playwright, keeping the screenshot elsewhere
  a11yverify run --url http://localhost:3000/public/index.html --driver playwright -o shots/episodes.png`[1:],
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := getConfig(cmd.Flags(), root.gs.envVars)
			if err != nil {
				return err
			}
			d, err := root.gs.newDriver(conf.Driver)
			if err != nil {
				return errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig)
			}

			runner := verify.New(conf, d,
				verify.WithFs(root.gs.fs),
				verify.WithLogger(root.gs.logger),
				verify.WithReporter(newConsoleReporter(root.stepOutput(), root.colorize())),
			)
			return runner.Run(cmd.Context())
		},
	}
	runCmd.Flags().SortFlags = false
	runCmd.Flags().AddFlagSet(configFlagSet())
	return runCmd
}
