package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "0.1.0-dev" //nolint:gochecknoglobals

func versionDetails() map[string]string {
	details := map[string]string{
		"version":    Version,
		"go_version": runtime.Version(),
		"go_os":      runtime.GOOS,
		"go_arch":    runtime.GOARCH,
	}
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" {
				details["commit"] = s.Value
			}
		}
	}
	return details
}

func getVersionCmd(root *rootCommand) *cobra.Command {
	var isJSON bool
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "show application version",
		Long:  `Show the application version and exit.`,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			details := versionDetails()
			if !isJSON {
				fprintf(root.gs.stdOut, "a11yverify v%s (%s, %s/%s)\n",
					details["version"], details["go_version"], details["go_os"], details["go_arch"])
				return nil
			}
			jsonDetails, err := json.Marshal(details)
			if err != nil {
				return fmt.Errorf("failed produce a JSON version details: %w", err)
			}
			fprintf(root.gs.stdOut, "%s\n", jsonDetails)
			return nil
		},
	}
	versionCmd.Flags().BoolVar(&isJSON, "json", false, "if set, output version information will be JSON")
	return versionCmd
}
