package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devbydaniel/a11yverify/internal/driver"
	"github.com/devbydaniel/a11yverify/internal/verify"
)

func getInspectCmd(root *rootCommand) *cobra.Command {
	var (
		depth  int
		asJSON bool
	)
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "print the accessibility tree of the page",
		Long: `Open the configured page and print its accessibility tree, the same tree
role and name lookups are resolved against. Ignored nodes are left out.`,
		Example: `
  a11yverify inspect --depth 6
  a11yverify inspect --json | jq '.[] | select(.role == "button")'`[1:],
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := getConfig(cmd.Flags(), root.gs.envVars)
			if err != nil {
				return err
			}
			d, err := root.gs.newDriver(conf.Driver)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), conf.ActionTimeout)
			defer cancel()

			browser, err := d.Launch(ctx, driver.LaunchOptions{
				Headless: conf.Headless,
				Bin:      conf.BrowserBin,
				Stealth:  conf.Stealth,
			})
			if err != nil {
				return &verify.LaunchError{Driver: d.Name(), Err: err}
			}
			defer func() {
				if err := browser.Close(); err != nil {
					root.gs.logger.WithError(err).Warn("Failed to close browser")
				}
			}()

			page, err := browser.NewPage(ctx)
			if err != nil {
				return &verify.NavigationError{URL: conf.URL, Err: err}
			}
			if err := page.Navigate(ctx, conf.URL); err != nil {
				return &verify.NavigationError{URL: conf.URL, Err: err}
			}

			dumper, ok := page.(driver.AXTreeDumper)
			if !ok {
				return fmt.Errorf("the %s driver cannot dump the accessibility tree, use --driver rod", d.Name())
			}
			nodes, err := dumper.AXTree(ctx, depth)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(root.gs.stdOut)
				enc.SetIndent("", "  ")
				return enc.Encode(nodes)
			}
			_, err = io.WriteString(root.gs.stdOut, formatAXTree(nodes))
			return err
		},
	}
	inspectCmd.Flags().SortFlags = false
	inspectCmd.Flags().IntVar(&depth, "depth", 0, "maximum tree depth, 0 for the whole tree")
	inspectCmd.Flags().BoolVar(&asJSON, "json", false, "print the nodes as JSON")
	inspectCmd.Flags().AddFlagSet(configFlagSet())
	return inspectCmd
}

// formatAXTree renders one node per line, indented by depth:
//
//	[button] "Episodes" (focusable)
func formatAXTree(nodes []driver.AXNode) string {
	var sb strings.Builder
	for _, n := range nodes {
		line := fmt.Sprintf("%s[%s]", strings.Repeat("  ", n.Depth), n.Role)
		if n.Name != "" {
			line += fmt.Sprintf(" %q", n.Name)
		}
		if len(n.Properties) > 0 {
			line += " (" + strings.Join(n.Properties, ", ") + ")"
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}
