package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools declared in the manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := tracer.Start(cmd.Context(), "tools")
		defer span.End()

		a, cfg, _, _, err := buildAgent(false)
		if err != nil {
			return err
		}

		names := a.ListTools()
		if len(names) == 0 {
			if cfg.ToolManifest == "" {
				fmt.Println("No tool manifest configured (set TETHER_TOOL_MANIFEST or tool_manifest in tether.config.yaml).")
			} else {
				fmt.Println("No tools declared.")
			}
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDESCRIPTION")
		for _, name := range names {
			desc, _ := a.Registry().Description(name)
			fmt.Fprintf(w, "%s\t%s\n", name, desc)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
}
