package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tetherhq/tether/internal/agent"
)

var (
	runParams string
	runSoft   bool
	runAudit  bool
)

var runCmd = &cobra.Command{
	Use:   "run <tool>",
	Short: "Dispatch a registered tool once and print its result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "run")
		defer span.End()

		var params map[string]any
		if runParams != "" {
			if err := json.Unmarshal([]byte(runParams), &params); err != nil {
				return fmt.Errorf("parsing --params: %w", err)
			}
		}

		a, _, _, store, err := buildAgent(runAudit)
		if err != nil {
			return err
		}
		defer closeStore(store)

		mode := agent.ModeStrict
		if runSoft {
			mode = agent.ModeSoft
		}
		result, err := a.Dispatcher(mode).Dispatch(ctx, args[0], params)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runParams, "params", "", "JSON object passed to the tool as params")
	runCmd.Flags().BoolVar(&runSoft, "soft", false, "soft mode: invocation failures become a structured result instead of an error")
	runCmd.Flags().BoolVar(&runAudit, "audit", true, "record the dispatch in the audit store")
	rootCmd.AddCommand(runCmd)
}
