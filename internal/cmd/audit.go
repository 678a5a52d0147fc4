package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tetherhq/tether/internal/audit"
	"github.com/tetherhq/tether/internal/config"
)

var (
	auditTool  string
	auditLimit int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "List recorded tool invocations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "audit")
		defer span.End()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		store, err := audit.NewStore(cfg.AuditDBPath())
		if err != nil {
			return fmt.Errorf("opening audit store: %w", err)
		}
		defer closeStore(store)

		var records []audit.Invocation
		if auditTool != "" {
			records, err = store.ByTool(ctx, auditTool, auditLimit)
		} else {
			records, err = store.Recent(ctx, auditLimit)
		}
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No invocations recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tTOOL\tMODE\tOUTCOME\tDURATION\tERROR")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%dms\t%s\n",
				r.Timestamp.Format("2006-01-02 15:04:05"),
				r.Tool, r.Mode, r.Outcome, r.DurationMS, r.Error)
		}
		return w.Flush()
	},
}

func init() {
	auditCmd.Flags().StringVar(&auditTool, "tool", "", "filter by tool name")
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "maximum records to show")
	rootCmd.AddCommand(auditCmd)
}
