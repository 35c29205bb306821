package cli

import (
	"context"
	"fmt"

	"github.com/medadvisor/advisor-api/internal/config"
	"github.com/spf13/cobra"
)

var (
	notifyOffset int
	notifyLease  bool
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Run one notification pass now",
	Long:  "Sends one reminder per user for the tasks due today (--offset 0) or tomorrow (--offset 1).",
	RunE:  runNotify,
}

func init() {
	notifyCmd.Flags().IntVar(&notifyOffset, "offset", 0, "days after today whose tasks are reminded")
	notifyCmd.Flags().BoolVar(&notifyLease, "lease", false, "skip the pass if a scheduler already ran it")
}

func runNotify(cmd *cobra.Command, args []string) error {
	if notifyOffset < 0 || notifyOffset > 1 {
		return fmt.Errorf("--offset must be 0 or 1, got %d", notifyOffset)
	}

	cfg := config.Load()
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	if notifyLease {
		s, err := a.newScheduler()
		if err != nil {
			return err
		}
		result, err := s.RunPass(ctx, notifyOffset)
		if err != nil {
			return err
		}
		if result == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "pass already taken, nothing sent")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d batches, %d sent, %d errors\n", result.Date, result.Batches, result.Sent, len(result.Errors))
		return nil
	}

	result, err := a.notifications.RunDailyPass(ctx, notifyOffset)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d batches, %d sent, %d errors\n", result.Date, result.Batches, result.Sent, len(result.Errors))
	for _, e := range result.Errors {
		fmt.Fprintln(cmd.ErrOrStderr(), "  "+e)
	}
	return nil
}
