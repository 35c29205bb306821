package cli

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/medadvisor/advisor-api/internal/config"
	"github.com/spf13/cobra"
)

var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the morning and evening notification passes on their cron schedule",
	RunE:  runScheduler,
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	s, err := a.newScheduler()
	if err != nil {
		return err
	}
	s.Start()
	log.Printf("Scheduler running (morning %q, evening %q)", cfg.MorningCron, cfg.EveningCron)

	<-ctx.Done()
	log.Println("Stopping scheduler...")
	s.Stop(context.Background())
	return nil
}
