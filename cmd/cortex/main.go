// Command cortex runs the memory and guardrail substrate as a standalone
// process: the embedded NATS broker, the SQLite store, and every memory
// and guardrail component wired by internal/runtime, fronted by a small
// operator CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cortexmind/cortex/internal/config"
	"github.com/cortexmind/cortex/internal/logging"
	"github.com/cortexmind/cortex/internal/runtime"
	"github.com/cortexmind/cortex/internal/tools"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	verbose    bool
)

func main() {
	root := &cobra.Command{
		Use:   "cortex",
		Short: "Long-lived memory and guardrail substrate for an agentic runtime",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "configs/cortex.yaml", "path to configuration file")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")

	root.AddCommand(serveCmd(), statsCmd(), healCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildEngine() (*runtime.Engine, *zap.Logger, error) {
	log, err := logging.New(verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("logging: %w", err)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, log, fmt.Errorf("config: %w", err)
	}
	engine, err := runtime.Build(cfg, log)
	if err != nil {
		return nil, log, fmt.Errorf("runtime: %w", err)
	}
	return engine, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine: broker, store, and background loops, until a shutdown signal",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, log, err := buildEngine()
			if err != nil {
				return err
			}

			log.Info("cortex engine started",
				zap.String("nats_url", engine.Broker.URL()),
				zap.String("config", configPath))

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh

			log.Info("shutdown signal received")
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			done := make(chan struct{})
			go func() {
				engine.Close()
				close(done)
			}()
			select {
			case <-done:
				log.Info("cortex engine shutdown complete")
			case <-ctx.Done():
				log.Warn("cortex engine shutdown timed out")
			}
			return nil
		},
	}
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print memory and category statistics and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := buildEngine()
			if err != nil {
				return err
			}
			defer engine.Close()
			res := tools.New(engine).CortexStats()
			for _, c := range res.Content {
				fmt.Println(c.Text)
			}
			return nil
		},
	}
}

func healCmd() *cobra.Command {
	var action, incidentID, runbookID, note string
	var untilHours int
	var confirm bool
	cmd := &cobra.Command{
		Use:   "heal",
		Short: "Inspect or drive the self-healing state machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if action == "" {
				action = "status"
			}
			engine, _, err := buildEngine()
			if err != nil {
				return err
			}
			defer engine.Close()
			res := tools.New(engine).CortexHeal(action, incidentID, runbookID, note, untilHours, confirm)
			for _, c := range res.Content {
				fmt.Println(c.Text)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&action, "action", "status", "status|list_runbooks|approve|dry_run|execute|record_fix|dismiss")
	cmd.Flags().StringVar(&incidentID, "incident", "", "incident id")
	cmd.Flags().StringVar(&runbookID, "runbook", "", "runbook id")
	cmd.Flags().StringVar(&note, "note", "", "note attached to the action")
	cmd.Flags().IntVar(&untilHours, "until-hours", 24, "dismiss window in hours")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "required for action=execute")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Open the store to apply schema migrations, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, log, err := buildEngine()
			if err != nil {
				return err
			}
			defer engine.Close()
			log.Info("schema up to date")
			return nil
		},
	}
}
