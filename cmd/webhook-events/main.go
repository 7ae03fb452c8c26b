package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/app"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/config"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/entity"
	"github.com/thekiqdev/raceflow-hub-sub001/internal/domain/model"
	"github.com/thekiqdev/raceflow-hub-sub001/pkg/logger"
	"gopkg.in/yaml.v3"
)

// webhookEvents is the slice of the webhook use case the operator commands need
type webhookEvents interface {
	ListUnprocessed(ctx context.Context, limit int) ([]*model.WebhookEvent, error)
	Reprocess(ctx context.Context, id uuid.UUID) (*entity.WebhookOutcome, error)
}

// opener builds the use case and returns a cleanup func
type opener func() (webhookEvents, func(), error)

type eventSummary struct {
	ID               string     `yaml:"id"`
	EventType        string     `yaml:"event_type"`
	GatewayPaymentID string     `yaml:"gateway_payment_id"`
	ErrorMessage     string     `yaml:"error_message,omitempty"`
	CreatedAt        time.Time  `yaml:"created_at"`
	ProcessedAt      *time.Time `yaml:"processed_at,omitempty"`
}

type replayResult struct {
	EventID   string `yaml:"event_id"`
	Processed bool   `yaml:"processed"`
	Message   string `yaml:"message"`
}

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(open opener) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "webhook-events",
		Short:         "Inspect and replay stored Asaas webhook events",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(listCmd(open))
	rootCmd.AddCommand(replayCmd(open))
	return rootCmd
}

func listCmd(open opener) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events that were stored but not processed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			events, cleanup, err := open()
			if err != nil {
				return err
			}
			defer cleanup()

			stored, err := events.ListUnprocessed(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("failed to list webhook events: %w", err)
			}

			summaries := make([]eventSummary, 0, len(stored))
			for _, ev := range stored {
				summary := eventSummary{
					ID:               ev.ID.String(),
					EventType:        ev.EventType,
					GatewayPaymentID: ev.GatewayPaymentID,
					CreatedAt:        ev.CreatedAt,
					ProcessedAt:      ev.ProcessedAt,
				}
				if ev.ErrorMessage != nil {
					summary.ErrorMessage = *ev.ErrorMessage
				}
				summaries = append(summaries, summary)
			}
			return writeYAML(cmd.OutOrStdout(), summaries)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum events to list")
	return cmd
}

func replayCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "replay [event-id]",
		Short: "Run a stored, unprocessed event through webhook processing again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid event id %q: %w", args[0], err)
			}

			events, cleanup, err := open()
			if err != nil {
				return err
			}
			defer cleanup()

			outcome, err := events.Reprocess(cmd.Context(), id)
			if err != nil {
				return fmt.Errorf("failed to replay webhook event: %w", err)
			}
			return writeYAML(cmd.OutOrStdout(), replayResult{
				EventID:   outcome.EventID.String(),
				Processed: outcome.Processed,
				Message:   outcome.Message,
			})
		},
	}
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func openApp() (webhookEvents, func(), error) {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Log.Service = cfg.Service.Name
	zapLogger, err := logger.NewZapLogger(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	application, err := app.Build(cfg, zapLogger, false)
	if err != nil {
		return nil, nil, err
	}
	return application.Webhooks, func() {
		application.Close()
		_ = zapLogger.Sync()
	}, nil
}
