package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sayan2713/QR-Generator-Verify-System/config"
	"github.com/Sayan2713/QR-Generator-Verify-System/internal/gate"
	"github.com/Sayan2713/QR-Generator-Verify-System/pkg/rabbitmq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Verify scans for one event from stdin or the gate queue",
	Long: `Reads decoded credentials, one per line on stdin ("QR-... [action]") or as
messages on the gate queue, and verifies each against the given event.`,
	RunE: runGate,
}

var (
	gateEvent  string
	gateAction string
	gateSource string
)

func init() {
	gateCmd.Flags().StringVar(&gateEvent, "event", "", "name of the event this gate guards")
	gateCmd.Flags().StringVar(&gateAction, "action", gate.DefaultAction, "action recorded when a scan names none")
	gateCmd.Flags().StringVar(&gateSource, "source", "stdin", "scan source: stdin or amqp")
	_ = gateCmd.MarkFlagRequired("event")
	rootCmd.AddCommand(gateCmd)
}

func runGate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var source gate.Source
	switch gateSource {
	case "stdin":
		source = gate.NewLineSource(os.Stdin)
	case "amqp":
		if cfg.RabbitURL == "" {
			return errors.New("RABBIT_URL is required for the amqp gate source")
		}
		consumer, err := rabbitmq.NewConsumer(cfg.RabbitURL, cfg.Gate.Queue, cfg.Gate.BindingKey)
		if err != nil {
			return err
		}
		defer consumer.Close()
		source = gate.NewAMQPSource(consumer)
	default:
		return fmt.Errorf("unknown scan source %q", gateSource)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	log.Info().Str("event", gateEvent).Str("source", gateSource).Msg("gate open")
	stats, err := gate.NewRunner(source, a.verify, gateEvent, gateAction).Run(ctx)
	log.Info().Int("authorized", stats.Authorized).Int("rejected", stats.Rejected).Int("failed", stats.Failed).
		Msg("gate closed")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
