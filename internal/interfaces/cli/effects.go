package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/turtacn/plotinfo/internal/config"
	"github.com/turtacn/plotinfo/internal/domain/mapview"
	"github.com/turtacn/plotinfo/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/plotinfo/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/plotinfo/pkg/errors"
)

// Overridden in tests.
var (
	newEffectConsumer = func(cfg config.KafkaConfig, log logging.Logger) (*kafka.Consumer, error) {
		return kafka.NewConsumer(cfg, log)
	}
	newTopicManager = func(brokers []string, log logging.Logger) (*kafka.TopicManager, error) {
		return kafka.NewTopicManager(brokers, log)
	}
)

// NewEffectsCmd creates the effects command group operating on the map
// effect topic.
func NewEffectsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "effects",
		Short: "Inspect the published map effects",
	}
	cmd.AddCommand(newEffectsTailCmd(), newEffectsEnsureTopicCmd())
	return cmd
}

func kafkaConfig(cc *CLIContext) (config.KafkaConfig, error) {
	kc := cc.Config.Kafka
	if !kc.Enabled {
		return kc, errors.New(errors.ErrCodeServiceUnavailable, "kafka is not enabled")
	}
	return kc, nil
}

func newEffectsTailCmd() *cobra.Command {
	var (
		session string
		limit   int
	)
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print map effects as they are published",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kc, err := kafkaConfig(cc)
			if err != nil {
				return err
			}
			consumer, err := newEffectConsumer(kc, cc.Logger)
			if err != nil {
				return err
			}
			defer consumer.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var seen atomic.Int64
			printer := mapview.MapFunc(func(_ context.Context, effect mapview.Effect) error {
				if err := printEffect(cmd, effect); err != nil {
					return err
				}
				if n := seen.Add(1); limit > 0 && n >= int64(limit) {
					cancel()
				}
				return nil
			})

			err = consumer.Run(ctx, kafka.ApplyTo(printer, session))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&session, "session", "", "only print effects of this session")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "stop after n effects (0: run until interrupted)")
	return cmd
}

func printEffect(cmd *cobra.Command, effect mapview.Effect) error {
	body, err := json.Marshal(effect)
	if err != nil {
		return err
	}
	kind := effect.Kind()
	switch effect.(type) {
	case mapview.RemoveLayer:
		kind = color.RedString(kind)
	case mapview.AddLayer, mapview.AddLayerFeatures, mapview.AddThemeSublayers:
		kind = color.GreenString(kind)
	default:
		kind = color.CyanString(kind)
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", kind, body)
	return err
}

func newEffectsEnsureTopicCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-topic",
		Short: "Create the map effect topic when it does not exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			kc, err := kafkaConfig(cc)
			if err != nil {
				return err
			}
			tm, err := newTopicManager(kc.Brokers, cc.Logger)
			if err != nil {
				return err
			}
			defer tm.Close()

			ctx, cancel := operationContext(cmd, cc)
			defer cancel()
			if err := tm.EnsureTopic(ctx, kafka.EffectTopic(kc.Topic)); err != nil {
				return err
			}
			PrintSuccess(cmd, "topic "+kc.Topic+" ready")
			return nil
		},
	}
}
