package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/campuspulse/platform/pkg/common/config"
	"github.com/campuspulse/platform/pkg/common/events"
	"github.com/campuspulse/platform/pkg/common/logger"
	"github.com/campuspulse/platform/pkg/common/models"
)

// turnout-monitor tails the audit topic and tracks participation per
// election. It only ever sees election ids and receipts, never choices or
// voter identities.
func main() {
	logger.Init()
	cfg := config.Load()

	consumer := events.NewKafkaConsumer(cfg.KafkaBrokers, cfg.KafkaAuditTopic, cfg.KafkaGroupID+"-turnout")
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		cancel()
	}()

	var mu sync.Mutex
	turnout := make(map[string]int64)

	logger.Log.Info("Turnout monitor consuming audit events")
	err := consumer.Consume(ctx, func(ctx context.Context, event models.Event) error {
		if event.Type != events.TypeBallotCast {
			return nil
		}

		electionID, _ := event.Data["election_id"].(string)
		if electionID == "" {
			return nil
		}

		mu.Lock()
		turnout[electionID]++
		count := turnout[electionID]
		mu.Unlock()

		logger.Log.WithFields(map[string]interface{}{
			"election_id": electionID,
			"turnout":     count,
		}).Info("Ballot cast")
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.WithError(err).Fatal("turnout monitor stopped")
	}

	logger.Log.Info("Turnout monitor stopped")
}
