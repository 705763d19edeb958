// Command order-replay republishes order change records onto the orders
// topic. It is the recovery path for rollup documents: feed it the
// before/after images exported from the order store and the worker folds
// them back in, with replay-safe semantics guaranteed by the pipeline.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/carretedigital/carrete-backend/pkg/config"
	"github.com/carretedigital/carrete-backend/pkg/enums"
	"github.com/carretedigital/carrete-backend/pkg/events"
	"github.com/carretedigital/carrete-backend/pkg/logger"
	"github.com/carretedigital/carrete-backend/pkg/pubsub"
)

func main() {
	var (
		file    = flag.String("file", "-", "JSONL file of order change records, one {order_id,before,after} object per line, - for stdin")
		timeout = flag.Duration("timeout", 5*time.Minute, "overall publish deadline")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	logg := logger.New(logger.Options{ServiceName: "order-replay"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "order-replay",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	input, err := openInput(*file)
	requireResource(ctx, logg, "input file", err)
	defer input.Close()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	publisher := pubsubClient.OrdersPublisher()
	if publisher == nil {
		requireResource(ctx, logg, "orders publisher", fmt.Errorf("orders topic not configured"))
	}
	defer publisher.Stop()

	published, err := replay(ctx, logg, publisher, input)
	if err != nil {
		logg.Error(ctx, "replay aborted", err)
		os.Exit(1)
	}

	logg.Info(ctx, fmt.Sprintf("replay complete, %d events published", published))
}

// replay publishes one order_changed event per input line and waits for
// every server ack before returning.
func replay(ctx context.Context, logg *logger.Logger, publisher *gcppubsub.Publisher, input io.Reader) (int, error) {
	type pending struct {
		line   int
		result *gcppubsub.PublishResult
	}

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	results := []pending{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record events.OrderChangedEvent
		if err := json.Unmarshal(line, &record); err != nil {
			return 0, fmt.Errorf("line %d: decoding order change record: %w", lineNo, err)
		}

		envelope := events.PayloadEnvelope{
			EventID:    uuid.NewString(),
			OccurredAt: time.Now().UTC(),
			Data:       append(json.RawMessage{}, line...),
		}
		data, err := json.Marshal(envelope)
		if err != nil {
			return 0, fmt.Errorf("line %d: encoding payload envelope: %w", lineNo, err)
		}

		results = append(results, pending{
			line: lineNo,
			result: publisher.Publish(ctx, &gcppubsub.Message{
				Data: data,
				Attributes: map[string]string{
					"event_type": string(enums.OrderEventChanged),
					"event_id":   envelope.EventID,
					"order_id":   record.OrderID,
					"created_at": envelope.OccurredAt.Format(time.RFC3339Nano),
				},
			}),
		})
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("reading input: %w", err)
	}

	for _, p := range results {
		if _, err := p.result.Get(ctx); err != nil {
			return 0, fmt.Errorf("line %d: publishing: %w", p.line, err)
		}
	}

	logg.Info(ctx, fmt.Sprintf("flushed %d publish results", len(results)))
	return len(results), nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
