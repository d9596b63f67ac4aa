package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/joulemark/green-scheduler/internal/core/domain"
	"github.com/joulemark/green-scheduler/internal/core/port"
)

const (
	exchangeName    = "simulations.direct"
	requestQueue    = "runs.requests"
	reportQueue     = "runs.reports"
	requestRouteKey = "run.request"
	reportRouteKey  = "run.report"
)

type queueService struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  *zap.Logger
}

func NewQueueService(url string, log *zap.Logger) (port.QueueService, error) {
	var conn *amqp.Connection
	var err error

	// Retry connection up to 10 times with backoff
	maxRetries := 10
	for i := 1; i <= maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			var ch *amqp.Channel
			ch, err = conn.Channel()
			if err == nil {
				svc := &queueService{
					conn: conn,
					ch:   ch,
					log:  log,
				}
				if err := svc.ensureTopology(); err != nil {
					conn.Close()
					return nil, fmt.Errorf("failed to declare topology: %w", err)
				}
				return svc, nil
			}
			conn.Close()
		}

		log.Warn("Failed to connect to RabbitMQ, retrying...",
			zap.Int("attempt", i),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)

		// Simple incremental backoff
		time.Sleep(time.Duration(i*2) * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", maxRetries, err)
}

// ensureTopology declares the exchange, queues and bindings so the service
// works against a broker with no pre-provisioned definitions
func (q *queueService) ensureTopology() error {
	if err := q.ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // kind
		true,         // durable
		false,        // auto-delete
		false,        // internal
		false,        // no-wait
		nil,          // args
	); err != nil {
		return err
	}

	bindings := []struct {
		queue string
		key   string
	}{
		{requestQueue, requestRouteKey},
		{reportQueue, reportRouteKey},
	}
	for _, b := range bindings {
		if _, err := q.ch.QueueDeclare(b.queue, true, false, false, false, nil); err != nil {
			return err
		}
		if err := q.ch.QueueBind(b.queue, b.key, exchangeName, false, nil); err != nil {
			return err
		}
	}
	return nil
}

func (q *queueService) PublishRunRequest(ctx context.Context, req *domain.RunRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	err = q.ch.PublishWithContext(ctx,
		exchangeName,    // Exchange
		requestRouteKey, // Routing key
		false,           // Mandatory
		false,           // Immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})

	if err != nil {
		q.log.Error("Failed to publish run request", zap.Error(err))
		return err
	}

	q.log.Info("Published run request", zap.String("run_id", req.RunID), zap.String("key", requestRouteKey))
	return nil
}

func (q *queueService) PublishReport(ctx context.Context, report *domain.ComparisonReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		return err
	}

	err = q.ch.PublishWithContext(ctx,
		exchangeName,   // Exchange
		reportRouteKey, // Routing key
		false,          // Mandatory
		false,          // Immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})

	if err != nil {
		q.log.Error("Failed to publish report", zap.Error(err))
		return err
	}

	q.log.Info("Published report", zap.String("run_id", report.RunID), zap.String("key", reportRouteKey))
	return nil
}
