package rabbitmq

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/joulemark/green-scheduler/internal/core/domain"
)

// ConsumeRunRequests listens on the run request queue and hands each decoded
// request to the handler. Messages are acked only after the handler returns.
func (q *queueService) ConsumeRunRequests(ctx context.Context, handler func(req *domain.RunRequest) error) error {
	msgs, err := q.ch.Consume(
		requestQueue, // queue
		"",           // consumer
		false,        // auto-ack (We want to ack manually after work is done)
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return err
	}

	q.log.Info("Started consuming run requests", zap.String("queue", requestQueue))

	go func() {
		for d := range msgs {
			var req domain.RunRequest
			if err := json.Unmarshal(d.Body, &req); err != nil {
				q.log.Error("Failed to unmarshal run request", zap.Error(err))
				d.Nack(false, false) // discard invalid message
				continue
			}

			q.log.Info("Received run request", zap.String("run_id", req.RunID))

			if err := handler(&req); err != nil {
				q.log.Error("Run request handling failed", zap.Error(err))
				// Requeue so another worker can pick it up
				d.Nack(false, true)
			} else {
				d.Ack(false)
				q.log.Info("Run request processed successfully", zap.String("run_id", req.RunID))
			}
		}
	}()

	return nil
}
