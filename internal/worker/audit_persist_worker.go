package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"knowledge-assistant/internal/model"
)

// QueryLogWriter stores one decoded audit row.
type QueryLogWriter interface {
	Create(ctx context.Context, row *model.QueryLog) error
}

// AuditPersistWorker drains the audit queue into the database. Malformed
// messages are dropped; rows that fail to store are requeued once.
type AuditPersistWorker struct {
	conn      *amqp.Connection
	repo      QueryLogWriter
	queueName string
	logger    *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewAuditPersistWorker(conn *amqp.Connection, repo QueryLogWriter, queueName string) *AuditPersistWorker {
	return &AuditPersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		logger:    slog.Default().With("component", "audit-worker", "queue", queueName),
	}
}

func (w *AuditPersistWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	ch, err := w.conn.Channel()
	if err != nil {
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if _, err := ch.QueueDeclare(w.queueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}
	if err := ch.Qos(32, 0, false); err != nil {
		_ = ch.Close()
		return fmt.Errorf("set worker qos failed: %w", err)
	}
	deliveries, err := ch.Consume(w.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.logger.Warn("delivery channel closed")
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	return nil
}

func (w *AuditPersistWorker) handle(ctx context.Context, d amqp.Delivery) {
	var row model.QueryLog
	if err := json.Unmarshal(d.Body, &row); err != nil {
		w.logger.Warn("decode query log failed", "err", err)
		_ = d.Nack(false, false)
		return
	}
	row.ID = 0

	if err := w.repo.Create(ctx, &row); err != nil {
		w.logger.Error("persist query log failed", "err", err, "redelivered", d.Redelivered)
		_ = d.Nack(false, !d.Redelivered)
		return
	}
	_ = d.Ack(false)
}

func (w *AuditPersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
