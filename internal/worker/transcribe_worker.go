package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"slidecoach/internal/model"
)

type Transcriber interface {
	GetTranscript(ctx context.Context, session string, slide int) (*model.Transcript, error)
	InvalidateStatus(ctx context.Context, session string)
}

type TranscribeWorker struct {
	conn        *amqp.Connection
	transcriber Transcriber
	queueName   string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTranscribeWorker(conn *amqp.Connection, transcriber Transcriber, queueName string) *TranscribeWorker {
	return &TranscribeWorker{
		conn:        conn,
		transcriber: transcriber,
		queueName:   queueName,
	}
}

func (w *TranscribeWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

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
					return
				}

				var job model.TranscribeJob
				if err := json.Unmarshal(d.Body, &job); err != nil {
					log.Printf("worker decode job failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}

				if _, err := w.transcriber.GetTranscript(workerCtx, job.SessionToken, job.Slide); err != nil {
					log.Printf("worker transcribe session=%s slide=%d failed: %v", job.SessionToken, job.Slide, err)
					_ = d.Nack(false, false)
					continue
				}

				w.transcriber.InvalidateStatus(workerCtx, job.SessionToken)
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *TranscribeWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
