/*
publisher.go - Hands planned reminders to the delivery side

PURPOSE:
  The scheduler plans reminder requests; something else delivers them.
  Planned batches are published as JSON on NATS so any number of delivery
  workers can pick them up.

SUBJECTS:
  reminders.{user_id}.{week}     e.g. reminders.user-1.next

  Characters NATS treats specially in a subject token are replaced by "_".

SEE ALSO:
  - trash/remind.go: ReminderRequest
  - api/scheduler.go: Publishes after each planning run
*/
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/warp/trash-schedule/trash"
)

const SubjectPrefix = "reminders"

// Batch is one published planning result.
type Batch struct {
	RunID       string                  `json:"run_id"`
	UserID      string                  `json:"user_id"`
	Week        string                  `json:"week"`
	PeriodStart string                  `json:"period_start"`
	Requests    []trash.ReminderRequest `json:"requests"`
	PlannedAt   time.Time               `json:"planned_at"`
}

// Publisher publishes planned reminders.
type Publisher interface {
	Publish(ctx context.Context, batch Batch) error
}

// Subject returns the subject a batch is published on.
func Subject(userID, week string) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, token(userID), token(week))
}

func token(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		}
		return r
	}, s)
}

// =============================================================================
// NATS
// =============================================================================

// NATSPublisher publishes batches on a NATS connection.
type NATSPublisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

func NewNATSPublisher(nc *nats.Conn, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{nc: nc, logger: logger}
}

// Connect dials NATS with reconnect logging.
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.Name("trash-schedule"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats %s: %w", url, err)
	}
	return nc, nil
}

// Publish sends the batch and flushes so that failures surface here.
func (p *NATSPublisher) Publish(ctx context.Context, batch Batch) error {
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal reminder batch: %w", err)
	}

	subject := Subject(batch.UserID, batch.Week)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish reminder batch: %w", err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush reminder batch: %w", err)
	}

	p.logger.Debug("published reminders",
		zap.String("subject", subject),
		zap.Int("requests", len(batch.Requests)))
	return nil
}

// =============================================================================
// LOG ONLY
// =============================================================================

// LogPublisher only logs batches. Used when no NATS URL is configured.
type LogPublisher struct {
	Logger *zap.Logger
}

func (p LogPublisher) Publish(_ context.Context, batch Batch) error {
	if p.Logger != nil {
		p.Logger.Info("reminders planned",
			zap.String("user_id", batch.UserID),
			zap.String("week", batch.Week),
			zap.Int("requests", len(batch.Requests)))
	}
	return nil
}
