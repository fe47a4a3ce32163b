// Package mqtt defines how solved schedules are pushed to downstream
// consumers over a message broker.
package mqtt

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/unitcommit/core/schedule"
)

// ErrNotConnected is returned when publishing on a closed connection.
var ErrNotConnected = errors.New("mqtt: not connected")

// Publisher publishes solved schedules.
type Publisher interface {
	// PublishSchedule sends the schedule and returns the message identifier.
	PublishSchedule(ctx context.Context, s *schedule.Schedule) (messageID string, err error)
}

// Envelope is the payload published for each schedule.
type Envelope struct {
	MessageID   string             `json:"message_id"`
	RunID       string             `json:"run_id"`
	Case        string             `json:"case"`
	PublishedAt time.Time          `json:"published_at"`
	Schedule    *schedule.Schedule `json:"schedule"`
}
