package mqtt

import (
	"context"
	"time"

	"github.com/kilianp07/outagewatch/core/alerts"
)

// AlertPublisher sends alert lists to the message broker.
type AlertPublisher interface {
	// PublishAlerts publishes the list and returns the batch identifier
	// carried in the payload.
	PublishAlerts(ctx context.Context, list alerts.AlertList) (batchID string, err error)
}

// ReloadRequest is received on the reload topic to force a schedule refresh.
type ReloadRequest struct {
	RequestID string    `json:"request_id"`
	Source    string    `json:"source"`
	At        time.Time `json:"at"`
}

// ReloadSubscriber delivers reload requests to a handler.
type ReloadSubscriber interface {
	OnReload(handler func(ReloadRequest)) error
}

// AlertBatch is the payload published for each alert scan.
type AlertBatch struct {
	BatchID string `json:"batch_id"`
	alerts.AlertList
}
