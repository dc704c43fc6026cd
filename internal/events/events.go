// Package events announces finished uploads to other services.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// SubjectUploadSubmitted is published once per submitted upload.
const SubjectUploadSubmitted = "binbill.upload.submitted"

// UploadSubmitted describes a bulk enrollment the platform has answered.
type UploadSubmitted struct {
	UploadID     uuid.UUID `json:"uploadId"`
	CollectionID string    `json:"collectionId"`
	Actor        string    `json:"actor,omitempty"`
	SuccessCount int       `json:"successCount"`
	FailedCount  int       `json:"failedCount"`
	SubmittedAt  time.Time `json:"submittedAt"`
}

// Publisher sends upload events.
type Publisher interface {
	PublishUploadSubmitted(ctx context.Context, e UploadSubmitted) error
	Close()
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) PublishUploadSubmitted(context.Context, UploadSubmitted) error { return nil }

func (NopPublisher) Close() {}

// NATSPublisher publishes JSON events on a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// ConnectNATS dials the server at url.
func ConnectNATS(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("binbill"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) PublishUploadSubmitted(ctx context.Context, e UploadSubmitted) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := p.conn.Publish(SubjectUploadSubmitted, data); err != nil {
		return fmt.Errorf("publish %s: %w", SubjectUploadSubmitted, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() {
	_ = p.conn.Drain()
}
