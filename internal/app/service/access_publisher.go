package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sifan077/spectra/internal/app/model"
)

// jetStream is the part of nats.JetStreamContext the publisher uses.
type jetStream interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	UpdateStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// AccessEvent is the JSON message published for every recorded access.
type AccessEvent struct {
	ID         string          `json:"id"`
	ItemID     string          `json:"item_id"`
	Path       string          `json:"path"`
	Operation  model.Operation `json:"operation"`
	Success    bool            `json:"success"`
	IPAddress  string          `json:"ip_address"`
	Initiator  *string         `json:"initiator,omitempty"`
	AccessedAt time.Time       `json:"accessed_at"`
}

// AccessPublisher publishes access events to NATS JetStream.
type AccessPublisher struct {
	js     jetStream
	stream *nats.StreamConfig
}

// NewAccessPublisher creates a publisher on js that keeps its events in
// stream.
func NewAccessPublisher(js jetStream, stream *nats.StreamConfig) *AccessPublisher {
	return &AccessPublisher{js: js, stream: stream}
}

// EnsureStream creates the access stream, or updates its limits when the
// stored stream was made with other settings.
func (p *AccessPublisher) EnsureStream() error {
	info, err := p.js.StreamInfo(p.stream.Name)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, err := p.js.AddStream(p.stream); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("failed to look up stream: %w", err)
	}
	current := info.Config
	if current.MaxAge == p.stream.MaxAge && current.MaxBytes == p.stream.MaxBytes && current.Duplicates == p.stream.Duplicates {
		return nil
	}
	if _, err := p.js.UpdateStream(p.stream); err != nil {
		return fmt.Errorf("failed to update stream: %w", err)
	}
	return nil
}

// Publish sends log to the access subject.
func (p *AccessPublisher) Publish(ctx context.Context, log *model.AccessLog) error {
	data, err := json.Marshal(AccessEvent{
		ID:         log.ID,
		ItemID:     log.ItemID,
		Path:       log.Path,
		Operation:  log.Operation,
		Success:    log.Success,
		IPAddress:  log.IPAddress,
		Initiator:  log.Initiator,
		AccessedAt: log.AccessedAt,
	})
	if err != nil {
		return err
	}
	_, err = p.js.Publish(model.AccessStreamSubject, data, nats.Context(ctx), nats.MsgId(log.ID))
	return err
}
