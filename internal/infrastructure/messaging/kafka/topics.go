// Package kafka provides the optional event producer: risk-scoring and
// collections-planning results are published as versioned JSON envelopes
// for downstream consumers (dashboards, ERP sync, alerting). A nil
// Producer is a no-op, so the messaging layer never becomes a hard
// dependency of the scoring path.
package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/CashFlow-Sentinel/pkg/errors"
)

// Topic names. The configured topic prefix is prepended at publish time.
const (
	TopicRiskScored    = "ar.invoice.risk_scored"
	TopicPlanGenerated = "ar.collections.plan_generated"
)

// EventEnvelope standardizes every published event.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// RiskScoredPayload announces a completed scoring batch.
type RiskScoredPayload struct {
	BatchID      string    `json:"batch_id"`
	AsOf         time.Time `json:"as_of"`
	InvoiceCount int       `json:"invoice_count"`
	ModelKind    string    `json:"model_kind"`
	UsedFallback bool      `json:"used_fallback"`
	ScoredAt     time.Time `json:"scored_at"`
}

// PlanGeneratedPayload announces a generated collections plan.
type PlanGeneratedPayload struct {
	PlanID       string    `json:"plan_id"`
	AsOf         time.Time `json:"as_of"`
	InvoiceCount int       `json:"invoice_count"`
	TouchCount   int       `json:"touch_count"`
	GeneratedAt  time.Time `json:"generated_at"`
}

// NewEventEnvelope wraps a payload for publication.
func NewEventEnvelope(eventType, source string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshalling event payload")
	}
	if source == "" {
		source = "cashflow-sentinel"
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: "v1",
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the envelope payload into target.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decoding event payload")
	}
	return nil
}
