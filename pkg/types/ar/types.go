// Package ar defines the shared accounts-receivable vocabulary used across
// the platform: invoice and action life-cycle states, risk categories with
// their canonical score boundaries, collection action types, and the
// recommendation urgency/tone enums. Both the trained-model scoring path and
// the rule-based fallback classify through this package so that downstream
// consumers are model-agnostic.
package ar

import (
	"encoding/json"
	"fmt"
)

// ---------------------------------------------------------------------------
// Invoice life cycle
// ---------------------------------------------------------------------------

// InvoiceStatus is the life-cycle state of an invoice. Invoices are created
// open and transition exactly once to a terminal state.
type InvoiceStatus string

const (
	InvoiceOpen      InvoiceStatus = "open"
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceVoid      InvoiceStatus = "void"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceOpen, InvoicePaid, InvoiceVoid, InvoiceCancelled:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal state.
func (s InvoiceStatus) Terminal() bool {
	return s.Valid() && s != InvoiceOpen
}

// InvoiceType categorizes how an invoice was originated.
type InvoiceType string

const (
	InvoiceOneTime   InvoiceType = "one_time"
	InvoiceRecurring InvoiceType = "recurring"
	InvoiceMilestone InvoiceType = "milestone"
	InvoiceRetainer  InvoiceType = "retainer"
)

// Channel is the sales channel an invoice was issued through.
type Channel string

const (
	ChannelOnline  Channel = "online"
	ChannelOffline Channel = "offline"
	ChannelBoth    Channel = "both"
)

// ---------------------------------------------------------------------------
// Risk categories
// ---------------------------------------------------------------------------

// RiskCategory is the four-tier bucketing of a 0-100 risk score.
type RiskCategory string

const (
	RiskLow      RiskCategory = "low"
	RiskMedium   RiskCategory = "medium"
	RiskHigh     RiskCategory = "high"
	RiskVeryHigh RiskCategory = "very_high"
)

// RiskCategoryFromScore maps a 0-100 risk score to its category.
// Boundaries: low ≤30, medium 31-60, high 61-85, very_high ≥86. Every
// scoring path (trained model or fallback) must classify through this
// function so the boundaries cannot drift apart.
func RiskCategoryFromScore(score int) RiskCategory {
	switch {
	case score >= 86:
		return RiskVeryHigh
	case score >= 61:
		return RiskHigh
	case score >= 31:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ---------------------------------------------------------------------------
// Collection actions
// ---------------------------------------------------------------------------

// ActionType is a member of the fixed collections escalation vocabulary.
type ActionType string

const (
	ActionFriendlyReminder    ActionType = "friendly_reminder"
	ActionSecondReminder      ActionType = "second_reminder"
	ActionReminderWithInquiry ActionType = "reminder_with_inquiry"
	ActionFirmReminder        ActionType = "firm_reminder"
	ActionSecondNotice        ActionType = "second_notice"
	ActionCall                ActionType = "call"
	ActionCallRequest         ActionType = "call_request"
	ActionPaymentPlanOffer    ActionType = "payment_plan_offer"
	ActionPauseServiceWarning ActionType = "pause_service_warning"
	ActionFinalNotice         ActionType = "final_notice"
	ActionEscalate            ActionType = "escalate"
	ActionLegal               ActionType = "legal"
)

// ActionStatus is the life-cycle state of a collection action. Actions are
// created pending and transition exactly once to completed or cancelled.
type ActionStatus string

const (
	ActionPending   ActionStatus = "pending"
	ActionCompleted ActionStatus = "completed"
	ActionCancelled ActionStatus = "cancelled"
)

// Terminal reports whether s is a terminal action state.
func (s ActionStatus) Terminal() bool {
	return s == ActionCompleted || s == ActionCancelled
}

// ActionOutcome records the result of a completed collections touch.
type ActionOutcome string

const (
	OutcomePending             ActionOutcome = "pending"
	OutcomeSuccess             ActionOutcome = "success"
	OutcomeNoResponse          ActionOutcome = "no_response"
	OutcomeDispute             ActionOutcome = "dispute"
	OutcomePromiseToPay        ActionOutcome = "promise_to_pay"
	OutcomePaymentPlanAccepted ActionOutcome = "payment_plan_accepted"
)

// ---------------------------------------------------------------------------
// Recommendation output enums
// ---------------------------------------------------------------------------

// Urgency is the tier assigned to a recommendation from its priority score.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// UrgencyFromPriority maps a 0-100 priority to an urgency tier:
// critical ≥75, high ≥50, medium ≥25, else low.
func UrgencyFromPriority(priority int) Urgency {
	switch {
	case priority >= 75:
		return UrgencyCritical
	case priority >= 50:
		return UrgencyHigh
	case priority >= 25:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

// Tone is the communication register recommended for an outreach message.
type Tone string

const (
	ToneFriendly Tone = "friendly"
	ToneNeutral  Tone = "neutral"
	ToneFirm     Tone = "firm"
)

// ---------------------------------------------------------------------------
// Amount buckets
// ---------------------------------------------------------------------------

// AmountBucket is the categorical size class of an invoice amount.
type AmountBucket int

const (
	AmountTiny   AmountBucket = iota // ≤ 1 000
	AmountSmall                      // ≤ 5 000
	AmountMedium                     // ≤ 10 000
	AmountLarge                      // ≤ 50 000
	AmountXLarge                     // > 50 000
)

var amountBucketNames = map[AmountBucket]string{
	AmountTiny:   "tiny",
	AmountSmall:  "small",
	AmountMedium: "medium",
	AmountLarge:  "large",
	AmountXLarge: "xlarge",
}

func (b AmountBucket) String() string {
	if s, ok := amountBucketNames[b]; ok {
		return s
	}
	return "unknown"
}

// MarshalJSON serialises AmountBucket as a JSON string.
func (b AmountBucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// UnmarshalJSON deserialises a JSON string into AmountBucket.
func (b *AmountBucket) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for k, v := range amountBucketNames {
		if v == s {
			*b = k
			return nil
		}
	}
	return fmt.Errorf("unknown amount bucket: %s", s)
}

// AmountBucketFor classifies an invoice amount into its size bucket.
func AmountBucketFor(amount float64) AmountBucket {
	switch {
	case amount <= 1000:
		return AmountTiny
	case amount <= 5000:
		return AmountSmall
	case amount <= 10000:
		return AmountMedium
	case amount <= 50000:
		return AmountLarge
	default:
		return AmountXLarge
	}
}
