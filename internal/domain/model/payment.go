package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"   // checkout session created, awaiting settlement
	PaymentStatusCompleted PaymentStatus = "completed" // settlement callback credited the ledger
	PaymentStatusFailed    PaymentStatus = "failed"    // provider reported failure
	PaymentStatusRefunded  PaymentStatus = "refunded"  // manual operator action
)

type PaymentType string

const (
	PaymentTypeCredits PaymentType = "credits"
	PaymentTypePremium PaymentType = "premium"
	PaymentTypeRefund  PaymentType = "refund"
)

type PremiumPlan string

const (
	PremiumPlanMonthly PremiumPlan = "monthly"
	PremiumPlanYearly  PremiumPlan = "yearly"
)

// Payment records one external checkout intent. The checkout session id is
// the idempotency key: a payment transitions out of pending exactly once.
type Payment struct {
	ID                string
	TelegramID        int64
	CheckoutSessionID string
	Amount            int64  // minor units
	Currency          string // ISO code, e.g. "EUR"
	Type              PaymentType
	Status            PaymentStatus

	// Type-specific payload.
	Credits     int64       // for PaymentTypeCredits
	PremiumPlan PremiumPlan // for PaymentTypePremium

	CreatedAt time.Time
	UpdatedAt time.Time
	PaidAt    *time.Time
}

func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusFailed || p.Status == PaymentStatusRefunded
}

// PremiumDuration maps a plan to its entitlement window.
func (p PremiumPlan) Duration() time.Duration {
	if p == PremiumPlanYearly {
		return 365 * 24 * time.Hour
	}
	return 30 * 24 * time.Hour
}
