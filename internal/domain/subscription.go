package domain

import (
	"time"
)

// Subscription is the physical record behind both pulses and alerts. A
// non-null AlertCondition makes the row an alert; otherwise it is a pulse.
type Subscription struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	CreatorID        int64     `json:"creator_id"`
	SkipIfEmpty      bool      `json:"skip_if_empty"`
	AlertCondition   *string   `json:"alert_condition,omitempty"`
	AlertDescription *string   `json:"alert_description,omitempty"`
	AlertAboveGoal   *bool     `json:"alert_above_goal,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// IsAlert reports whether the row is logically an alert.
func (s *Subscription) IsAlert() bool {
	return s.AlertCondition != nil
}

// CardLink associates a subscription with one card it reports on. Positions
// form a dense zero-based ordering.
type CardLink struct {
	SubscriptionID int64 `json:"subscription_id"`
	CardID         int64 `json:"card_id"`
	Position       int   `json:"position"`
}
