package domain

import (
	"errors"
	"time"
)

// ErrNotAnAlert is returned when an alert projection is requested for a row
// without an alert condition.
var ErrNotAnAlert = errors.New("subscription has no alert condition")

// CardSummary is the card field set exposed in views.
type CardSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Display     string `json:"display"`
}

// ChannelView is a channel as surfaced on read. Details never carry the
// transient emails delivery configuration.
type ChannelView struct {
	ID            int64          `json:"id"`
	ChannelType   ChannelType    `json:"channel_type"`
	ScheduleType  ScheduleType   `json:"schedule_type"`
	ScheduleFrame ScheduleFrame  `json:"schedule_frame,omitempty"`
	Details       ChannelDetails `json:"details"`
	Recipients    []Recipient    `json:"recipients"`
}

// PulseView is the pulse-shaped projection: alert fields are absent and the
// full ordered card list is attached.
type PulseView struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	CreatorID   int64         `json:"creator_id"`
	SkipIfEmpty bool          `json:"skip_if_empty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Creator     *User         `json:"creator,omitempty"`
	Cards       []CardSummary `json:"cards"`
	Channels    []ChannelView `json:"channels"`
}

// AlertView is the alert-shaped projection: the single card is promoted to a
// top-level field and no cards collection exists.
type AlertView struct {
	ID               int64         `json:"id"`
	Name             string        `json:"name"`
	CreatorID        int64         `json:"creator_id"`
	SkipIfEmpty      bool          `json:"skip_if_empty"`
	AlertCondition   string        `json:"alert_condition"`
	AlertDescription *string       `json:"alert_description,omitempty"`
	AlertAboveGoal   *bool         `json:"alert_above_goal,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	Creator          *User         `json:"creator,omitempty"`
	Card             *CardSummary  `json:"card"`
	Channels         []ChannelView `json:"channels"`
}

func projectChannels(channels []Channel) []ChannelView {
	views := make([]ChannelView, 0, len(channels))
	for _, ch := range channels {
		details := ch.Details
		details.Emails = nil
		recipients := ch.Recipients
		if recipients == nil {
			recipients = []Recipient{}
		}
		views = append(views, ChannelView{
			ID:            ch.ID,
			ChannelType:   ch.ChannelType,
			ScheduleType:  ch.ScheduleType,
			ScheduleFrame: ch.ScheduleFrame,
			Details:       details,
			Recipients:    recipients,
		})
	}
	return views
}

func summarize(c Card) CardSummary {
	return CardSummary{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Display:     c.Display,
	}
}

// ProjectPulse maps a loaded subscription into the pulse view.
func ProjectPulse(d *SubscriptionDetail) *PulseView {
	cards := make([]CardSummary, 0, len(d.Cards))
	for _, c := range d.Cards {
		cards = append(cards, summarize(c))
	}
	return &PulseView{
		ID:          d.ID,
		Name:        d.Name,
		CreatorID:   d.CreatorID,
		SkipIfEmpty: d.SkipIfEmpty,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
		Creator:     d.Creator,
		Cards:       cards,
		Channels:    projectChannels(d.Channels),
	}
}

// ProjectAlert maps a loaded subscription into the alert view. The underlying
// row must carry an alert condition.
func ProjectAlert(d *SubscriptionDetail) (*AlertView, error) {
	if d.AlertCondition == nil {
		return nil, ErrNotAnAlert
	}
	var card *CardSummary
	if len(d.Cards) > 0 {
		s := summarize(d.Cards[0])
		card = &s
	}
	return &AlertView{
		ID:               d.ID,
		Name:             d.Name,
		CreatorID:        d.CreatorID,
		SkipIfEmpty:      d.SkipIfEmpty,
		AlertCondition:   *d.AlertCondition,
		AlertDescription: d.AlertDescription,
		AlertAboveGoal:   d.AlertAboveGoal,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		Creator:          d.Creator,
		Card:             card,
		Channels:         projectChannels(d.Channels),
	}, nil
}
