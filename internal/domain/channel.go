package domain

import (
	"strings"
	"time"
)

// ChannelType identifies a delivery mechanism. At most one channel per type
// exists on a subscription.
type ChannelType string

const (
	ChannelTypeEmail ChannelType = "email"
	ChannelTypeSlack ChannelType = "slack"
)

// ChannelTypes is the fixed set of supported delivery mechanisms. Channel
// reconciliation iterates this set, not the caller's input.
var ChannelTypes = []ChannelType{ChannelTypeEmail, ChannelTypeSlack}

type ScheduleType string

const (
	ScheduleHourly  ScheduleType = "hourly"
	ScheduleDaily   ScheduleType = "daily"
	ScheduleWeekly  ScheduleType = "weekly"
	ScheduleMonthly ScheduleType = "monthly"
)

// ScheduleFrame positions a weekly or monthly schedule within its period.
type ScheduleFrame string

const (
	FrameFirst ScheduleFrame = "first"
	FrameMid   ScheduleFrame = "mid"
	FrameLast  ScheduleFrame = "last"
)

// ChannelDetails carries per-type delivery configuration. Emails is transient
// input for email delivery setup and is never echoed back on read.
type ChannelDetails struct {
	Channel string   `json:"channel,omitempty"`
	Emails  []string `json:"emails,omitempty"`
}

// Channel is a delivery mechanism configured on a subscription. The same
// struct doubles as the desired-channel payload on create/update; in that
// role ID is ignored and Recipients lists the desired recipient set.
type Channel struct {
	ID             int64          `json:"id"`
	SubscriptionID int64          `json:"subscription_id"`
	ChannelType    ChannelType    `json:"channel_type"`
	ScheduleType   ScheduleType   `json:"schedule_type"`
	ScheduleFrame  ScheduleFrame  `json:"schedule_frame,omitempty"`
	Details        ChannelDetails `json:"details"`
	Recipients     []Recipient    `json:"recipients"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Recipient is a person receiving deliveries via a channel, identified either
// by internal user reference or by raw email address.
type Recipient struct {
	ID        int64   `json:"id"`
	ChannelID int64   `json:"channel_id"`
	UserID    *int64  `json:"user_id,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// NormalizeChannelType lower-cases and trims the input. Unknown types map to
// the empty string and are ignored by reconciliation.
func NormalizeChannelType(t string) ChannelType {
	ct := ChannelType(strings.ToLower(strings.TrimSpace(t)))
	for _, known := range ChannelTypes {
		if ct == known {
			return ct
		}
	}
	return ""
}

// NormalizeScheduleType maps arbitrary input to a canonical schedule,
// defaulting to daily.
func NormalizeScheduleType(t string) ScheduleType {
	switch ScheduleType(strings.ToLower(strings.TrimSpace(t))) {
	case ScheduleHourly:
		return ScheduleHourly
	case ScheduleWeekly:
		return ScheduleWeekly
	case ScheduleMonthly:
		return ScheduleMonthly
	default:
		return ScheduleDaily
	}
}

// NormalizeScheduleFrame canonicalizes the frame for schedules that use one
// (weekly, monthly) and clears it otherwise.
func NormalizeScheduleFrame(f string, schedule ScheduleType) ScheduleFrame {
	if schedule != ScheduleWeekly && schedule != ScheduleMonthly {
		return ""
	}
	switch ScheduleFrame(strings.ToLower(strings.TrimSpace(f))) {
	case FrameMid:
		return FrameMid
	case FrameLast:
		return FrameLast
	default:
		return FrameFirst
	}
}
