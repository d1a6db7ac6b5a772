package domain

import "strings"

// SubscriptionDetail is a subscription with its related collections attached:
// creator, ordered non-archived cards, and channels with their recipients.
type SubscriptionDetail struct {
	Subscription
	Creator  *User     `json:"creator,omitempty"`
	Cards    []Card    `json:"cards"`
	Channels []Channel `json:"channels"`
}

// CardIDs returns the linked card ids in list order.
func (d *SubscriptionDetail) CardIDs() []int64 {
	ids := make([]int64, 0, len(d.Cards))
	for _, c := range d.Cards {
		ids = append(ids, c.ID)
	}
	return ids
}

// HasRecipientEmail reports whether the email belongs to any recipient
// reachable through the subscription's channels. Matching is
// case-insensitive.
func (d *SubscriptionDetail) HasRecipientEmail(email string) bool {
	if email == "" {
		return false
	}
	for _, ch := range d.Channels {
		for _, r := range ch.Recipients {
			if r.Email != nil && strings.EqualFold(*r.Email, email) {
				return true
			}
		}
	}
	return false
}
