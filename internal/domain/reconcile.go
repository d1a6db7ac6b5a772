package domain

import (
	"errors"
	"strings"
)

// ErrMissingChannelType marks a desired channel with no channel_type. This is
// a precondition violation of the whole request, not a per-item problem.
var ErrMissingChannelType = errors.New("channel is missing channel_type")

// ChannelPlan is the set of decisions produced by comparing desired channels
// against existing ones, one slot per supported channel type.
type ChannelPlan struct {
	Create []Channel
	Update []Channel
	Delete []int64
}

// PlanChannels diffs desired against existing channels per channel type.
//
// The plan iterates the fixed ChannelTypes set, so the output holds at most
// one channel per type no matter what the input contained: a second desired
// entry of the same type is dropped, and entries with unknown types are
// ignored. Ids supplied in desired payloads are never trusted — creates get a
// zero id and updates are forced onto the existing row's id.
func PlanChannels(subscriptionID int64, existing, desired []Channel) (*ChannelPlan, error) {
	for _, d := range desired {
		if strings.TrimSpace(string(d.ChannelType)) == "" {
			return nil, ErrMissingChannelType
		}
	}

	desiredByType := firstPerType(desired)
	existingByType := firstPerType(existing)

	plan := &ChannelPlan{}
	for _, ct := range ChannelTypes {
		d, hasDesired := desiredByType[ct]
		e, hasExisting := existingByType[ct]
		switch {
		case hasDesired && !hasExisting:
			plan.Create = append(plan.Create, normalizeChannel(d, subscriptionID, 0))
		case !hasDesired && hasExisting:
			plan.Delete = append(plan.Delete, e.ID)
		case hasDesired && hasExisting:
			plan.Update = append(plan.Update, normalizeChannel(d, subscriptionID, e.ID))
		}
	}
	return plan, nil
}

func firstPerType(channels []Channel) map[ChannelType]Channel {
	byType := make(map[ChannelType]Channel, len(channels))
	for _, ch := range channels {
		ct := NormalizeChannelType(string(ch.ChannelType))
		if ct == "" {
			continue
		}
		if _, ok := byType[ct]; ok {
			continue
		}
		byType[ct] = ch
	}
	return byType
}

func normalizeChannel(ch Channel, subscriptionID, id int64) Channel {
	ch.ID = id
	ch.SubscriptionID = subscriptionID
	ch.ChannelType = NormalizeChannelType(string(ch.ChannelType))
	ch.ScheduleType = NormalizeScheduleType(string(ch.ScheduleType))
	ch.ScheduleFrame = NormalizeScheduleFrame(string(ch.ScheduleFrame), ch.ScheduleType)
	return ch
}
