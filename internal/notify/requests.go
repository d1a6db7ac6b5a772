package notify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pulseboard/notifications/internal/domain"
)

// ErrInvalidRequest marks a precondition violation. No transaction is opened
// and no partial work happens once this is returned.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound marks a mutation aimed at a subscription that does not exist
// (or exists under the other logical view).
var ErrNotFound = errors.New("subscription not found")

type CreatePulseRequest struct {
	Name        string
	CreatorID   int64
	CardIDs     []int64
	Channels    []domain.Channel
	SkipIfEmpty bool
}

type CreateAlertRequest struct {
	Name             string
	CreatorID        int64
	CardID           int64
	Channels         []domain.Channel
	AlertCondition   string
	AlertDescription *string
	AlertAboveGoal   *bool
}

type UpdatePulseRequest struct {
	ID          int64
	Name        string
	SkipIfEmpty bool
	CardIDs     []int64
	Channels    []domain.Channel
}

type UpdateAlertRequest struct {
	ID               int64
	Name             string
	CardID           int64
	Channels         []domain.Channel
	AlertCondition   string
	AlertDescription *string
	AlertAboveGoal   *bool
}

func validateNotification(name string, creatorID int64, cardIDs []int64, channels []domain.Channel) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidRequest)
	}
	if creatorID <= 0 {
		return fmt.Errorf("%w: creator id must be a positive integer", ErrInvalidRequest)
	}
	if len(cardIDs) == 0 {
		return fmt.Errorf("%w: at least one card is required", ErrInvalidRequest)
	}
	for _, id := range cardIDs {
		if id <= 0 {
			return fmt.Errorf("%w: card id must be a positive integer", ErrInvalidRequest)
		}
	}
	return validateChannels(channels)
}

func validateChannels(channels []domain.Channel) error {
	for _, ch := range channels {
		if strings.TrimSpace(string(ch.ChannelType)) == "" {
			return fmt.Errorf("%w: %s", ErrInvalidRequest, domain.ErrMissingChannelType)
		}
	}
	return nil
}
