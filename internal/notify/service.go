// Package notify orchestrates subscription lifecycle: transactional
// create/update/delete composing card-list and channel reconciliation, plus
// lifecycle event publication.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/pulseboard/notifications/internal/domain"
	"github.com/pulseboard/notifications/internal/store"
)

type Service struct {
	store     *store.PostgresStore
	publisher Publisher
	logger    *slog.Logger
}

func NewService(st *store.PostgresStore, pub Publisher, logger *slog.Logger) *Service {
	return &Service{store: st, publisher: pub, logger: logger}
}

// CreatePulse creates a pulse with its card list and channels in one
// transaction and returns the projected view re-read inside that transaction.
func (s *Service) CreatePulse(ctx context.Context, req CreatePulseRequest) (*domain.PulseView, error) {
	if err := validateNotification(req.Name, req.CreatorID, req.CardIDs, req.Channels); err != nil {
		return nil, err
	}

	var view *domain.PulseView
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		sub, err := s.store.InsertSubscription(ctx, tx, domain.Subscription{
			Name:        strings.TrimSpace(req.Name),
			CreatorID:   req.CreatorID,
			SkipIfEmpty: req.SkipIfEmpty,
		})
		if err != nil {
			return err
		}
		if err := s.store.ReplaceCardLinks(ctx, tx, sub.ID, req.CardIDs); err != nil {
			return err
		}
		if err := s.reconcileChannels(ctx, tx, sub.ID, req.Channels); err != nil {
			return err
		}
		detail, err := s.store.GetPulse(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		view = domain.ProjectPulse(detail)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventSubscriptionCreated, view.ID, view)
	return view, nil
}

// CreateAlert creates an alert: skip_if_empty is forced on and the single
// card becomes a one-element card list.
func (s *Service) CreateAlert(ctx context.Context, req CreateAlertRequest) (*domain.AlertView, error) {
	if strings.TrimSpace(req.AlertCondition) == "" {
		return nil, fmt.Errorf("%w: alert condition must not be empty", ErrInvalidRequest)
	}
	cardIDs := []int64{req.CardID}
	if err := validateNotification(req.Name, req.CreatorID, cardIDs, req.Channels); err != nil {
		return nil, err
	}

	condition := strings.TrimSpace(req.AlertCondition)
	var view *domain.AlertView
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		sub, err := s.store.InsertSubscription(ctx, tx, domain.Subscription{
			Name:             strings.TrimSpace(req.Name),
			CreatorID:        req.CreatorID,
			SkipIfEmpty:      true,
			AlertCondition:   &condition,
			AlertDescription: req.AlertDescription,
			AlertAboveGoal:   req.AlertAboveGoal,
		})
		if err != nil {
			return err
		}
		if err := s.store.ReplaceCardLinks(ctx, tx, sub.ID, cardIDs); err != nil {
			return err
		}
		if err := s.reconcileChannels(ctx, tx, sub.ID, req.Channels); err != nil {
			return err
		}
		detail, err := s.store.GetAlert(ctx, tx, sub.ID)
		if err != nil {
			return err
		}
		view, err = domain.ProjectAlert(detail)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventSubscriptionCreated, view.ID, view)
	return view, nil
}

// UpdatePulse converges the pulse to the desired state: base fields always,
// card list only when the desired order differs from the persisted one,
// channels always (reconciliation is idempotent).
func (s *Service) UpdatePulse(ctx context.Context, req UpdatePulseRequest) (*domain.PulseView, error) {
	if err := validateUpdate(req.ID, req.Name, req.CardIDs, req.Channels); err != nil {
		return nil, err
	}

	var view *domain.PulseView
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		existing, err := s.store.GetPulse(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		if err := s.updateNotification(ctx, tx, req.ID, req.Name, req.SkipIfEmpty, req.CardIDs, req.Channels); err != nil {
			return err
		}
		detail, err := s.store.GetPulse(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		view = domain.ProjectPulse(detail)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventSubscriptionUpdated, view.ID, view)
	return view, nil
}

// UpdateAlert mirrors UpdatePulse for the alert view; the single card maps
// back into a one-element card list, and the alert-only fields are rewritten.
func (s *Service) UpdateAlert(ctx context.Context, req UpdateAlertRequest) (*domain.AlertView, error) {
	if strings.TrimSpace(req.AlertCondition) == "" {
		return nil, fmt.Errorf("%w: alert condition must not be empty", ErrInvalidRequest)
	}
	cardIDs := []int64{req.CardID}
	if err := validateUpdate(req.ID, req.Name, cardIDs, req.Channels); err != nil {
		return nil, err
	}

	var view *domain.AlertView
	err := s.store.WithTx(ctx, func(tx pgx.Tx) error {
		existing, err := s.store.GetAlert(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		// Alerts always skip empty results.
		if err := s.updateNotification(ctx, tx, req.ID, req.Name, true, cardIDs, req.Channels); err != nil {
			return err
		}
		if err := s.store.UpdateAlertFields(ctx, tx, req.ID, strings.TrimSpace(req.AlertCondition), req.AlertDescription, req.AlertAboveGoal); err != nil {
			return err
		}
		detail, err := s.store.GetAlert(ctx, tx, req.ID)
		if err != nil {
			return err
		}
		view, err = domain.ProjectAlert(detail)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, EventSubscriptionUpdated, view.ID, view)
	return view, nil
}

func validateUpdate(id int64, name string, cardIDs []int64, channels []domain.Channel) error {
	if id <= 0 {
		return fmt.Errorf("%w: subscription id must be a positive integer", ErrInvalidRequest)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidRequest)
	}
	if len(cardIDs) == 0 {
		return fmt.Errorf("%w: at least one card is required", ErrInvalidRequest)
	}
	for _, cid := range cardIDs {
		if cid <= 0 {
			return fmt.Errorf("%w: card id must be a positive integer", ErrInvalidRequest)
		}
	}
	return validateChannels(channels)
}

func (s *Service) updateNotification(ctx context.Context, tx pgx.Tx, id int64, name string, skipIfEmpty bool, cardIDs []int64, channels []domain.Channel) error {
	if err := s.store.UpdateSubscriptionBase(ctx, tx, id, strings.TrimSpace(name), skipIfEmpty); err != nil {
		return err
	}

	// Rewriting an unchanged card list would be correct too; skipping it just
	// saves a delete-and-insert round trip.
	current, err := s.store.GetCardLinkIDs(ctx, tx, id)
	if err != nil {
		return err
	}
	if !slices.Equal(current, cardIDs) {
		if err := s.store.ReplaceCardLinks(ctx, tx, id, cardIDs); err != nil {
			return err
		}
	}

	return s.reconcileChannels(ctx, tx, id, channels)
}

func (s *Service) reconcileChannels(ctx context.Context, q store.Querier, subscriptionID int64, desired []domain.Channel) error {
	existing, err := s.store.ListChannels(ctx, q, subscriptionID)
	if err != nil {
		return err
	}
	plan, err := domain.PlanChannels(subscriptionID, existing, desired)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidRequest, err)
	}
	return s.store.ApplyChannelPlan(ctx, q, plan)
}

// Delete removes the subscription and all child rows in one transaction.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: subscription id must be a positive integer", ErrInvalidRequest)
	}
	return s.store.WithTx(ctx, func(tx pgx.Tx) error {
		found, err := s.store.DeleteSubscriptionCascade(ctx, tx, id)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotFound
		}
		return nil
	})
}

// Unsubscribe removes the user's recipient row from an alert. A zero count is
// a recoverable mismatch: logged, not escalated.
func (s *Service) Unsubscribe(ctx context.Context, subscriptionID, userID int64) (int64, error) {
	if subscriptionID <= 0 || userID <= 0 {
		return 0, fmt.Errorf("%w: ids must be positive integers", ErrInvalidRequest)
	}
	count, err := s.store.UnsubscribeAlert(ctx, s.store.Pool(), subscriptionID, userID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		s.logger.Warn("unsubscribe matched no recipient",
			"subscription_id", subscriptionID,
			"user_id", userID,
		)
	}
	return count, nil
}

// publish emits a lifecycle event after the transaction has committed. A
// failed publish never fails the committed write.
func (s *Service) publish(ctx context.Context, eventType string, subscriptionID int64, view any) {
	if s.publisher == nil {
		return
	}
	ev := NewEvent(eventType, subscriptionID, view)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("failed to publish lifecycle event",
			"type", eventType,
			"subscription_id", subscriptionID,
			"error", err,
		)
	}
}
