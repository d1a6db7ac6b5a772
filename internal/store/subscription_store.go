package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pulseboard/notifications/internal/domain"
)

const subscriptionColumns = `id, name, creator_id, skip_if_empty, alert_condition, alert_description, alert_above_goal, created_at, updated_at`

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := row.Scan(
		&sub.ID, &sub.Name, &sub.CreatorID, &sub.SkipIfEmpty,
		&sub.AlertCondition, &sub.AlertDescription, &sub.AlertAboveGoal,
		&sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning subscription: %w", err)
	}
	return &sub, nil
}

// InsertSubscription writes the base row and returns it with generated fields.
func (s *PostgresStore) InsertSubscription(ctx context.Context, q Querier, sub domain.Subscription) (*domain.Subscription, error) {
	row := q.QueryRow(ctx, `
		INSERT INTO subscriptions (name, creator_id, skip_if_empty, alert_condition, alert_description, alert_above_goal)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+subscriptionColumns,
		sub.Name, sub.CreatorID, sub.SkipIfEmpty,
		sub.AlertCondition, sub.AlertDescription, sub.AlertAboveGoal,
	)
	created, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("inserting subscription: %w", err)
	}
	return created, nil
}

// UpdateSubscriptionBase updates the always-writable base fields.
func (s *PostgresStore) UpdateSubscriptionBase(ctx context.Context, q Querier, id int64, name string, skipIfEmpty bool) error {
	_, err := q.Exec(ctx, `
		UPDATE subscriptions SET name = $2, skip_if_empty = $3, updated_at = NOW()
		WHERE id = $1
	`, id, name, skipIfEmpty)
	if err != nil {
		return fmt.Errorf("updating subscription: %w", err)
	}
	return nil
}

// UpdateAlertFields rewrites the alert-only fields. Guarded on the
// discriminator so an alert update can never turn a pulse into an alert.
func (s *PostgresStore) UpdateAlertFields(ctx context.Context, q Querier, id int64, condition string, description *string, aboveGoal *bool) error {
	_, err := q.Exec(ctx, `
		UPDATE subscriptions
		SET alert_condition = $2, alert_description = $3, alert_above_goal = $4, updated_at = NOW()
		WHERE id = $1 AND alert_condition IS NOT NULL
	`, id, condition, description, aboveGoal)
	if err != nil {
		return fmt.Errorf("updating alert fields: %w", err)
	}
	return nil
}

// GetPulse fetches a subscription that is logically a pulse, with related
// collections attached. An alert requested through here is not found.
func (s *PostgresStore) GetPulse(ctx context.Context, q Querier, id int64) (*domain.SubscriptionDetail, error) {
	sub, err := scanSubscription(q.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1 AND alert_condition IS NULL`, id))
	if err != nil || sub == nil {
		return nil, err
	}
	return s.loadDetail(ctx, q, sub)
}

// GetAlert fetches a subscription that is logically an alert.
func (s *PostgresStore) GetAlert(ctx context.Context, q Querier, id int64) (*domain.SubscriptionDetail, error) {
	sub, err := scanSubscription(q.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1 AND alert_condition IS NOT NULL`, id))
	if err != nil || sub == nil {
		return nil, err
	}
	return s.loadDetail(ctx, q, sub)
}

// GetNotification fetches either shape; the caller inspects the result.
func (s *PostgresStore) GetNotification(ctx context.Context, q Querier, id int64) (*domain.SubscriptionDetail, error) {
	sub, err := scanSubscription(q.QueryRow(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`, id))
	if err != nil || sub == nil {
		return nil, err
	}
	return s.loadDetail(ctx, q, sub)
}

// ListPulses returns all pulses ordered by name.
func (s *PostgresStore) ListPulses(ctx context.Context, q Querier) ([]domain.SubscriptionDetail, error) {
	return s.listSubscriptions(ctx, q,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE alert_condition IS NULL ORDER BY name ASC`)
}

// ListAlerts returns all alerts ordered by name.
func (s *PostgresStore) ListAlerts(ctx context.Context, q Querier) ([]domain.SubscriptionDetail, error) {
	return s.listSubscriptions(ctx, q,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE alert_condition IS NOT NULL ORDER BY name ASC`)
}

// ListAlertsForCard returns alerts referencing the card that are visible to
// the user: either created by them or delivering to them as a recipient.
func (s *PostgresStore) ListAlertsForCard(ctx context.Context, q Querier, cardID, userID int64) ([]domain.SubscriptionDetail, error) {
	return s.listSubscriptions(ctx, q, `
		SELECT DISTINCT s.id, s.name, s.creator_id, s.skip_if_empty,
		       s.alert_condition, s.alert_description, s.alert_above_goal,
		       s.created_at, s.updated_at
		FROM subscriptions s
		JOIN card_links cl ON cl.subscription_id = s.id
		LEFT JOIN channels ch ON ch.subscription_id = s.id
		LEFT JOIN recipients r ON r.channel_id = ch.id
		WHERE s.alert_condition IS NOT NULL
		  AND cl.card_id = $1
		  AND (s.creator_id = $2 OR r.user_id = $2)
		ORDER BY s.name ASC
	`, cardID, userID)
}

func (s *PostgresStore) listSubscriptions(ctx context.Context, q Querier, query string, args ...any) ([]domain.SubscriptionDetail, error) {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscription
	for rows.Next() {
		var sub domain.Subscription
		err := rows.Scan(
			&sub.ID, &sub.Name, &sub.CreatorID, &sub.SkipIfEmpty,
			&sub.AlertCondition, &sub.AlertDescription, &sub.AlertAboveGoal,
			&sub.CreatedAt, &sub.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading subscriptions: %w", err)
	}

	details := make([]domain.SubscriptionDetail, 0, len(subs))
	for i := range subs {
		detail, err := s.loadDetail(ctx, q, &subs[i])
		if err != nil {
			return nil, err
		}
		details = append(details, *detail)
	}
	return details, nil
}

// DeleteSubscriptionCascade removes a subscription and all its child rows in
// the caller's transaction. Returns false when no base row existed.
func (s *PostgresStore) DeleteSubscriptionCascade(ctx context.Context, q Querier, id int64) (bool, error) {
	_, err := q.Exec(ctx, `
		DELETE FROM recipients
		WHERE channel_id IN (SELECT id FROM channels WHERE subscription_id = $1)
	`, id)
	if err != nil {
		return false, fmt.Errorf("deleting recipients: %w", err)
	}

	_, err = q.Exec(ctx, `DELETE FROM channels WHERE subscription_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting channels: %w", err)
	}

	_, err = q.Exec(ctx, `DELETE FROM card_links WHERE subscription_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting card links: %w", err)
	}

	tag, err := q.Exec(ctx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("deleting subscription: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UnsubscribeAlert removes the recipient row tying the user to the alert.
// Returns the number of rows deleted; zero means the user was not subscribed.
func (s *PostgresStore) UnsubscribeAlert(ctx context.Context, q Querier, subscriptionID, userID int64) (int64, error) {
	tag, err := q.Exec(ctx, `
		DELETE FROM recipients r
		USING channels ch, subscriptions s
		WHERE r.channel_id = ch.id
		  AND ch.subscription_id = s.id
		  AND s.id = $1
		  AND s.alert_condition IS NOT NULL
		  AND r.user_id = $2
	`, subscriptionID, userID)
	if err != nil {
		return 0, fmt.Errorf("deleting alert recipient: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats holds row counts for the dashboard.
type Stats struct {
	Pulses     int64 `json:"pulses"`
	Alerts     int64 `json:"alerts"`
	Channels   int64 `json:"channels"`
	Recipients int64 `json:"recipients"`
}

// GetStats returns aggregate counts across the notification tables.
func (s *PostgresStore) GetStats(ctx context.Context, q Querier) (*Stats, error) {
	var st Stats
	err := q.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM subscriptions WHERE alert_condition IS NULL),
			(SELECT COUNT(*) FROM subscriptions WHERE alert_condition IS NOT NULL),
			(SELECT COUNT(*) FROM channels),
			(SELECT COUNT(*) FROM recipients)
	`).Scan(&st.Pulses, &st.Alerts, &st.Channels, &st.Recipients)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	return &st, nil
}
