package store

import (
	"context"
	"fmt"

	"github.com/pulseboard/notifications/internal/domain"
)

// ListChannels loads the subscription's channels fresh from storage, without
// recipients. This is the existing-state input to channel planning.
func (s *PostgresStore) ListChannels(ctx context.Context, q Querier, subscriptionID int64) ([]domain.Channel, error) {
	rows, err := q.Query(ctx, `
		SELECT id, subscription_id, channel_type, schedule_type, COALESCE(schedule_frame, ''), details, created_at, updated_at
		FROM channels
		WHERE subscription_id = $1
		ORDER BY channel_type
	`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("querying channels: %w", err)
	}
	defer rows.Close()

	channels := []domain.Channel{}
	for rows.Next() {
		var ch domain.Channel
		var details []byte
		err := rows.Scan(
			&ch.ID, &ch.SubscriptionID, &ch.ChannelType, &ch.ScheduleType,
			&ch.ScheduleFrame, &details, &ch.CreatedAt, &ch.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning channel: %w", err)
		}
		ch.Details, err = unmarshalDetails(details)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading channels: %w", err)
	}
	return channels, nil
}

// ApplyChannelPlan executes reconciliation decisions in the caller's
// transaction. Created and updated channels also get their recipients
// replaced with the desired set.
func (s *PostgresStore) ApplyChannelPlan(ctx context.Context, q Querier, plan *domain.ChannelPlan) error {
	for _, id := range plan.Delete {
		_, err := q.Exec(ctx, `DELETE FROM recipients WHERE channel_id = $1`, id)
		if err != nil {
			return fmt.Errorf("deleting channel recipients: %w", err)
		}
		_, err = q.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("deleting channel: %w", err)
		}
	}

	for _, ch := range plan.Create {
		details, err := marshalDetails(ch.Details)
		if err != nil {
			return err
		}
		var id int64
		err = q.QueryRow(ctx, `
			INSERT INTO channels (subscription_id, channel_type, schedule_type, schedule_frame, details)
			VALUES ($1, $2, $3, NULLIF($4, ''), $5)
			RETURNING id
		`, ch.SubscriptionID, ch.ChannelType, ch.ScheduleType, string(ch.ScheduleFrame), details).Scan(&id)
		if err != nil {
			return fmt.Errorf("inserting %s channel: %w", ch.ChannelType, err)
		}
		if err := s.replaceRecipients(ctx, q, id, ch.Recipients); err != nil {
			return err
		}
	}

	for _, ch := range plan.Update {
		details, err := marshalDetails(ch.Details)
		if err != nil {
			return err
		}
		_, err = q.Exec(ctx, `
			UPDATE channels
			SET schedule_type = $2, schedule_frame = NULLIF($3, ''), details = $4, updated_at = NOW()
			WHERE id = $1
		`, ch.ID, ch.ScheduleType, string(ch.ScheduleFrame), details)
		if err != nil {
			return fmt.Errorf("updating %s channel: %w", ch.ChannelType, err)
		}
		if err := s.replaceRecipients(ctx, q, ch.ID, ch.Recipients); err != nil {
			return err
		}
	}

	return nil
}

func (s *PostgresStore) replaceRecipients(ctx context.Context, q Querier, channelID int64, recipients []domain.Recipient) error {
	_, err := q.Exec(ctx, `DELETE FROM recipients WHERE channel_id = $1`, channelID)
	if err != nil {
		return fmt.Errorf("deleting recipients: %w", err)
	}

	for _, r := range recipients {
		if r.UserID == nil && r.Email == nil {
			continue
		}
		_, err := q.Exec(ctx, `
			INSERT INTO recipients (channel_id, user_id, email)
			VALUES ($1, $2, $3)
		`, channelID, r.UserID, r.Email)
		if err != nil {
			return fmt.Errorf("inserting recipient: %w", err)
		}
	}
	return nil
}
