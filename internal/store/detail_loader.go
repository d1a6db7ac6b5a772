package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pulseboard/notifications/internal/domain"
)

// loadDetail attaches creator, ordered non-archived cards, and channels with
// recipients to a fetched base row. Each collection is a separate query;
// results are assembled before returning.
func (s *PostgresStore) loadDetail(ctx context.Context, q Querier, sub *domain.Subscription) (*domain.SubscriptionDetail, error) {
	detail := &domain.SubscriptionDetail{Subscription: *sub}

	creator, err := s.getUser(ctx, q, sub.CreatorID)
	if err != nil {
		return nil, err
	}
	detail.Creator = creator

	cards, err := s.getLinkedCards(ctx, q, sub.ID)
	if err != nil {
		return nil, err
	}
	detail.Cards = cards

	channels, err := s.getChannelsWithRecipients(ctx, q, sub.ID)
	if err != nil {
		return nil, err
	}
	detail.Channels = channels

	return detail, nil
}

func (s *PostgresStore) getUser(ctx context.Context, q Querier, id int64) (*domain.User, error) {
	var u domain.User
	err := q.QueryRow(ctx, `SELECT id, email, name FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) getLinkedCards(ctx context.Context, q Querier, subscriptionID int64) ([]domain.Card, error) {
	rows, err := q.Query(ctx, `
		SELECT c.id, c.name, c.description, c.display, c.archived, c.collection_id
		FROM card_links cl
		JOIN cards c ON c.id = cl.card_id
		WHERE cl.subscription_id = $1 AND NOT c.archived
		ORDER BY cl.position
	`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("querying linked cards: %w", err)
	}
	defer rows.Close()

	cards := []domain.Card{}
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Display, &c.Archived, &c.CollectionID); err != nil {
			return nil, fmt.Errorf("scanning card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading cards: %w", err)
	}
	return cards, nil
}

func (s *PostgresStore) getChannelsWithRecipients(ctx context.Context, q Querier, subscriptionID int64) ([]domain.Channel, error) {
	channels, err := s.ListChannels(ctx, q, subscriptionID)
	if err != nil {
		return nil, err
	}
	if len(channels) == 0 {
		return channels, nil
	}

	channelIDs := make([]int64, 0, len(channels))
	for _, ch := range channels {
		channelIDs = append(channelIDs, ch.ID)
	}

	// Recipient emails are resolved here: a user-reference recipient borrows
	// the user's email so permission checks see one flat email set.
	rows, err := q.Query(ctx, `
		SELECT r.id, r.channel_id, r.user_id, COALESCE(r.email, u.email)
		FROM recipients r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.channel_id = ANY($1)
		ORDER BY r.id
	`, channelIDs)
	if err != nil {
		return nil, fmt.Errorf("querying recipients: %w", err)
	}
	defer rows.Close()

	byChannel := make(map[int64][]domain.Recipient)
	for rows.Next() {
		var r domain.Recipient
		if err := rows.Scan(&r.ID, &r.ChannelID, &r.UserID, &r.Email); err != nil {
			return nil, fmt.Errorf("scanning recipient: %w", err)
		}
		byChannel[r.ChannelID] = append(byChannel[r.ChannelID], r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading recipients: %w", err)
	}

	for i := range channels {
		if rs, ok := byChannel[channels[i].ID]; ok {
			channels[i].Recipients = rs
		} else {
			channels[i].Recipients = []domain.Recipient{}
		}
	}
	return channels, nil
}

func marshalDetails(d domain.ChannelDetails) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshaling channel details: %w", err)
	}
	return data, nil
}

func unmarshalDetails(data []byte) (domain.ChannelDetails, error) {
	var d domain.ChannelDetails
	if len(data) == 0 {
		return d, nil
	}
	if err := json.Unmarshal(data, &d); err != nil {
		return d, fmt.Errorf("unmarshaling channel details: %w", err)
	}
	return d, nil
}
