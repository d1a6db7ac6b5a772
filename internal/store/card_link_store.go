package store

import (
	"context"
	"fmt"
)

// ReplaceCardLinks swaps the subscription's ordered card list for the given
// sequence: delete everything, then insert one row per id with position equal
// to its index. Atomicity comes from the caller's transaction.
func (s *PostgresStore) ReplaceCardLinks(ctx context.Context, q Querier, subscriptionID int64, cardIDs []int64) error {
	_, err := q.Exec(ctx, `DELETE FROM card_links WHERE subscription_id = $1`, subscriptionID)
	if err != nil {
		return fmt.Errorf("deleting card links: %w", err)
	}

	for i, cardID := range cardIDs {
		_, err := q.Exec(ctx, `
			INSERT INTO card_links (subscription_id, card_id, position)
			VALUES ($1, $2, $3)
		`, subscriptionID, cardID, i)
		if err != nil {
			return fmt.Errorf("inserting card link for card %d: %w", cardID, err)
		}
	}
	return nil
}

// GetCardLinkIDs returns the persisted card ids in position order, archived
// cards included — this is the raw list order, not the view.
func (s *PostgresStore) GetCardLinkIDs(ctx context.Context, q Querier, subscriptionID int64) ([]int64, error) {
	rows, err := q.Query(ctx, `
		SELECT card_id FROM card_links
		WHERE subscription_id = $1
		ORDER BY position
	`, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("querying card links: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning card link: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading card links: %w", err)
	}
	return ids, nil
}
