// Package perms aggregates per-card permissions into subscription-level
// read/write decisions. Card permission objects and the full-permissions
// check itself belong to external subsystems and are consumed through the
// CardPermissions and Gate interfaces.
package perms

import (
	"context"
	"fmt"
	"sort"

	"github.com/pulseboard/notifications/internal/domain"
)

type Mode string

const (
	ModeRead  Mode = "read"
	ModeWrite Mode = "write"
)

// CardPermissions supplies the permission-object set of a single card.
type CardPermissions interface {
	PermissionObjects(card domain.Card, mode Mode) []string
}

// Gate evaluates whether a principal holds full permissions on an object set.
type Gate interface {
	HasFullPermissions(ctx context.Context, mode Mode, objects []string, p domain.Principal) (bool, error)
}

type Aggregator struct {
	cards CardPermissions
	gate  Gate
}

func NewAggregator(cards CardPermissions, gate Gate) *Aggregator {
	return &Aggregator{cards: cards, gate: gate}
}

// PermissionObjects returns the sorted union of permission objects over every
// card linked to the subscription. A subscription with no cards yields an
// empty set.
func (a *Aggregator) PermissionObjects(d *domain.SubscriptionDetail, mode Mode) []string {
	set := make(map[string]struct{})
	for _, card := range d.Cards {
		for _, obj := range a.cards.PermissionObjects(card, mode) {
			set[obj] = struct{}{}
		}
	}
	objects := make([]string, 0, len(set))
	for obj := range set {
		objects = append(objects, obj)
	}
	sort.Strings(objects)
	return objects
}

// CanRead grants access when the principal holds full read permissions on the
// aggregated object set, or failing that, when the principal's email is among
// the subscription's recipient emails — a delivery recipient may see that the
// subscription exists even without data permissions.
func (a *Aggregator) CanRead(ctx context.Context, d *domain.SubscriptionDetail, p domain.Principal) (bool, error) {
	ok, err := a.gate.HasFullPermissions(ctx, ModeRead, a.PermissionObjects(d, ModeRead), p)
	if err != nil {
		return false, fmt.Errorf("checking read permissions: %w", err)
	}
	if ok {
		return true, nil
	}
	return d.HasRecipientEmail(p.Email), nil
}

// CanWrite requires full write permissions. Recipient membership never grants
// write.
func (a *Aggregator) CanWrite(ctx context.Context, d *domain.SubscriptionDetail, p domain.Principal) (bool, error) {
	ok, err := a.gate.HasFullPermissions(ctx, ModeWrite, a.PermissionObjects(d, ModeWrite), p)
	if err != nil {
		return false, fmt.Errorf("checking write permissions: %w", err)
	}
	return ok, nil
}
