package notify

import (
	"context"
	"os"
	"testing"

	"github.com/pulseboard/notifications/internal/domain"
	"github.com/pulseboard/notifications/internal/store"
)

// These tests need a real Postgres; set TEST_DATABASE_URL to run them, e.g.
// postgres://localhost:5432/notifications_test?sslmode=disable
func setupIntegration(t *testing.T) (*store.PostgresStore, *Service) {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pg, err := store.NewPostgres(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	t.Cleanup(pg.Close)

	if err := pg.RunMigrations(ctx, "../../migrations"); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	_, err = pg.Pool().Exec(ctx, `
		TRUNCATE recipients, channels, card_links, subscriptions, cards, users
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}

	return pg, NewService(pg, nil, testLogger())
}

func seedUser(t *testing.T, pg *store.PostgresStore, email string) int64 {
	t.Helper()
	var id int64
	err := pg.Pool().QueryRow(context.Background(),
		`INSERT INTO users (email) VALUES ($1) RETURNING id`, email).Scan(&id)
	if err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return id
}

func seedCard(t *testing.T, pg *store.PostgresStore, name string, archived bool) int64 {
	t.Helper()
	var id int64
	err := pg.Pool().QueryRow(context.Background(),
		`INSERT INTO cards (name, archived) VALUES ($1, $2) RETURNING id`, name, archived).Scan(&id)
	if err != nil {
		t.Fatalf("failed to seed card %s: %v", name, err)
	}
	return id
}

func emailChannel(recipients ...domain.Recipient) domain.Channel {
	return domain.Channel{
		ChannelType:  domain.ChannelTypeEmail,
		ScheduleType: domain.ScheduleDaily,
		Recipients:   recipients,
	}
}

func emailRecipient(email string) domain.Recipient {
	return domain.Recipient{Email: &email}
}

func TestCreatePulse_RoundTrip(t *testing.T) {
	pg, svc := setupIntegration(t)
	ctx := context.Background()

	creator := seedUser(t, pg, "creator@example.com")
	c1 := seedCard(t, pg, "Revenue", false)
	c2 := seedCard(t, pg, "Signups", false)
	c3 := seedCard(t, pg, "Churn", false)

	created, err := svc.CreatePulse(ctx, CreatePulseRequest{
		Name:      "Weekly",
		CreatorID: creator,
		CardIDs:   []int64{c3, c1, c2}, // deliberately not insertion order
		Channels:  []domain.Channel{emailChannel(emailRecipient("a@x.com"))},
	})
	if err != nil {
		t.Fatalf("failed to create pulse: %v", err)
	}

	detail, err := pg.GetPulse(ctx, pg.Pool(), created.ID)
	if err != nil {
		t.Fatalf("failed to fetch pulse: %v", err)
	}
	if detail == nil {
		t.Fatal("created pulse not found")
	}

	gotOrder := detail.CardIDs()
	wantOrder := []int64{c3, c1, c2}
	if len(gotOrder) != len(wantOrder) {
		t.Fatalf("card order: got %v, want %v", gotOrder, wantOrder)
	}
	for i := range wantOrder {
		if gotOrder[i] != wantOrder[i] {
			t.Fatalf("card order: got %v, want %v", gotOrder, wantOrder)
		}
	}

	if len(detail.Channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(detail.Channels))
	}
	ch := detail.Channels[0]
	if ch.ChannelType != domain.ChannelTypeEmail {
		t.Errorf("channel type: got %q", ch.ChannelType)
	}
	if len(ch.Recipients) != 1 || ch.Recipients[0].Email == nil || *ch.Recipients[0].Email != "a@x.com" {
		t.Errorf("recipients: got %+v", ch.Recipients)
	}

	if detail.AlertCondition != nil {
		t.Error("pulse must not carry an alert condition")
	}
	if detail.Creator == nil || detail.Creator.Email != "creator@example.com" {
		t.Errorf("creator not attached: %+v", detail.Creator)
	}
}

func TestCreatePulse_DuplicateChannelTypeDropped(t *testing.T) {
	pg, svc := setupIntegration(t)
	ctx := context.Background()

	creator := seedUser(t, pg, "creator@example.com")
	card := seedCard(t, pg, "Revenue", false)

	created, err := svc.CreatePulse(ctx, CreatePulseRequest{
		Name:      "Doubled",
		CreatorID: creator,
		CardIDs:   []int64{card},
		Channels: []domain.Channel{
			emailChannel(emailRecipient("first@x.com")),
			emailChannel(emailRecipient("second@x.com")),
		},
	})
	if err != nil {
		t.Fatalf("failed to create pulse: %v", err)
	}

	if len(created.Channels) != 1 {
		t.Fatalf("expected 1 channel after dedup, got %d", len(created.Channels))
	}
	rs := created.Channels[0].Recipients
	if len(rs) != 1 || *rs[0].Email != "first@x.com" {
		t.Errorf("first duplicate should win, got %+v", rs)
	}
}

func TestReplaceCardLinks_Idempotent(t *testing.T) {
	pg, svc := setupIntegration(t)
	ctx := context.Background()

	creator := seedUser(t, pg, "creator@example.com")
	c1 := seedCard(t, pg, "Revenue", false)
	c2 := seedCard(t, pg, "Signups", false)

	created, err := svc.CreatePulse(ctx, CreatePulseRequest{
		Name:      "Weekly",
		CreatorID: creator,
		CardIDs:   []int64{c2, c1},
	})
	if err != nil {
		t.Fatalf("failed to create pulse: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := pg.ReplaceCardLinks(ctx, pg.Pool(), created.ID, []int64{c2, c1}); err != nil {
			t.Fatalf("replace %d failed: %v", i+1, err)
		}
	}

	ids, err := pg.GetCardLinkIDs(ctx, pg.Pool(), created.ID)
	if err != nil {
		t.Fatalf("failed to read card links: %v", err)
	}
	if len(ids) != 2 || ids[0] != c2 || ids[1] != c1 {
		t.Errorf("positions after repeated replace: got %v, want [%d %d]", ids, c2, c1)
	}
}

func TestUpdatePulse_ConvergesChannels(t *testing.T) {
	pg, svc := setupIntegration(t)
	ctx := context.Background()

	creator := seedUser(t, pg, "creator@example.com")
	card := seedCard(t, pg, "Revenue", false)

	created, err := svc.CreatePulse(ctx, CreatePulseRequest{
		Name:      "Weekly",
		CreatorID: creator,
		CardIDs:   []int64{card},
		Channels:  []domain.Channel{emailChannel(emailRecipient("a@x.com"))},
	})
	if err != nil {
		t.Fatalf("failed to create pulse: %v", err)
	}

	updated, err := svc.UpdatePulse(ctx, UpdatePulseRequest{
		ID:      created.ID,
		Name:    "Weekly v2",
		CardIDs: []int64{card},
		Channels: []domain.Channel{{
			ChannelType:  domain.ChannelTypeSlack,
			ScheduleType: domain.ScheduleWeekly,
			Details:      domain.ChannelDetails{Channel: "#reports"},
		}},
	})
	if err != nil {
		t.Fatalf("failed to update pulse: %v", err)
	}

	if updated.Name != "Weekly v2" {
		t.Errorf("name: got %q", updated.Name)
	}
	if len(updated.Channels) != 1 {
		t.Fatalf("expected 1 channel after convergence, got %d", len(updated.Channels))
	}
	if updated.Channels[0].ChannelType != domain.ChannelTypeSlack {
		t.Errorf("channel type: got %q, want slack", updated.Channels[0].ChannelType)
	}

	// The email channel's recipients must be gone with it.
	var recipientCount int64
	err = pg.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM recipients`).Scan(&recipientCount)
	if err != nil {
		t.Fatalf("failed to count recipients: %v", err)
	}
	if recipientCount != 0 {
		t.Errorf("expected 0 recipients after email channel removal, got %d", recipientCount)
	}
}

func TestCreateAlert_PromotesCardAndForcesSkipIfEmpty(t *testing.T) {
	pg, svc := setupIntegration(t)
	ctx := context.Background()

	creator := seedUser(t, pg, "creator@example.com")
	card := seedCard(t, pg, "Revenue", false)

	view, err := svc.CreateAlert(ctx, CreateAlertRequest{
		Name:           "Goal watch",
		CreatorID:      creator,
		CardID:         card,
		AlertCondition: "goal",
		Channels:       []domain.Channel{emailChannel(emailRecipient("a@x.com"))},
	})
	if err != nil {
		t.Fatalf("failed to create alert: %v", err)
	}

	if !view.SkipIfEmpty {
		t.Error("alerts must force skip_if_empty")
	}
	if view.Card == nil || view.Card.ID != card {
		t.Errorf("promoted card: got %+v, want id %d", view.Card, card)
	}
	if view.AlertCondition != "goal" {
		t.Errorf("alert condition: got %q", view.AlertCondition)
	}
}

func TestDiscriminatorExclusivity(t *testing.T) {
	pg, svc := setupIntegration(t)
	ctx := context.Background()

	creator := seedUser(t, pg, "creator@example.com")
	card := seedCard(t, pg, "Revenue", false)

	pulse, err := svc.CreatePulse(ctx, CreatePulseRequest{
		Name: "Weekly", CreatorID: creator, CardIDs: []int64{card},
	})
	if err != nil {
		t.Fatalf("failed to create pulse: %v", err)
	}
	alert, err := svc.CreateAlert(ctx, CreateAlertRequest{
		Name: "Goal watch", CreatorID: creator, CardID: card, AlertCondition: "rows",
	})
	if err != nil {
		t.Fatalf("failed to create alert: %v", err)
	}

	for _, id := range []int64{pulse.ID, alert.ID} {
		asPulse, err := pg.GetPulse(ctx, pg.Pool(), id)
		if err != nil {
			t.Fatalf("GetPulse(%d): %v", id, err)
		}
		asAlert, err := pg.GetAlert(ctx, pg.Pool(), id)
		if err != nil {
			t.Fatalf("GetAlert(%d): %v", id, err)
		}
		if asPulse != nil && asAlert != nil {
			t.Errorf("id %d visible under both views", id)
		}
		if asPulse == nil && asAlert == nil {
			t.Errorf("id %d visible under neither view", id)
		}
	}

	// The undiscriminated fetch sees both.
	for _, id := range []int64{pulse.ID, alert.ID} {
		either, err := pg.GetNotification(ctx, pg.Pool(), id)
		if err != nil {
			t.Fatalf("GetNotification(%d): %v", id, err)
		}
		if either == nil {
			t.Errorf("GetNotification(%d) found nothing", id)
		}
	}
}

func TestDelete_CascadesChildren(t *testing.T) {
	pg, svc := setupIntegration(t)
	ctx := context.Background()

	creator := seedUser(t, pg, "creator@example.com")
	c1 := seedCard(t, pg, "Revenue", false)
	c2 := seedCard(t, pg, "Signups", false)

	created, err := svc.CreatePulse(ctx, CreatePulseRequest{
		Name:      "Weekly",
		CreatorID: creator,
		CardIDs:   []int64{c1, c2},
		Channels: []domain.Channel{
			emailChannel(emailRecipient("a@x.com"), emailRecipient("b@x.com")),
			{ChannelType: domain.ChannelTypeSlack, Details: domain.ChannelDetails{Channel: "#reports"}},
		},
	})
	if err != nil {
		t.Fatalf("failed to create pulse: %v", err)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("failed to delete: %v", err)
	}

	tables := []string{"card_links", "channels"}
	for _, table := range tables {
		var count int64
		err := pg.Pool().QueryRow(ctx,
			`SELECT COUNT(*) FROM `+table+` WHERE subscription_id = $1`, created.ID).Scan(&count)
		if err != nil {
			t.Fatalf("failed to count %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("%s: expected 0 rows after delete, got %d", table, count)
		}
	}

	var recipients int64
	if err := pg.Pool().QueryRow(ctx, `SELECT COUNT(*) FROM recipients`).Scan(&recipients); err != nil {
		t.Fatalf("failed to count recipients: %v", err)
	}
	if recipients != 0 {
		t.Errorf("recipients: expected 0 rows after delete, got %d", recipients)
	}

	if err := svc.Delete(ctx, created.ID); err != ErrNotFound {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestUnsubscribe(t *testing.T) {
	pg, svc := setupIntegration(t)
	ctx := context.Background()

	creator := seedUser(t, pg, "creator@example.com")
	subscriber := seedUser(t, pg, "watcher@example.com")
	card := seedCard(t, pg, "Revenue", false)

	alert, err := svc.CreateAlert(ctx, CreateAlertRequest{
		Name:           "Goal watch",
		CreatorID:      creator,
		CardID:         card,
		AlertCondition: "goal",
		Channels: []domain.Channel{
			emailChannel(domain.Recipient{UserID: &subscriber}, emailRecipient("other@x.com")),
		},
	})
	if err != nil {
		t.Fatalf("failed to create alert: %v", err)
	}

	// No matching recipient: zero count, nothing else changes.
	count, err := svc.Unsubscribe(ctx, alert.ID, creator)
	if err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected count 0 for non-subscriber, got %d", count)
	}

	count, err = svc.Unsubscribe(ctx, alert.ID, subscriber)
	if err != nil {
		t.Fatalf("unsubscribe failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}

	detail, err := pg.GetAlert(ctx, pg.Pool(), alert.ID)
	if err != nil {
		t.Fatalf("failed to fetch alert: %v", err)
	}
	if len(detail.Channels) != 1 || len(detail.Channels[0].Recipients) != 1 {
		t.Fatalf("other recipients should survive: %+v", detail.Channels)
	}
	if detail.Channels[0].Recipients[0].Email == nil || *detail.Channels[0].Recipients[0].Email != "other@x.com" {
		t.Errorf("wrong recipient removed: %+v", detail.Channels[0].Recipients)
	}
}

func TestListAlertsForCard_Visibility(t *testing.T) {
	pg, svc := setupIntegration(t)
	ctx := context.Background()

	owner := seedUser(t, pg, "owner@example.com")
	watcher := seedUser(t, pg, "watcher@example.com")
	stranger := seedUser(t, pg, "stranger@example.com")
	card := seedCard(t, pg, "Revenue", false)

	_, err := svc.CreateAlert(ctx, CreateAlertRequest{
		Name:           "Owner's alert",
		CreatorID:      owner,
		CardID:         card,
		AlertCondition: "rows",
		Channels: []domain.Channel{
			emailChannel(domain.Recipient{UserID: &watcher}),
		},
	})
	if err != nil {
		t.Fatalf("failed to create alert: %v", err)
	}

	tests := []struct {
		name   string
		userID int64
		want   int
	}{
		{"creator sees it", owner, 1},
		{"recipient sees it", watcher, 1},
		{"stranger does not", stranger, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts, err := pg.ListAlertsForCard(ctx, pg.Pool(), card, tt.userID)
			if err != nil {
				t.Fatalf("failed to list alerts: %v", err)
			}
			if len(alerts) != tt.want {
				t.Errorf("got %d alerts, want %d", len(alerts), tt.want)
			}
		})
	}
}

func TestListPulses_OrderedByName(t *testing.T) {
	pg, svc := setupIntegration(t)
	ctx := context.Background()

	creator := seedUser(t, pg, "creator@example.com")
	card := seedCard(t, pg, "Revenue", false)

	for _, name := range []string{"Zulu", "Alpha", "Mike"} {
		_, err := svc.CreatePulse(ctx, CreatePulseRequest{
			Name: name, CreatorID: creator, CardIDs: []int64{card},
		})
		if err != nil {
			t.Fatalf("failed to create pulse %s: %v", name, err)
		}
	}

	pulses, err := pg.ListPulses(ctx, pg.Pool())
	if err != nil {
		t.Fatalf("failed to list pulses: %v", err)
	}
	if len(pulses) != 3 {
		t.Fatalf("expected 3 pulses, got %d", len(pulses))
	}
	want := []string{"Alpha", "Mike", "Zulu"}
	for i, p := range pulses {
		if p.Name != want[i] {
			t.Errorf("position %d: got %q, want %q", i, p.Name, want[i])
		}
	}
}

func TestViews_ExcludeArchivedCards(t *testing.T) {
	pg, svc := setupIntegration(t)
	ctx := context.Background()

	creator := seedUser(t, pg, "creator@example.com")
	live := seedCard(t, pg, "Revenue", false)
	archived := seedCard(t, pg, "Old metric", true)

	created, err := svc.CreatePulse(ctx, CreatePulseRequest{
		Name: "Weekly", CreatorID: creator, CardIDs: []int64{archived, live},
	})
	if err != nil {
		t.Fatalf("failed to create pulse: %v", err)
	}

	if len(created.Cards) != 1 || created.Cards[0].ID != live {
		t.Errorf("archived card should be filtered from the view: %+v", created.Cards)
	}

	// The raw link order still contains both rows.
	ids, err := pg.GetCardLinkIDs(ctx, pg.Pool(), created.ID)
	if err != nil {
		t.Fatalf("failed to read card links: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 persisted links, got %v", ids)
	}
}
