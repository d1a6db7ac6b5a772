package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func strPtr(s string) *string { return &s }

func testDetail(alert bool) *SubscriptionDetail {
	sub := Subscription{
		ID:          7,
		Name:        "Weekly",
		CreatorID:   3,
		SkipIfEmpty: true,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if alert {
		sub.AlertCondition = strPtr("rows")
		sub.AlertDescription = strPtr("fires when rows appear")
	}
	return &SubscriptionDetail{
		Subscription: sub,
		Creator:      &User{ID: 3, Email: "creator@example.com"},
		Cards: []Card{
			{ID: 5, Name: "Revenue", Display: "line"},
			{ID: 2, Name: "Signups", Display: "bar"},
		},
		Channels: []Channel{
			{
				ID:           11,
				ChannelType:  ChannelTypeEmail,
				ScheduleType: ScheduleDaily,
				Details:      ChannelDetails{Emails: []string{"a@x.com"}},
				Recipients: []Recipient{
					{ID: 1, ChannelID: 11, Email: strPtr("a@x.com")},
				},
			},
		},
	}
}

func TestProjectPulse_StripsAlertFields(t *testing.T) {
	d := testDetail(false)
	view := ProjectPulse(d)

	data, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("failed to marshal view: %v", err)
	}
	for _, field := range []string{"alert_condition", "alert_description", "alert_above_goal"} {
		if strings.Contains(string(data), field) {
			t.Errorf("pulse view should not contain %q: %s", field, data)
		}
	}

	if len(view.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(view.Cards))
	}
	if view.Cards[0].ID != 5 || view.Cards[1].ID != 2 {
		t.Errorf("card order not preserved: %+v", view.Cards)
	}
}

func TestProjectPulse_ScrubsDetailEmails(t *testing.T) {
	view := ProjectPulse(testDetail(false))

	if len(view.Channels) != 1 {
		t.Fatalf("expected 1 channel, got %d", len(view.Channels))
	}
	if view.Channels[0].Details.Emails != nil {
		t.Errorf("details.emails should be scrubbed on read, got %v", view.Channels[0].Details.Emails)
	}
	if len(view.Channels[0].Recipients) != 1 {
		t.Errorf("recipients should survive projection, got %d", len(view.Channels[0].Recipients))
	}
}

func TestProjectPulse_DoesNotMutateDetail(t *testing.T) {
	d := testDetail(false)
	ProjectPulse(d)

	if d.Channels[0].Details.Emails == nil {
		t.Error("projection must not mutate the loaded channel details")
	}
}

func TestProjectAlert_PromotesSingleCard(t *testing.T) {
	d := testDetail(true)
	d.Cards = d.Cards[:1]

	view, err := ProjectAlert(d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if view.Card == nil || view.Card.ID != 5 {
		t.Fatalf("expected promoted card 5, got %+v", view.Card)
	}
	if view.AlertCondition != "rows" {
		t.Errorf("expected alert condition %q, got %q", "rows", view.AlertCondition)
	}

	data, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("failed to marshal view: %v", err)
	}
	if strings.Contains(string(data), `"cards"`) {
		t.Errorf("alert view should not contain a cards collection: %s", data)
	}
}

func TestProjectAlert_RequiresCondition(t *testing.T) {
	if _, err := ProjectAlert(testDetail(false)); err != ErrNotAnAlert {
		t.Fatalf("expected ErrNotAnAlert, got %v", err)
	}
}

func TestHasRecipientEmail(t *testing.T) {
	d := testDetail(false)

	tests := []struct {
		name  string
		email string
		want  bool
	}{
		{"exact match", "a@x.com", true},
		{"case insensitive", "A@X.COM", true},
		{"no match", "b@x.com", false},
		{"empty email", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.HasRecipientEmail(tt.email); got != tt.want {
				t.Errorf("HasRecipientEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}
