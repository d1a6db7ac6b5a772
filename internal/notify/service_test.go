package notify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/pulseboard/notifications/internal/domain"
)

// Precondition checks run before any transaction is opened, so a service with
// no store behind it is enough to exercise them.
func validationService(t *testing.T) *Service {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewService(nil, nil, logger)
}

func TestCreatePulse_Preconditions(t *testing.T) {
	svc := validationService(t)
	valid := CreatePulseRequest{
		Name:      "Weekly",
		CreatorID: 1,
		CardIDs:   []int64{5, 2, 9},
		Channels:  []domain.Channel{{ChannelType: domain.ChannelTypeEmail}},
	}

	tests := []struct {
		name   string
		mutate func(*CreatePulseRequest)
	}{
		{"empty name", func(r *CreatePulseRequest) { r.Name = "   " }},
		{"missing creator", func(r *CreatePulseRequest) { r.CreatorID = 0 }},
		{"empty card list", func(r *CreatePulseRequest) { r.CardIDs = nil }},
		{"non-positive card id", func(r *CreatePulseRequest) { r.CardIDs = []int64{5, -1} }},
		{"channel missing type", func(r *CreatePulseRequest) { r.Channels = []domain.Channel{{}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := svc.CreatePulse(context.Background(), req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestCreateAlert_Preconditions(t *testing.T) {
	svc := validationService(t)
	valid := CreateAlertRequest{
		Name:           "Goal watch",
		CreatorID:      1,
		CardID:         5,
		AlertCondition: "goal",
	}

	tests := []struct {
		name   string
		mutate func(*CreateAlertRequest)
	}{
		{"empty condition", func(r *CreateAlertRequest) { r.AlertCondition = "" }},
		{"empty name", func(r *CreateAlertRequest) { r.Name = "" }},
		{"missing card", func(r *CreateAlertRequest) { r.CardID = 0 }},
		{"channel missing type", func(r *CreateAlertRequest) { r.Channels = []domain.Channel{{ScheduleType: domain.ScheduleDaily}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := svc.CreateAlert(context.Background(), req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestUpdatePulse_Preconditions(t *testing.T) {
	svc := validationService(t)

	tests := []struct {
		name string
		req  UpdatePulseRequest
	}{
		{"zero id", UpdatePulseRequest{Name: "Weekly", CardIDs: []int64{5}}},
		{"empty name", UpdatePulseRequest{ID: 1, CardIDs: []int64{5}}},
		{"empty cards", UpdatePulseRequest{ID: 1, Name: "Weekly"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.UpdatePulse(context.Background(), tt.req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
		})
	}
}

func TestDelete_RejectsNonPositiveID(t *testing.T) {
	svc := validationService(t)
	if err := svc.Delete(context.Background(), 0); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestUnsubscribe_RejectsNonPositiveIDs(t *testing.T) {
	svc := validationService(t)
	if _, err := svc.Unsubscribe(context.Background(), 0, 7); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.Unsubscribe(context.Background(), 3, -1); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}
