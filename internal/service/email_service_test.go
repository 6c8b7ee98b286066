package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"lingoquest/internal/config"
	"lingoquest/internal/logger"
	"lingoquest/internal/models"
	"lingoquest/internal/progress"
)

type fakeSES struct {
	inputs []*sesv2.SendEmailInput
	err    error
}

func (f *fakeSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func testBadges(ids ...string) []progress.BadgeCondition {
	catalog := progress.DefaultCatalog()
	out := make([]progress.BadgeCondition, 0, len(ids))
	for _, id := range ids {
		b, _ := progress.FindBadge(catalog, id)
		out = append(out, b)
	}
	return out
}

func TestRenderBadgeEmail(t *testing.T) {
	tests := []struct {
		name        string
		learner     string
		badges      []progress.BadgeCondition
		wantSubject string
	}{
		{"single badge", "Ana", testBadges("first_lesson"), "Ana earned the First Steps badge!"},
		{"several badges", "Ana", testBadges("first_lesson", "perfect_score"), "Ana earned 2 new badges!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, htmlBody, textBody := renderBadgeEmail(tt.learner, tt.badges, "https://lingo.example.com")
			if subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", subject, tt.wantSubject)
			}
			for _, b := range tt.badges {
				if !strings.Contains(textBody, b.Name) {
					t.Errorf("text body missing %q", b.Name)
				}
			}
			if !strings.Contains(htmlBody, "https://lingo.example.com") {
				t.Error("html body missing app link")
			}
		})
	}
}

func TestRenderBadgeEmailEscapesName(t *testing.T) {
	_, htmlBody, _ := renderBadgeEmail("<b>Ana</b>", testBadges("first_lesson"), "")
	if strings.Contains(htmlBody, "<b>Ana</b>") {
		t.Error("learner name was not escaped")
	}
	if !strings.Contains(htmlBody, "&lt;b&gt;Ana&lt;/b&gt;") {
		t.Error("escaped learner name missing")
	}
}

func TestNewEmailServiceDisabled(t *testing.T) {
	svc, err := NewEmailService(context.Background(), config.EmailConfig{AWSRegion: "us-east-1"}, logger.Nop())
	if err != nil {
		t.Fatalf("NewEmailService() error = %v", err)
	}
	if svc.IsEnabled() {
		t.Error("service enabled without a sender address")
	}
	learner := &models.Learner{ID: "l1", DisplayName: "Ana", ParentEmail: "parent@example.com"}
	if err := svc.NotifyBadges(context.Background(), learner, testBadges("first_lesson")); err != nil {
		t.Errorf("NotifyBadges() on disabled service error = %v", err)
	}
}

func TestNotifyBadges(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		badges    []progress.BadgeCondition
		sendErr   error
		wantSends int
		wantErr   bool
	}{
		{"sends to parent", "parent@example.com", testBadges("first_lesson"), nil, 1, false},
		{"no parent email", "", testBadges("first_lesson"), nil, 0, false},
		{"no badges", "parent@example.com", nil, nil, 0, false},
		{"send failure", "parent@example.com", testBadges("first_lesson"), errors.New("throttled"), 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ses := &fakeSES{err: tt.sendErr}
			svc := &EmailService{
				client:    ses,
				fromEmail: "noreply@example.com",
				fromName:  "LingoQuest",
				enabled:   true,
				log:       logger.Nop(),
			}
			learner := &models.Learner{ID: "l1", DisplayName: "Ana", ParentEmail: tt.email}

			err := svc.NotifyBadges(context.Background(), learner, tt.badges)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NotifyBadges() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(ses.inputs) != tt.wantSends {
				t.Fatalf("sends = %d, want %d", len(ses.inputs), tt.wantSends)
			}
			if tt.wantSends == 0 {
				return
			}
			in := ses.inputs[0]
			if got := aws.ToString(in.FromEmailAddress); got != "LingoQuest <noreply@example.com>" {
				t.Errorf("from = %q", got)
			}
			if got := in.Destination.ToAddresses; len(got) != 1 || got[0] != tt.email {
				t.Errorf("to = %v", got)
			}
		})
	}
}
