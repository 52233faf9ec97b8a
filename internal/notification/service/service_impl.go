package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	authdomain "github.com/smallbiznis/opsdesk/internal/auth/domain"
	"github.com/smallbiznis/opsdesk/internal/config"
	"github.com/smallbiznis/opsdesk/internal/notification/domain"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	"github.com/smallbiznis/opsdesk/internal/providers/email"
	"github.com/smallbiznis/opsdesk/internal/providers/slack"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	outcomeSent    = "sent"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

type Params struct {
	fx.In

	Log     *zap.Logger
	Cfg     config.Config
	Email   email.Provider
	Users   authdomain.Service
	Slack   slack.Provider   `optional:"true"`
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	email    email.Provider
	slack    slack.Provider
	users    authdomain.Service
	metrics  *metrics.Metrics
	opsInbox string
	channel  string
}

func NewService(p Params) domain.Service {
	slackProvider := p.Slack
	if slackProvider == nil {
		slackProvider = &slack.NoOpProvider{}
	}
	return &Service{
		log:      p.Log.Named("notification.service"),
		email:    p.Email,
		slack:    slackProvider,
		users:    p.Users,
		metrics:  p.Metrics,
		opsInbox: strings.TrimSpace(p.Cfg.Email.OpsInbox),
		channel:  strings.TrimSpace(p.Cfg.Slack.Channel),
	}
}

func (s *Service) NotifyAssignment(ctx context.Context, event domain.AssignmentEvent) {
	assigneeID := strings.TrimSpace(event.AssigneeID)
	if assigneeID == "" || assigneeID == strings.TrimSpace(event.AssignedBy) {
		s.record(ctx, email.TemplateAssignment, outcomeSkipped)
		return
	}

	assignee, ok := s.lookup(ctx, assigneeID)
	if !ok {
		s.record(ctx, email.TemplateAssignment, outcomeSkipped)
		return
	}

	data := map[string]any{
		"assignee_name": assignee.DisplayName,
		"assigned_by":   s.displayName(ctx, event.AssignedBy),
		"record_type":   humanize(event.RecordType),
		"title":         event.Title,
		"record_id":     event.RecordID,
		"due_date":      "",
	}
	if event.DueDate != nil {
		data["due_date"] = event.DueDate.Format("2006-01-02")
	}

	s.send(ctx, []string{assignee.Email}, email.TemplateAssignment, data)
}

func (s *Service) NotifyStatusChange(ctx context.Context, event domain.StatusChangeEvent) {
	actor := strings.TrimSpace(event.ChangedBy)
	ids := lo.Uniq(lo.Filter(event.RecipientIDs, func(id string, _ int) bool {
		id = strings.TrimSpace(id)
		return id != "" && id != actor
	}))

	recipients := make([]string, 0, len(ids))
	for _, id := range ids {
		if user, ok := s.lookup(ctx, id); ok {
			recipients = append(recipients, user.Email)
		}
	}
	if len(recipients) == 0 {
		s.record(ctx, email.TemplateStatusChanged, outcomeSkipped)
		return
	}

	s.send(ctx, recipients, email.TemplateStatusChanged, map[string]any{
		"record_type": humanize(event.RecordType),
		"record_id":   event.RecordID,
		"title":       event.Title,
		"from":        humanize(event.From),
		"to":          humanize(event.To),
		"changed_by":  s.displayName(ctx, actor),
		"note":        event.Note,
	})
}

func (s *Service) NotifyNewInquiry(ctx context.Context, event domain.NewInquiryEvent) {
	if s.channel != "" {
		message := fmt.Sprintf("New %s inquiry from %s: %s", event.Source, event.CustomerName, event.Subject)
		if err := s.slack.PostMessage(ctx, s.channel, message); err != nil {
			s.log.Warn("slack post failed", zap.String("record_id", event.RecordID), zap.Error(err))
		}
	}

	if s.opsInbox == "" {
		s.record(ctx, email.TemplateNewInquiry, outcomeSkipped)
		return
	}

	s.send(ctx, []string{s.opsInbox}, email.TemplateNewInquiry, map[string]any{
		"record_id":       event.RecordID,
		"source":          event.Source,
		"customer_name":   event.CustomerName,
		"customer_email":  event.CustomerEmail,
		"customer_phone":  event.CustomerPhone,
		"inquiry_subject": event.Subject,
		"message":         event.Message,
	})
}

func (s *Service) NotifyQuotationReady(ctx context.Context, event domain.QuotationReadyEvent) {
	to := strings.TrimSpace(event.CustomerEmail)
	if to == "" {
		s.record(ctx, email.TemplateQuotationReady, outcomeSkipped)
		return
	}

	s.send(ctx, []string{to}, email.TemplateQuotationReady, map[string]any{
		"record_id":     event.RecordID,
		"customer_name": event.CustomerName,
		"description":   event.Description,
		"quantity":      event.Quantity,
		"amount":        event.Amount,
		"currency":      event.Currency,
	})
}

func (s *Service) send(ctx context.Context, to []string, template string, data map[string]any) {
	if err := s.email.SendTemplate(ctx, to, template, data); err != nil {
		s.log.Warn("notification failed",
			zap.String("template", template),
			zap.Any("record_id", data["record_id"]),
			zap.Error(err),
		)
		s.record(ctx, template, outcomeFailed)
		return
	}
	s.record(ctx, template, outcomeSent)
}

func (s *Service) lookup(ctx context.Context, userID string) (*authdomain.UserResponse, bool) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		s.log.Debug("notification recipient not resolved", zap.String("user_id", userID), zap.Error(err))
		return nil, false
	}
	if !user.IsActive || strings.TrimSpace(user.Email) == "" {
		return nil, false
	}
	return user, true
}

func (s *Service) displayName(ctx context.Context, userID string) string {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "OpsDesk"
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil || strings.TrimSpace(user.DisplayName) == "" {
		return "a teammate"
	}
	return user.DisplayName
}

func (s *Service) record(ctx context.Context, template, outcome string) {
	s.metrics.RecordNotification(ctx, template, outcome)
}

func humanize(value string) string {
	return strings.ReplaceAll(strings.TrimSpace(value), "_", " ")
}
