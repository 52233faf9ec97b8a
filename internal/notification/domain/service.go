// Package domain describes the outbound notifications raised by record
// workflows.
package domain

import (
	"context"
	"time"
)

// Service delivers notifications. Delivery failures are logged and counted,
// never returned, so a failed email cannot roll back the change it reports.
type Service interface {
	NotifyAssignment(ctx context.Context, event AssignmentEvent)
	NotifyStatusChange(ctx context.Context, event StatusChangeEvent)
	NotifyNewInquiry(ctx context.Context, event NewInquiryEvent)
	NotifyQuotationReady(ctx context.Context, event QuotationReadyEvent)
}

type AssignmentEvent struct {
	RecordType string
	RecordID   string
	Title      string
	AssigneeID string
	AssignedBy string
	DueDate    *time.Time
}

type StatusChangeEvent struct {
	RecordType string
	RecordID   string
	Title      string
	From       string
	To         string
	ChangedBy  string
	Note       string
	// RecipientIDs are user ids; the actor is never notified of their own change.
	RecipientIDs []string
}

type NewInquiryEvent struct {
	RecordID      string
	Source        string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Subject       string
	Message       string
}

type QuotationReadyEvent struct {
	RecordID      string
	CustomerName  string
	CustomerEmail string
	Description   string
	Quantity      int
	Amount        string
	Currency      string
}
