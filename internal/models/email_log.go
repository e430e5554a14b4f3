package models

import "time"

// CollectionEmailLogs holds one entry per confirmation delivery attempt.
const CollectionEmailLogs = "email_logs"

// EmailLogStatus for delivery.
const (
	EmailLogStatusSent   = "sent"
	EmailLogStatusFailed = "failed"
)

// EmailLog records one confirmation email attempt.
type EmailLog struct {
	ID             string    `json:"id"`
	AttendeeID     string    `json:"attendee_id"`
	RecipientEmail string    `json:"recipient_email"`
	Event          string    `json:"event"`
	Status         string    `json:"status"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Fields returns the stored form of the entry.
func (l *EmailLog) Fields() map[string]any {
	f := map[string]any{
		"id":              l.ID,
		"attendee_id":     l.AttendeeID,
		"recipient_email": l.RecipientEmail,
		"event":           l.Event,
		"status":          l.Status,
		"created_at":      l.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if l.ErrorMessage != "" {
		f["error_message"] = l.ErrorMessage
	}
	return f
}

// EmailLogFromFields reads a stored entry.
func EmailLogFromFields(f map[string]any) *EmailLog {
	l := &EmailLog{}
	l.ID, _ = f["id"].(string)
	l.AttendeeID, _ = IDString(f["attendee_id"])
	l.RecipientEmail, _ = f["recipient_email"].(string)
	l.Event, _ = f["event"].(string)
	l.Status, _ = f["status"].(string)
	l.ErrorMessage, _ = f["error_message"].(string)
	if s, ok := f["created_at"].(string); ok {
		l.CreatedAt, _ = time.Parse(time.RFC3339Nano, s)
	}
	return l
}
