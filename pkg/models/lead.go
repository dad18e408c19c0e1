package models

import "time"

// NoteAuthorSystem attributes audit notes written by automation.
const NoteAuthorSystem = "system"

// Lead represents a contact being advanced through outreach flows.
type Lead struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Phone         string         `json:"phone"`
	Email         string         `json:"email,omitempty"`
	StageID       string         `json:"stage_id,omitempty"`
	Fields        map[string]any `json:"fields,omitempty"`
	LastContactAt *time.Time     `json:"last_contact_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Field resolves an attribute by name. Built-in columns take precedence over custom fields.
func (l *Lead) Field(name string) (any, bool) {
	switch name {
	case "id":
		return l.ID, true
	case "name":
		return l.Name, true
	case "phone":
		return l.Phone, true
	case "email":
		return l.Email, true
	case "stage_id":
		return l.StageID, true
	}

	if l.Fields == nil {
		return nil, false
	}

	value, ok := l.Fields[name]

	return value, ok
}

// SetField overwrites one attribute. Built-in string columns accept string values only.
func (l *Lead) SetField(name string, value any) {
	if str, ok := value.(string); ok {
		switch name {
		case "name":
			l.Name = str

			return
		case "phone":
			l.Phone = str

			return
		case "email":
			l.Email = str

			return
		case "stage_id":
			l.StageID = str

			return
		}
	}

	if l.Fields == nil {
		l.Fields = make(map[string]any)
	}

	l.Fields[name] = value
}

// LeadTag associates a lead with a tag.
type LeadTag struct {
	LeadID    string    `json:"lead_id"`
	TagID     string    `json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CallbackStatus represents the state of a manual callback entry.
type CallbackStatus string

const (
	CallbackStatusPending CallbackStatus = "pending"
	CallbackStatusDone    CallbackStatus = "done"
)

// Callback priorities.
const (
	CallbackPriorityLow    = "low"
	CallbackPriorityMedium = "medium"
	CallbackPriorityHigh   = "high"
)

// CallbackEntry is a lead waiting in the manual-callback queue.
type CallbackEntry struct {
	ID          string         `json:"id"`
	LeadID      string         `json:"lead_id"`
	Priority    string         `json:"priority"`
	Notes       string         `json:"notes,omitempty"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	Status      CallbackStatus `json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Note is an append-only audit entry on a lead.
type Note struct {
	ID        string    `json:"id"`
	LeadID    string    `json:"lead_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}
