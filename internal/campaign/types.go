package campaign

import (
	"time"

	"github.com/campusreach/campaign-studio/internal/audience"
)

// Campaign statuses.
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusScheduled = "scheduled"
	StatusSent      = "sent"
	StatusDeleted   = "deleted"
)

// Campaign types. Only email is live today; the enum leaves room for the
// SMS and push channels the product roadmap names.
const (
	TypeEmail = "EMAIL"
	TypeSMS   = "SMS"
	TypePush  = "PUSH"
)

// MinScheduleHours is the minimum lead time between "now" and a scheduled
// send. Checked when the user picks a date AND re-checked at submission,
// since time passes between the two.
const MinScheduleHours = 3

// Attachment is either a newly selected file (Data set, URL empty) or a
// reference to a previously uploaded file on an existing draft (URL set).
type Attachment struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	URL      string `json:"url,omitempty"`
	Data     []byte `json:"-"`
}

// Existing reports whether the attachment references an already-uploaded
// file rather than carrying new bytes.
func (a Attachment) Existing() bool { return a.URL != "" }

// FormData is the full in-memory state of the campaign composer form.
type FormData struct {
	Name         string             `json:"name"`
	Subject      string             `json:"subject"`
	Content      string             `json:"content"` // raw editor fragment
	Audience     audience.Selection `json:"audience"`
	SendNow      bool               `json:"send_now"`
	SendAt       *time.Time         `json:"send_at,omitempty"`
	EndAt        *time.Time         `json:"end_at,omitempty"`
	Recurring    bool               `json:"recurring"`
	TimeSlots    []string           `json:"time_slots,omitempty"`
	CampaignType string             `json:"campaign_type"`
	FromName     string             `json:"from_name"`
	FromEmail    string             `json:"from_email"`
	Attachments  []Attachment       `json:"attachments,omitempty"`
}

// Campaign is the stored entity as the API persists and returns it.
// Institutions are persisted by display name, a legacy of the original
// data model; hydration resolves them back to catalog IDs.
type Campaign struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Subject      string       `json:"subject"`
	Content      string       `json:"content"`
	TargetAll    bool         `json:"target_all"`
	Institutions []string     `json:"institutions"`
	Departments  []string     `json:"departments"`
	Levels       []string     `json:"levels"`
	SendAt       *time.Time   `json:"send_at,omitempty"`
	EndAt        *time.Time   `json:"end_at,omitempty"`
	Recurring    bool         `json:"recurring"`
	TimeSlots    []string     `json:"time_slots,omitempty"`
	CampaignType string       `json:"campaign_type"`
	FromName     string       `json:"from_name"`
	FromEmail    string       `json:"from_email"`
	Status       string       `json:"status"`
	Attachments  []Attachment `json:"attachments,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// FieldError is a user-facing validation message tied to a form field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string { return e.Field + ": " + e.Message }
