// Package campaign holds the composer form model: validation, draft
// hydration, and submission payload assembly.
package campaign

import (
	"fmt"
	"strings"
	"time"
)

// Validate runs every local check against the form. Validation is cheap
// and happens before content wrapping or any network call; all failures
// are collected so the user sees them at once rather than one per attempt.
// now is passed in rather than read from the clock so submission-time
// re-validation is honest about when it ran.
func Validate(f FormData, now time.Time) []FieldError {
	var errs []FieldError

	if strings.TrimSpace(f.Name) == "" {
		errs = append(errs, FieldError{Field: "name", Message: "campaign name is required"})
	}
	if strings.TrimSpace(f.Subject) == "" {
		errs = append(errs, FieldError{Field: "subject", Message: "subject is required"})
	}
	if EmptyContent(f.Content) {
		errs = append(errs, FieldError{Field: "content", Message: "campaign content is required"})
	}

	if !f.Audience.TargetAll && len(f.Audience.InstitutionIDs) == 0 {
		errs = append(errs, FieldError{Field: "audience", Message: "select at least one institution or target all"})
	}
	// Dependent selections require a parent institution selection.
	if !f.Audience.TargetAll && len(f.Audience.InstitutionIDs) == 0 &&
		(len(f.Audience.Departments) > 0 || len(f.Audience.Levels) > 0) {
		errs = append(errs, FieldError{Field: "audience", Message: "departments and levels require an institution selection"})
	}

	if !f.SendNow && f.SendAt == nil {
		errs = append(errs, FieldError{Field: "send_at", Message: "choose a send time or select send now"})
	}
	if f.SendAt != nil {
		minSendAt := now.Add(MinScheduleHours * time.Hour)
		if f.SendAt.Before(minSendAt) {
			errs = append(errs, FieldError{
				Field:   "send_at",
				Message: fmt.Sprintf("scheduled time must be at least %d hours from now", MinScheduleHours),
			})
		}
	}
	if f.EndAt != nil {
		if f.SendAt == nil {
			errs = append(errs, FieldError{Field: "end_at", Message: "end date requires a scheduled send time"})
		} else if !f.EndAt.After(*f.SendAt) {
			errs = append(errs, FieldError{Field: "end_at", Message: "end date must be after the send time"})
		}
	}

	// recurring == true iff end date is set
	if f.Recurring && f.EndAt == nil {
		errs = append(errs, FieldError{Field: "recurring", Message: "recurring campaigns need an end date"})
	}
	if !f.Recurring && f.EndAt != nil {
		errs = append(errs, FieldError{Field: "recurring", Message: "an end date is only valid for recurring campaigns"})
	}
	if f.Recurring && len(f.TimeSlots) == 0 {
		errs = append(errs, FieldError{Field: "time_slots", Message: "recurring campaigns need at least one time slot"})
	}

	return errs
}

// EmptyContent treats the editor's empty-document placeholders as empty.
func EmptyContent(content string) bool {
	c := strings.TrimSpace(content)
	switch c {
	case "", "<p></p>", "<p><br></p>", "<p><br/></p>":
		return true
	}
	return false
}
