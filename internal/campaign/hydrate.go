package campaign

import (
	"log"
	"strings"

	"github.com/campusreach/campaign-studio/internal/audience"
	"github.com/campusreach/campaign-studio/internal/mailer"
)

// Hydration states. Transitions are driven only by draft-ID changes and
// explicit user edits, never by incidental re-reads.
type HydrationState int

const (
	StateEmpty HydrationState = iota
	StateLoading
	StateHydrated
	StateDirty
)

func (s HydrationState) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoading:
		return "loading"
	case StateHydrated:
		return "hydrated"
	case StateDirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// Hydrator loads a stored campaign into editable form state exactly once
// per draft ID. Repeated Hydrate calls for the same draft are no-ops, so
// callers can invoke it on every refresh without re-running extraction.
type Hydrator struct {
	state   HydrationState
	draftID string
	form    FormData
	pruned  []string
}

// NewHydrator returns a hydrator in the empty state with a blank form.
func NewHydrator() *Hydrator {
	return &Hydrator{state: StateEmpty, form: FormData{CampaignType: TypeEmail}}
}

// State returns the current hydration state.
func (h *Hydrator) State() HydrationState { return h.state }

// Form returns the current form data.
func (h *Hydrator) Form() FormData { return h.form }

// PrunedSelections returns the stored department/level values that were
// dropped during the last hydration because the catalog no longer offers
// them. Surfaced as a warning so stale targeting is never submitted
// silently.
func (h *Hydrator) PrunedSelections() []string { return h.pruned }

// Hydrate loads the stored campaign into the form. It is idempotent per
// draft ID: hydrating the same ID again returns false and leaves the form
// untouched, including local edits made since. A different ID restarts
// hydration from scratch.
func (h *Hydrator) Hydrate(c Campaign, catalog []audience.Institution) bool {
	if h.draftID == c.ID && h.state != StateEmpty {
		return false
	}

	h.draftID = c.ID
	h.state = StateLoading

	// Stored content may be a raw draft fragment or a fully wrapped
	// document from an earlier send; Extract handles both (a raw fragment
	// matches no chrome, so drafts pass through the fallback unchanged
	// only when they look wrapped; plain fragments are used as-is).
	content := c.Content
	if looksWrapped(content) {
		content = mailer.Extract(content)
	}

	// Stored institutions are display names; resolve them back to IDs.
	// Unmatched names are dropped rather than failing hydration.
	ids := audience.ResolveNames(c.Institutions, catalog)
	if len(ids) < len(c.Institutions) {
		log.Printf("campaign %s: %d of %d stored institutions no longer in catalog",
			c.ID, len(c.Institutions)-len(ids), len(c.Institutions))
	}

	sel := audience.Selection{
		TargetAll:      c.TargetAll,
		InstitutionIDs: ids,
		Departments:    c.Departments,
		Levels:         c.Levels,
	}
	opts := audience.Resolve(ids, catalog)
	sel, pruned := audience.Prune(sel, opts)
	if len(pruned) > 0 {
		log.Printf("campaign %s: pruned stale selections no longer offered by catalog: %v", c.ID, pruned)
	}
	h.pruned = pruned

	h.form = FormData{
		Name:         c.Name,
		Subject:      c.Subject,
		Content:      content,
		Audience:     sel,
		SendNow:      c.SendAt == nil,
		SendAt:       c.SendAt,
		EndAt:        c.EndAt,
		Recurring:    c.Recurring,
		TimeSlots:    c.TimeSlots,
		CampaignType: c.CampaignType,
		FromName:     c.FromName,
		FromEmail:    c.FromEmail,
		Attachments:  c.Attachments,
	}
	if h.form.CampaignType == "" {
		h.form.CampaignType = TypeEmail
	}

	h.state = StateHydrated
	return true
}

// Edit applies a user mutation to the form and marks it dirty.
func (h *Hydrator) Edit(mutate func(*FormData)) {
	mutate(&h.form)
	h.state = StateDirty
}

// SetInstitutions replaces the institution selection. Changing the parent
// selection always resets the dependent department/level selections to
// empty: the dependent filters start over rather than being pruned
// incrementally.
func (h *Hydrator) SetInstitutions(ids []string) {
	h.Edit(func(f *FormData) {
		f.Audience.InstitutionIDs = ids
		f.Audience.Departments = []string{}
		f.Audience.Levels = []string{}
	})
}

// Reset returns the hydrator to the empty state with a blank form, e.g.
// on navigation away or after a successful submission.
func (h *Hydrator) Reset() {
	*h = *NewHydrator()
}

// looksWrapped reports whether stored content is a full mailer document
// rather than a bare editor fragment.
func looksWrapped(content string) bool {
	head := content
	if len(head) > 512 {
		head = head[:512]
	}
	head = strings.ToLower(head)
	return strings.Contains(head, "<!doctype") || strings.Contains(head, "<html")
}
