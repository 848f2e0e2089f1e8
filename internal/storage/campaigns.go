package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusreach/campaign-studio/internal/campaign"
)

// ListParams filters and paginates the campaign list.
type ListParams struct {
	Status string
	Search string
	Limit  int
	Offset int
}

// CampaignSummary is the list-view projection of a campaign.
type CampaignSummary struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Subject      string     `json:"subject"`
	Status       string     `json:"status"`
	CampaignType string     `json:"campaign_type"`
	SendAt       *time.Time `json:"send_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// CreateCampaign inserts a new campaign and returns its generated ID.
func (s *Store) CreateCampaign(ctx context.Context, c campaign.Campaign) (string, error) {
	id := uuid.New().String()
	if c.Status == "" {
		c.Status = campaign.StatusDraft
	}
	if c.CampaignType == "" {
		c.CampaignType = campaign.TypeEmail
	}

	institutions, departments, levels, timeSlots, err := encodeLists(c)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO campaigns
			(id, name, subject, content, target_all, institutions, departments, levels,
			 send_at, end_at, recurring, time_slots, campaign_type, from_name, from_email, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, id, c.Name, c.Subject, c.Content, c.TargetAll, institutions, departments, levels,
		nullableTime(c.SendAt), nullableTime(c.EndAt), c.Recurring, timeSlots,
		c.CampaignType, c.FromName, c.FromEmail, c.Status)
	if err != nil {
		return "", fmt.Errorf("inserting campaign: %w", err)
	}
	return id, nil
}

// GetCampaign fetches a single campaign with its attachments.
func (s *Store) GetCampaign(ctx context.Context, id string) (*campaign.Campaign, error) {
	var c campaign.Campaign
	var institutions, departments, levels, timeSlots []byte
	var sendAt, endAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, subject, content, target_all,
		       institutions::text, departments::text, levels::text,
		       send_at, end_at, recurring, time_slots::text,
		       campaign_type, from_name, from_email, status, created_at, updated_at
		FROM campaigns
		WHERE id = $1 AND status != 'deleted'
	`, id).Scan(
		&c.ID, &c.Name, &c.Subject, &c.Content, &c.TargetAll,
		&institutions, &departments, &levels,
		&sendAt, &endAt, &c.Recurring, &timeSlots,
		&c.CampaignType, &c.FromName, &c.FromEmail, &c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching campaign %s: %w", id, err)
	}

	decodeList(institutions, &c.Institutions)
	decodeList(departments, &c.Departments)
	decodeList(levels, &c.Levels)
	decodeList(timeSlots, &c.TimeSlots)
	if sendAt.Valid {
		c.SendAt = &sendAt.Time
	}
	if endAt.Valid {
		c.EndAt = &endAt.Time
	}

	attachments, err := s.listAttachments(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Attachments = attachments
	return &c, nil
}

// ListCampaigns returns a page of campaign summaries plus the total count
// for the same filters.
func (s *Store) ListCampaigns(ctx context.Context, p ListParams) ([]CampaignSummary, int64, error) {
	where := []string{"status != 'deleted'"}
	args := []interface{}{}

	if p.Status != "" {
		args = append(args, p.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if p.Search != "" {
		args = append(args, "%"+p.Search+"%")
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR subject ILIKE $%d)", len(args), len(args)))
	}
	whereClause := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM campaigns"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("counting campaigns: %w", err)
	}

	query := `
		SELECT id, name, subject, status, campaign_type, send_at, created_at, updated_at
		FROM campaigns` + whereClause + `
		ORDER BY created_at DESC`
	args = append(args, p.Limit, p.Offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("listing campaigns: %w", err)
	}
	defer rows.Close()

	summaries := []CampaignSummary{}
	for rows.Next() {
		var cs CampaignSummary
		var sendAt sql.NullTime
		if err := rows.Scan(&cs.ID, &cs.Name, &cs.Subject, &cs.Status, &cs.CampaignType,
			&sendAt, &cs.CreatedAt, &cs.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scanning campaign row: %w", err)
		}
		if sendAt.Valid {
			cs.SendAt = &sendAt.Time
		}
		summaries = append(summaries, cs)
	}
	return summaries, total, rows.Err()
}

// UpdateDraft overwrites an editable campaign's fields. Only draft and
// scheduled campaigns may be updated.
func (s *Store) UpdateDraft(ctx context.Context, id string, c campaign.Campaign) error {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM campaigns WHERE id = $1 AND status != 'deleted'`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking campaign %s: %w", id, err)
	}
	if status != campaign.StatusDraft && status != campaign.StatusScheduled {
		return fmt.Errorf("%w: campaign is %s", ErrNotEditable, status)
	}

	institutions, departments, levels, timeSlots, err := encodeLists(c)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE campaigns SET
			name = $2, subject = $3, content = $4, target_all = $5,
			institutions = $6, departments = $7, levels = $8,
			send_at = $9, end_at = $10, recurring = $11, time_slots = $12,
			campaign_type = $13, from_name = $14, from_email = $15,
			updated_at = NOW()
		WHERE id = $1
	`, id, c.Name, c.Subject, c.Content, c.TargetAll,
		institutions, departments, levels,
		nullableTime(c.SendAt), nullableTime(c.EndAt), c.Recurring, timeSlots,
		c.CampaignType, c.FromName, c.FromEmail)
	if err != nil {
		return fmt.Errorf("updating campaign %s: %w", id, err)
	}
	return nil
}

// SetStatus transitions a campaign's lifecycle status.
func (s *Store) SetStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE campaigns SET status = $2, updated_at = NOW() WHERE id = $1 AND status != 'deleted'`,
		id, status)
	if err != nil {
		return fmt.Errorf("setting campaign %s status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCampaign soft-deletes a campaign.
func (s *Store) DeleteCampaign(ctx context.Context, id string) error {
	return s.SetStatus(ctx, id, campaign.StatusDeleted)
}

// AddAttachment records an uploaded attachment against a campaign.
func (s *Store) AddAttachment(ctx context.Context, campaignID string, a campaign.Attachment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO campaign_attachments (id, campaign_id, filename, size, url)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New().String(), campaignID, a.Filename, a.Size, a.URL)
	if err != nil {
		return fmt.Errorf("recording attachment %s: %w", a.Filename, err)
	}
	return nil
}

// ReplaceAttachments swaps a campaign's attachment references, used when a
// draft save removes previously uploaded files.
func (s *Store) ReplaceAttachments(ctx context.Context, campaignID string, attachments []campaign.Attachment) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM campaign_attachments WHERE campaign_id = $1`, campaignID); err != nil {
		return fmt.Errorf("clearing attachments: %w", err)
	}
	for _, a := range attachments {
		if err := s.AddAttachment(ctx, campaignID, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) listAttachments(ctx context.Context, campaignID string) ([]campaign.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT filename, size, url FROM campaign_attachments
		WHERE campaign_id = $1 ORDER BY created_at
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("listing attachments: %w", err)
	}
	defer rows.Close()

	var attachments []campaign.Attachment
	for rows.Next() {
		var a campaign.Attachment
		if err := rows.Scan(&a.Filename, &a.Size, &a.URL); err != nil {
			return nil, fmt.Errorf("scanning attachment: %w", err)
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

func encodeLists(c campaign.Campaign) (institutions, departments, levels, timeSlots string, err error) {
	enc := func(v []string) (string, error) {
		if v == nil {
			v = []string{}
		}
		b, err := json.Marshal(v)
		return string(b), err
	}
	if institutions, err = enc(c.Institutions); err != nil {
		return
	}
	if departments, err = enc(c.Departments); err != nil {
		return
	}
	if levels, err = enc(c.Levels); err != nil {
		return
	}
	timeSlots, err = enc(c.TimeSlots)
	return
}

func decodeList(data []byte, dst *[]string) {
	if len(data) == 0 {
		*dst = []string{}
		return
	}
	if err := json.Unmarshal(data, dst); err != nil {
		*dst = []string{}
	}
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}
