package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// NotificationPreferences are a user's per-category notification toggles.
type NotificationPreferences struct {
	UserID          string    `json:"user_id"`
	CampaignUpdates bool      `json:"campaign_updates"`
	DeliveryReports bool      `json:"delivery_reports"`
	BillingAlerts   bool      `json:"billing_alerts"`
	ProductNews     bool      `json:"product_news"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// GetPreferences returns the stored preferences for a user, or the
// defaults when the user has never saved any.
func (s *Store) GetPreferences(ctx context.Context, userID string) (*NotificationPreferences, error) {
	p := &NotificationPreferences{UserID: userID}
	err := s.db.QueryRowContext(ctx, `
		SELECT campaign_updates, delivery_reports, billing_alerts, product_news, updated_at
		FROM notification_preferences WHERE user_id = $1
	`, userID).Scan(&p.CampaignUpdates, &p.DeliveryReports, &p.BillingAlerts, &p.ProductNews, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return &NotificationPreferences{
			UserID:          userID,
			CampaignUpdates: true,
			DeliveryReports: true,
			BillingAlerts:   true,
			ProductNews:     false,
			UpdatedAt:       time.Now().UTC(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching preferences for %s: %w", userID, err)
	}
	return p, nil
}

// SavePreferences upserts a user's notification preferences.
func (s *Store) SavePreferences(ctx context.Context, p NotificationPreferences) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notification_preferences
			(user_id, campaign_updates, delivery_reports, billing_alerts, product_news, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			campaign_updates = EXCLUDED.campaign_updates,
			delivery_reports = EXCLUDED.delivery_reports,
			billing_alerts = EXCLUDED.billing_alerts,
			product_news = EXCLUDED.product_news,
			updated_at = NOW()
	`, p.UserID, p.CampaignUpdates, p.DeliveryReports, p.BillingAlerts, p.ProductNews)
	if err != nil {
		return fmt.Errorf("saving preferences for %s: %w", p.UserID, err)
	}
	return nil
}
