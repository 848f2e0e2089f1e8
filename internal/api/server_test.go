package api

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusreach/campaign-studio/internal/attachments"
	"github.com/campusreach/campaign-studio/internal/audience"
	"github.com/campusreach/campaign-studio/internal/campaign"
	"github.com/campusreach/campaign-studio/internal/catalog"
	"github.com/campusreach/campaign-studio/internal/config"
	"github.com/campusreach/campaign-studio/internal/mailer"
	"github.com/campusreach/campaign-studio/internal/storage"
)

type stubCatalog struct{}

func (stubCatalog) ListInstitutions(ctx context.Context) ([]audience.Institution, error) {
	return testInstitutions(), nil
}

func testInstitutions() []audience.Institution {
	return []audience.Institution{
		{
			ID:          "inst-1",
			Name:        "Northfield Academy",
			Departments: audience.StringList{"Arts", "Science"},
			Levels:      audience.StringList{"Postgraduate", "Undergraduate"},
		},
		{
			ID:          "inst-2",
			Name:        "Westbrook College",
			Departments: audience.StringList{"Commerce", "Science"},
			Levels:      audience.StringList{"Undergraduate"},
		},
	}
}

// argContains matches any string argument containing the substring.
type argContains string

func (a argContains) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && strings.Contains(s, string(a))
}

func newTestServer(t *testing.T) (*Server, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	// Schema bootstrap runs at construction and is not under test here.
	for i := 0; i < 8; i++ {
		mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	store := storage.New(db)

	files, err := attachments.New(context.Background(), attachments.Config{
		Type:      "local",
		LocalPath: t.TempDir(),
	})
	require.NoError(t, err)

	srv := NewServer(
		config.ServerConfig{AllowedOrigins: []string{"http://localhost:5173"}},
		store,
		catalog.New(stubCatalog{}, nil, time.Minute),
		files,
		mailer.NewRenderer(mailer.DefaultConfig()),
	)
	return srv, mock
}

func doRequest(t *testing.T, srv *Server, method, path string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func validForm() campaign.FormData {
	sendAt := time.Now().Add(24 * time.Hour).UTC().Truncate(time.Second)
	return campaign.FormData{
		Name:    "Spring Open Day",
		Subject: "You're invited",
		Content: "<p>Join us on campus.</p>",
		Audience: audience.Selection{
			InstitutionIDs: []string{"inst-1"},
			Departments:    []string{"Arts"},
			Levels:         []string{"Undergraduate"},
		},
		SendAt:       &sendAt,
		CampaignType: campaign.TypeEmail,
		FromName:     "CampusReach",
		FromEmail:    "events@campusreach.io",
	}
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestSubmitCampaignCreatesScheduled(t *testing.T) {
	srv, mock := newTestServer(t)

	form := validForm()
	payload, err := campaign.BuildSubmission(form, mailer.NewRenderer(mailer.DefaultConfig()), testInstitutions())
	require.NoError(t, err)

	// Wrapped mailer document is what gets persisted on submit.
	mock.ExpectExec("INSERT INTO campaigns").
		WithArgs(sqlmock.AnyArg(), form.Name, form.Subject, argContains(mailer.ContentStartMarker),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), campaign.StatusScheduled).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/submit", payload.Body, payload.ContentType)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, campaign.StatusScheduled, body["status"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitCampaignSendNowIsPending(t *testing.T) {
	srv, mock := newTestServer(t)

	form := validForm()
	form.SendNow = true
	form.SendAt = nil
	payload, err := campaign.BuildSubmission(form, mailer.NewRenderer(mailer.DefaultConfig()), testInstitutions())
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO campaigns").WillReturnResult(sqlmock.NewResult(1, 1))

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/submit", payload.Body, payload.ContentType)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, campaign.StatusPending, body["status"])
}

func TestSubmitCampaignRejectsShortLeadTime(t *testing.T) {
	srv, mock := newTestServer(t)

	form := validForm()
	soon := time.Now().Add(time.Hour).UTC()
	form.SendAt = &soon
	payload, err := campaign.BuildSubmission(form, mailer.NewRenderer(mailer.DefaultConfig()), testInstitutions())
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/submit", payload.Body, payload.ContentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Errors []campaign.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	fields := []string{}
	for _, e := range body.Errors {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "send_at")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitCampaignRejectsEmptyContent(t *testing.T) {
	srv, _ := newTestServer(t)

	form := validForm()
	form.Content = "<p><br></p>"
	payload, err := campaign.BuildSubmission(form, mailer.NewRenderer(mailer.DefaultConfig()), testInstitutions())
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/submit", payload.Body, payload.ContentType)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body struct {
		Errors []campaign.FieldError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	fields := []string{}
	for _, e := range body.Errors {
		fields = append(fields, e.Field)
	}
	assert.Contains(t, fields, "content")
}

func TestCreateDraftStoresRawFragment(t *testing.T) {
	srv, mock := newTestServer(t)

	form := validForm()
	form.Content = "<p>Hi {{ first_name }}, draft in progress</p>"
	payload, err := campaign.BuildDraft(form, testInstitutions())
	require.NoError(t, err)

	// Drafts persist the editor fragment untouched, never a wrapped document.
	mock.ExpectExec("INSERT INTO campaigns").
		WithArgs(sqlmock.AnyArg(), form.Name, form.Subject, form.Content,
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), campaign.StatusDraft).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/draft", payload.Body, payload.ContentType)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDraftRequiresName(t *testing.T) {
	srv, _ := newTestServer(t)

	form := validForm()
	form.Name = ""
	payload, err := campaign.BuildDraft(form, testInstitutions())
	require.NoError(t, err)

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/draft", payload.Body, payload.ContentType)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCampaignNotFound(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery("SELECT id, name, subject, content").WillReturnError(sql.ErrNoRows)

	rec := doRequest(t, srv, http.MethodGet, "/api/campaigns/missing-id", nil, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func campaignRow(content string) *sqlmock.Rows {
	now := time.Now().UTC()
	sendAt := now.Add(48 * time.Hour)
	return sqlmock.NewRows([]string{
		"id", "name", "subject", "content", "target_all",
		"institutions", "departments", "levels",
		"send_at", "end_at", "recurring", "time_slots",
		"campaign_type", "from_name", "from_email", "status", "created_at", "updated_at",
	}).AddRow(
		"c0ffee00-0000-0000-0000-000000000001", "Spring Open Day", "You're invited", content, false,
		[]byte(`["Northfield Academy"]`), []byte(`["Arts","Ancient Studies"]`), []byte(`["Undergraduate"]`),
		sendAt, nil, false, []byte(`[]`),
		campaign.TypeEmail, "CampusReach", "events@campusreach.io", campaign.StatusDraft, now, now,
	)
}

func TestGetFormHydratesStoredCampaign(t *testing.T) {
	srv, mock := newTestServer(t)

	wrapped := mailer.NewRenderer(mailer.DefaultConfig()).Wrap("<p>Join us on campus.</p>", "You're invited")
	mock.ExpectQuery("SELECT id, name, subject, content").WillReturnRows(campaignRow(wrapped))
	mock.ExpectQuery("SELECT filename, size, url").
		WillReturnRows(sqlmock.NewRows([]string{"filename", "size", "url"}))

	rec := doRequest(t, srv, http.MethodGet, "/api/campaigns/c0ffee00-0000-0000-0000-000000000001/form", nil, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Form   campaign.FormData `json:"form"`
		State  string            `json:"state"`
		Pruned []string          `json:"pruned_selections"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "hydrated", body.State)
	// Stored names resolve back to catalog IDs.
	assert.Equal(t, []string{"inst-1"}, body.Form.Audience.InstitutionIDs)
	// Wrapped content comes back as the bare editor fragment.
	assert.Contains(t, body.Form.Content, "Join us on campus.")
	assert.NotContains(t, body.Form.Content, "<!DOCTYPE")
	// Departments no longer offered by the selection are pruned and reported.
	assert.Equal(t, []string{"Arts"}, body.Form.Audience.Departments)
	assert.Contains(t, body.Pruned, "Ancient Studies")
}

func TestListCampaignsPaginates(t *testing.T) {
	srv, mock := newTestServer(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id, name, subject, status").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "subject", "status", "campaign_type", "send_at", "created_at", "updated_at",
		}).AddRow("id-1", "Spring Open Day", "You're invited", campaign.StatusDraft, campaign.TypeEmail, nil, now, now))

	rec := doRequest(t, srv, http.MethodGet, "/api/campaigns?status=draft&page=1&limit=10", nil, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Data       []storage.CampaignSummary `json:"data"`
		Pagination PaginationMeta            `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, int64(1), body.Pagination.Total)
	assert.Equal(t, 10, body.Pagination.Limit)
	assert.False(t, body.Pagination.HasMore)
}

func TestDeleteCampaign(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectExec("UPDATE campaigns SET status").WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(t, srv, http.MethodDelete, "/api/campaigns/id-1", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScheduleRejectsShortLeadTime(t *testing.T) {
	srv, mock := newTestServer(t)

	// Send date inside the minimum lead window.
	soon := time.Now().Add(time.Hour).UTC()
	rows := sqlmock.NewRows([]string{
		"id", "name", "subject", "content", "target_all",
		"institutions", "departments", "levels",
		"send_at", "end_at", "recurring", "time_slots",
		"campaign_type", "from_name", "from_email", "status", "created_at", "updated_at",
	}).AddRow(
		"id-1", "Spring Open Day", "You're invited", "<p>content</p>", false,
		[]byte(`[]`), []byte(`[]`), []byte(`[]`),
		soon, nil, false, []byte(`[]`),
		campaign.TypeEmail, "", "", campaign.StatusDraft, soon, soon,
	)
	mock.ExpectQuery("SELECT id, name, subject, content").WillReturnRows(rows)
	mock.ExpectQuery("SELECT filename, size, url").
		WillReturnRows(sqlmock.NewRows([]string{"filename", "size", "url"}))

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/id-1/schedule", nil, "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleAcceptsFutureSendAt(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery("SELECT id, name, subject, content").WillReturnRows(campaignRow("<p>content</p>"))
	mock.ExpectQuery("SELECT filename, size, url").
		WillReturnRows(sqlmock.NewRows([]string{"filename", "size", "url"}))
	mock.ExpectExec("UPDATE campaigns SET status").WillReturnResult(sqlmock.NewResult(0, 1))

	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/c0ffee00-0000-0000-0000-000000000001/schedule", nil, "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, campaign.StatusScheduled, body["status"])
}

func TestPreviewWrapsFragment(t *testing.T) {
	srv, _ := newTestServer(t)

	reqBody := bytes.NewBufferString(`{"content":"<p>Hello campus</p>","subject":"Hi"}`)
	rec := doRequest(t, srv, http.MethodPost, "/api/campaigns/preview", reqBody, "application/json")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["html"], mailer.ContentStartMarker)
	assert.Contains(t, body["html"], "<p>Hello campus</p>")
	assert.Contains(t, body["html"], "<!DOCTYPE html>")
}

func TestListInstitutions(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/institutions", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Institutions []audience.Institution `json:"institutions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Institutions, 2)
}

func TestAudienceOptionsUnion(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/institutions/options?ids=inst-1,inst-2", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var opts audience.Options
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	assert.Equal(t, []string{"Arts", "Commerce", "Science"}, opts.Departments)
	assert.Equal(t, []string{"Postgraduate", "Undergraduate"}, opts.Levels)
}

func TestAudienceOptionsEmptySelection(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/api/institutions/options", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var opts audience.Options
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	assert.Empty(t, opts.Departments)
	assert.Empty(t, opts.Levels)
}

func TestPreferencesDefaults(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectQuery("SELECT campaign_updates").WillReturnError(sql.ErrNoRows)

	rec := doRequest(t, srv, http.MethodGet, "/api/preferences/user-7", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var prefs storage.NotificationPreferences
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	assert.Equal(t, "user-7", prefs.UserID)
	assert.True(t, prefs.CampaignUpdates)
	assert.False(t, prefs.ProductNews)
}

func TestSavePreferences(t *testing.T) {
	srv, mock := newTestServer(t)

	mock.ExpectExec("INSERT INTO notification_preferences").WillReturnResult(sqlmock.NewResult(0, 1))

	reqBody := bytes.NewBufferString(`{"campaign_updates":false,"delivery_reports":true,"billing_alerts":true,"product_news":true}`)
	rec := doRequest(t, srv, http.MethodPut, "/api/preferences/user-7", reqBody, "application/json")

	require.Equal(t, http.StatusOK, rec.Code)
	var prefs storage.NotificationPreferences
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prefs))
	assert.Equal(t, "user-7", prefs.UserID)
	assert.False(t, prefs.CampaignUpdates)
	assert.True(t, prefs.ProductNews)
	assert.NoError(t, mock.ExpectationsWereMet())
}
