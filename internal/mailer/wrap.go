// Package mailer converts editor output into a standalone, mail-client-safe
// HTML document and recovers the editable fragment back out of previously
// generated documents, including documents produced by older template shapes.
package mailer

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/osteele/liquid"
)

// Content region markers. Every document produced by Wrap carries these so
// extraction is a mechanical substring capture rather than structure
// sniffing. Older documents without markers go through the legacy
// strategies in extract.go.
const (
	ContentStartMarker = "<!-- campaign-content:start -->"
	ContentEndMarker   = "<!-- campaign-content:end -->"
)

// contentToken is the placeholder the fragment is spliced into after the
// chrome has been rendered. The fragment never passes through Liquid, so
// user content containing template-looking syntax survives untouched.
const contentToken = "@@CAMPAIGN_CONTENT@@"

// SocialLink is a single entry in the footer's social row.
type SocialLink struct {
	Label string `yaml:"label" json:"label"`
	URL   string `yaml:"url" json:"url"`
}

// Config holds the fixed chrome of the mailer document.
type Config struct {
	CompanyName string       `yaml:"company_name"`
	LogoURL     string       `yaml:"logo_url"`
	Tagline     string       `yaml:"tagline"`
	CTAURL      string       `yaml:"cta_url"`
	CTALabel    string       `yaml:"cta_label"`
	AboutText   string       `yaml:"about_text"`
	SocialLinks []SocialLink `yaml:"social_links"`
}

// DefaultConfig returns the standard chrome used when none is configured.
func DefaultConfig() Config {
	return Config{
		CompanyName: "CampusReach",
		LogoURL:     "https://cdn.campusreach.io/assets/logo-email.png",
		Tagline:     "Connecting campaigns with campuses",
		CTAURL:      "https://app.campusreach.io/offers",
		CTALabel:    "View Offers",
		AboutText:   "CampusReach helps organizations reach students and staff across partner institutions with relevant, permission-based campaigns.",
		SocialLinks: []SocialLink{
			{Label: "Twitter", URL: "https://twitter.com/campusreach"},
			{Label: "LinkedIn", URL: "https://linkedin.com/company/campusreach"},
			{Label: "Instagram", URL: "https://instagram.com/campusreach"},
		},
	}
}

// Renderer wraps editor fragments into complete mailer documents.
type Renderer struct {
	cfg      Config
	engine   *liquid.Engine
	template *liquid.Template
}

// NewRenderer creates a renderer with the given chrome config. Zero-value
// fields fall back to the defaults.
func NewRenderer(cfg Config) *Renderer {
	def := DefaultConfig()
	if cfg.CompanyName == "" {
		cfg.CompanyName = def.CompanyName
	}
	if cfg.LogoURL == "" {
		cfg.LogoURL = def.LogoURL
	}
	if cfg.Tagline == "" {
		cfg.Tagline = def.Tagline
	}
	if cfg.CTAURL == "" {
		cfg.CTAURL = def.CTAURL
	}
	if cfg.CTALabel == "" {
		cfg.CTALabel = def.CTALabel
	}
	if cfg.AboutText == "" {
		cfg.AboutText = def.AboutText
	}
	if len(cfg.SocialLinks) == 0 {
		cfg.SocialLinks = def.SocialLinks
	}

	engine := liquid.NewEngine()
	tpl, err := engine.ParseString(mailerTemplate)
	if err != nil {
		// The template is a compile-time constant; a parse failure is a
		// programming error, not a runtime condition.
		log.Printf("mailer: template parse error: %v", err)
	}
	return &Renderer{cfg: cfg, engine: engine, template: tpl}
}

// Wrap embeds the fragment into the full mailer document with the subject
// as the document title. It is a total function: any fragment, including
// the empty string, produces a valid document. Wrap must only ever be
// applied to a raw editor fragment; wrapping an already-wrapped document
// is not supported, which is why drafts persist the raw fragment.
func (r *Renderer) Wrap(fragment, subject string) string {
	socials := make([]map[string]string, 0, len(r.cfg.SocialLinks))
	for _, s := range r.cfg.SocialLinks {
		socials = append(socials, map[string]string{"label": s.Label, "url": s.URL})
	}

	bindings := map[string]interface{}{
		"subject":      subject,
		"company_name": r.cfg.CompanyName,
		"logo_url":     r.cfg.LogoURL,
		"tagline":      r.cfg.Tagline,
		"cta_url":      r.cfg.CTAURL,
		"cta_label":    r.cfg.CTALabel,
		"about_text":   r.cfg.AboutText,
		"social_links": socials,
		"year":         time.Now().Year(),
	}

	var doc string
	if r.template != nil {
		rendered, err := r.template.RenderString(bindings)
		if err != nil {
			log.Printf("mailer: render error: %v", err)
		} else {
			doc = rendered
		}
	}
	if doc == "" {
		// Degraded chrome, still a valid document with markers intact.
		doc = fmt.Sprintf("<!DOCTYPE html><html><head><title>%s</title></head><body>%s\n%s\n%s</body></html>",
			subject, ContentStartMarker, contentToken, ContentEndMarker)
	}

	return strings.Replace(doc, contentToken, fragment, 1)
}

// mailerTemplate is the single source of truth for the document shape.
// Table-based layout with inline styles: email clients strip <style> and
// ignore flex/grid, so the structure has to carry the layout on its own.
const mailerTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{ subject }}</title>
<style>
  body { margin: 0; padding: 0; background-color: #f4f5f7; }
  img { border: 0; outline: none; }
  @media only screen and (max-width: 620px) {
    .email-container { width: 100% !important; }
    .content-cell { padding: 24px 20px 8px 20px !important; }
  }
</style>
</head>
<body style="margin:0;padding:0;background-color:#f4f5f7;">
<table role="presentation" width="100%" cellpadding="0" cellspacing="0" border="0" style="background-color:#f4f5f7;">
<tr><td align="center" style="padding:24px 12px;">
<table role="presentation" class="email-container" width="600" cellpadding="0" cellspacing="0" border="0" style="width:600px;max-width:600px;background-color:#ffffff;border-radius:8px;overflow:hidden;">
<tr>
<td align="center" style="background:linear-gradient(135deg,#1e3a8a 0%,#3b82f6 100%);padding:28px 40px;">
<img src="{{ logo_url }}" alt="{{ company_name }}" width="160" style="display:block;width:160px;">
<p style="margin:12px 0 0 0;font-family:Arial,Helvetica,sans-serif;font-size:13px;color:#dbeafe;">{{ tagline }}</p>
</td>
</tr>
<tr>
<td class="content-cell" style="padding:32px 40px 8px 40px;font-family:Arial,Helvetica,sans-serif;font-size:15px;line-height:1.6;color:#1f2937;">
` + ContentStartMarker + `
` + contentToken + `
` + ContentEndMarker + `
</td>
</tr>
<tr>
<td align="center" style="padding:8px 40px 32px 40px;">
<table role="presentation" class="cta-block" cellpadding="0" cellspacing="0" border="0">
<tr>
<td align="center" style="background-color:#2563eb;border-radius:6px;">
<a href="{{ cta_url }}" style="display:inline-block;padding:12px 32px;font-family:Arial,Helvetica,sans-serif;font-size:15px;font-weight:bold;color:#ffffff;text-decoration:none;">{{ cta_label }}</a>
</td>
</tr>
</table>
</td>
</tr>
<tr>
<td class="footer" style="background-color:#f9fafb;border-top:1px solid #e5e7eb;padding:24px 40px;font-family:Arial,Helvetica,sans-serif;font-size:12px;line-height:1.5;color:#6b7280;">
<p style="margin:0 0 12px 0;">{{ about_text }}</p>
<p style="margin:0 0 12px 0;">
{% for link in social_links %}<a href="{{ link.url }}" style="color:#2563eb;text-decoration:none;margin-right:12px;">{{ link.label }}</a>{% endfor %}
</p>
<p style="margin:0;color:#9ca3af;">&copy; {{ year }} {{ company_name }}. All rights reserved. You are receiving this email through a partner institution.</p>
</td>
</tr>
</table>
</td></tr>
</table>
</body>
</html>`
