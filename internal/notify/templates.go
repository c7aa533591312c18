package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"time"
)

// Brand is the storefront identity shown in every email.
type Brand struct {
	Name         string
	LogoURL      string
	SupportEmail string
}

// Composer renders lifecycle emails. Links point at the storefront ClientURL.
type Composer struct {
	Brand     Brand
	ClientURL string
}

var (
	verificationTmpl = template.Must(template.New("verification").Parse(`<div style="background:#f8f9fa;padding:20px;text-align:center;">
{{- if .Brand.LogoURL}}<img src="{{.Brand.LogoURL}}" alt="{{.Brand.Name}}" style="max-width:150px;">{{end}}
<h2>Verify Your Email</h2>
<p>Click the button below or use the code <strong>{{.Code}}</strong>.</p>
<a href="{{.Link}}" style="background:#007bff;color:#fff;padding:10px 20px;border-radius:5px;text-decoration:none;">Verify Email</a>
<p>This link and code expire in {{.TTL}}.</p>
</div>`))

	resetTmpl = template.Must(template.New("reset").Parse(`<div style="background:#f8f9fa;padding:20px;text-align:center;">
{{- if .Brand.LogoURL}}<img src="{{.Brand.LogoURL}}" alt="{{.Brand.Name}}" style="max-width:150px;">{{end}}
<h2>Reset Your Password</h2>
<p>We received a request to reset the password for your {{.Brand.Name}} account.</p>
<a href="{{.Link}}" style="background:#007bff;color:#fff;padding:10px 20px;border-radius:5px;text-decoration:none;">Reset Password</a>
<p>This link expires in {{.TTL}}. If you did not ask for it, ignore this email.</p>
</div>`))

	adminTmpl = template.Must(template.New("admin").Parse(`<div style="background:#f8f9fa;padding:20px;text-align:center;">
<h2>Message from {{.Brand.Name}}</h2>
<p>{{.Body}}</p>
<hr>
{{- if .Brand.SupportEmail}}
<p>Need help? Email us at <a href="mailto:{{.Brand.SupportEmail}}">{{.Brand.SupportEmail}}</a></p>
{{- end}}
</div>`))
)

// Verification builds the email carrying the verification link and 6-digit code.
func (c *Composer) Verification(to, token, code string, ttl time.Duration) (Message, error) {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", to)
	link := c.ClientURL + "/email-verification?" + q.Encode()

	html, err := render(verificationTmpl, map[string]any{"Brand": c.Brand, "Code": code, "Link": link, "TTL": humanize(ttl)})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Email Verification",
		HTML:    html,
		Text:    fmt.Sprintf("Your %s verification code is %s.\nOr open: %s\nThis link and code expire in %s.", c.Brand.Name, code, link, humanize(ttl)),
	}, nil
}

// PasswordReset builds the email carrying the password reset link.
func (c *Composer) PasswordReset(to, token string, ttl time.Duration) (Message, error) {
	link := c.ClientURL + "/reset-password?token=" + url.QueryEscape(token)
	html, err := render(resetTmpl, map[string]any{"Brand": c.Brand, "Link": link, "TTL": humanize(ttl)})
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      to,
		Subject: "Password Reset Request",
		HTML:    html,
		Text:    fmt.Sprintf("Reset your %s password: %s\nThis link expires in %s.", c.Brand.Name, link, humanize(ttl)),
	}, nil
}

// AdminMessage wraps a free-form admin message in the branded layout. body is escaped.
func (c *Composer) AdminMessage(to, subject, body string) (Message, error) {
	html, err := render(adminTmpl, map[string]any{"Brand": c.Brand, "Body": body})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: html, Text: body}, nil
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// humanize formats whole minutes and hours the way the emails phrase them ("10 minutes").
func humanize(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute && d%time.Minute == 0:
		return plural(int(d/time.Minute), "minute")
	default:
		return d.String()
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
