package email

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var newsletterTemplate = template.Must(template.New("newsletter").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Subject}}</title></head>
<body style="margin:0;padding:0;background:#f6f6f6;font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;">
{{if .PreviewText}}<div style="display:none;max-height:0;overflow:hidden;">{{.PreviewText}}</div>{{end}}
<div style="max-width:600px;margin:0 auto;padding:32px 24px;background:#ffffff;color:#222;line-height:1.6;">
{{if .Name}}<p>Hi {{.Name}},</p>{{end}}
{{.Content}}
<hr style="border:none;border-top:1px solid #eee;margin:32px 0 16px;">
<p style="font-size:12px;color:#888;">You are receiving this because you subscribed at <a href="{{.SiteURL}}" style="color:#888;">{{.SiteURL}}</a>.
<a href="{{.UnsubscribeURL}}" style="color:#888;">Unsubscribe</a></p>
</div>
</body>
</html>`))

var newContentTemplate = template.Must(template.New("new-content").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body style="margin:0;padding:0;background:#f6f6f6;font-family:-apple-system,Segoe UI,Helvetica,Arial,sans-serif;">
<div style="max-width:600px;margin:0 auto;padding:32px 24px;background:#ffffff;color:#222;line-height:1.6;">
{{if .Name}}<p>Hi {{.Name}},</p>{{end}}
<p style="text-transform:uppercase;font-size:12px;letter-spacing:1px;color:#888;">New {{.ContentType}}</p>
<h1 style="font-size:24px;margin:0 0 12px;"><a href="{{.URL}}" style="color:#222;text-decoration:none;">{{.Title}}</a></h1>
{{if .Description}}<p>{{.Description}}</p>{{end}}
<p><a href="{{.URL}}" style="display:inline-block;padding:10px 18px;background:#222;color:#fff;text-decoration:none;border-radius:4px;">Read it</a></p>
<hr style="border:none;border-top:1px solid #eee;margin:32px 0 16px;">
<p style="font-size:12px;color:#888;"><a href="{{.UnsubscribeURL}}" style="color:#888;">Unsubscribe</a></p>
</div>
</body>
</html>`))

type newsletterData struct {
	Subject        string
	PreviewText    string
	Name           string
	Content        template.HTML
	SiteURL        string
	UnsubscribeURL string
}

type newContentData struct {
	Name           string
	Title          string
	URL            string
	Description    string
	ContentType    string
	UnsubscribeURL string
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func newContentText(d newContentData) string {
	var b strings.Builder
	if d.Name != "" {
		fmt.Fprintf(&b, "Hi %s,\n\n", d.Name)
	}
	fmt.Fprintf(&b, "New %s: %s\n", d.ContentType, d.Title)
	if d.Description != "" {
		fmt.Fprintf(&b, "\n%s\n", d.Description)
	}
	fmt.Fprintf(&b, "\nRead it: %s\n\nUnsubscribe: %s\n", d.URL, d.UnsubscribeURL)
	return b.String()
}
