package templates

import (
	"fmt"
	"html"
	"strings"
)

// CaseNotice is the content of a notice mailed to a party
type CaseNotice struct {
	ResidentName string
	Subject      string
	CaseNumber   string
	CaseTitle    string
	// Body is plain text, newlines become line breaks
	Body string
}

// RenderCaseNotice generates branded HTML for a case notice. Every field is escaped.
func RenderCaseNotice(n CaseNotice) string {
	body := strings.ReplaceAll(html.EscapeString(n.Body), "\n", "<br>")
	subject := html.EscapeString(n.Subject)

	greeting := "Good day,"
	if n.ResidentName != "" {
		greeting = "Good day " + html.EscapeString(n.ResidentName) + ","
	}

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f3f4f6; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background: #1e3a8a; padding: 32px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 22px; font-weight: 700; }
    .case { background: #eff6ff; border: 1px solid #bfdbfe; border-radius: 8px; padding: 14px 18px; margin: 20px 0; }
    .content { padding: 32px 30px; color: #111827; line-height: 1.6; font-size: 15px; }
    .footer { padding: 24px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid #e5e7eb; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      <p>%s</p>
      <div class="case"><strong>Case No. %s</strong><br>%s</div>
      %s
    </div>
    <div class="footer">
      <p>This notice was sent by the dispute resolution office. Please keep it for your records.</p>
    </div>
  </div>
</body>
</html>`, subject, subject, greeting, html.EscapeString(n.CaseNumber), html.EscapeString(n.CaseTitle), body)
}
