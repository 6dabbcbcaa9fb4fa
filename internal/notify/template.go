package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"text/template"
)

// Subject line on every license email.
const mailSubject = "Your Sessions License Key"

// mailData feeds both the plain-text and HTML bodies, so the two
// representations can never diverge on key or instructions.
type mailData struct {
	Key     string
	Credits int
}

const textBody = `Thank you for purchasing Sessions credits!

Your License Key: {{.Key}}

To activate, run this command in your terminal:

    sessions activate {{.Key}}

You now have {{.Credits}} session restores. Use them anytime with:

    sessions continue <session-name>

Questions? Reply to this email.

- Sessions
https://sessionshq.com`

const htmlBody = `<!DOCTYPE html>
<html>
<head>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; background: #0a0a0f; color: #ffffff; padding: 40px; }
        .container { max-width: 500px; margin: 0 auto; }
        .logo { font-size: 24px; font-weight: bold; margin-bottom: 30px; }
        .logo span { color: #d97706; }
        .key-box { background: #1a1a24; border: 1px solid #2a2a3a; border-radius: 8px; padding: 20px; margin: 20px 0; }
        .key { font-family: monospace; font-size: 18px; color: #d97706; word-break: break-all; }
        .command { background: #12121a; padding: 15px; border-radius: 6px; font-family: monospace; color: #22c55e; margin: 15px 0; }
        .footer { margin-top: 30px; color: #a0a0b0; font-size: 14px; }
        a { color: #d97706; }
    </style>
</head>
<body>
    <div class="container">
        <div class="logo">sessions<span>hq</span></div>

        <p>Thank you for purchasing Sessions credits!</p>

        <div class="key-box">
            <p style="margin: 0 0 10px 0; color: #a0a0b0; font-size: 14px;">Your License Key:</p>
            <div class="key">{{.Key}}</div>
        </div>

        <p>To activate, run this command in your terminal:</p>
        <div class="command">sessions activate {{.Key}}</div>

        <p>You now have <strong>{{.Credits}} session restores</strong>. Use them anytime with:</p>
        <div class="command">sessions continue &lt;session-name&gt;</div>

        <div class="footer">
            <p>Questions? Reply to this email.</p>
            <p>- Sessions<br><a href="https://sessionshq.com">sessionshq.com</a></p>
        </div>
    </div>
</body>
</html>`

var (
	textTmpl = template.Must(template.New("text").Parse(textBody))
	htmlTmpl = htmltemplate.Must(htmltemplate.New("html").Parse(htmlBody))
)

// renderMail produces the text and HTML bodies for a license email from
// a single data value.
func renderMail(key string, credits int) (text, html string, err error) {
	data := mailData{Key: key, Credits: credits}

	var tb bytes.Buffer
	if err := textTmpl.Execute(&tb, data); err != nil {
		return "", "", fmt.Errorf("rendering text body: %w", err)
	}

	var hb bytes.Buffer
	if err := htmlTmpl.Execute(&hb, data); err != nil {
		return "", "", fmt.Errorf("rendering html body: %w", err)
	}

	return tb.String(), hb.String(), nil
}
