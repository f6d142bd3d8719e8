package mail

import (
	"bytes"
	"html/template"
)

var resetTemplate = template.Must(template.New("reset").Parse(`<html>
<body>
<p>Hello {{.Username}},</p>
<p>We received a request to reset your password. The link below is valid for {{.TTLMinutes}} minutes:</p>
<p><a href="{{.Link}}">Reset your password</a></p>
<p>If you did not request this, you can ignore this email.</p>
</body>
</html>`))

type ResetEmailData struct {
	Username   string
	Link       string
	TTLMinutes int
}

func RenderResetEmail(data ResetEmailData) (string, error) {
	var buf bytes.Buffer
	if err := resetTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
