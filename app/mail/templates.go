package mail

import (
	"bytes"
	"embed"
	"html/template"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func RenderWelcome(username string) (string, error) {
	return render("welcome.html.tmpl", struct{ Username string }{username})
}

func RenderVerifyEmail(verifyURL string) (string, error) {
	return render("verify_email.html.tmpl", struct{ VerifyURL string }{verifyURL})
}

func RenderPasswordReset(resetURL string) (string, error) {
	return render("reset_password.html.tmpl", struct{ ResetURL string }{resetURL})
}
