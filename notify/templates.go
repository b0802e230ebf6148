package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var subjects = map[Kind]string{
	KindRegistrationOTP:  "Verify your email address",
	KindPasswordResetOTP: "Reset your password",
}

var templateNames = map[Kind]string{
	KindRegistrationOTP:  "registration_otp.html",
	KindPasswordResetOTP: "password_reset_otp.html",
}

type templateData struct {
	AppName string
	Name    string
	Code    string
	Minutes int
}

// Render returns the subject and HTML body for msg.
func Render(appName string, msg Message) (string, string, error) {
	name, ok := templateNames[msg.Kind]
	if !ok {
		return "", "", fmt.Errorf("unknown notification kind %q", msg.Kind)
	}

	var buf bytes.Buffer
	err := templates.ExecuteTemplate(&buf, name, templateData{
		AppName: appName,
		Name:    msg.Name,
		Code:    msg.Code,
		Minutes: minutes(msg.ExpiresIn),
	})
	if err != nil {
		return "", "", err
	}
	return subjects[msg.Kind], buf.String(), nil
}

func minutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Minutes()))
}
