package application

import (
	"html"
	"strings"

	"edge-worker/worker/domain"
)

const contactSubjectPrefix = "Contact Form: "

// BuildContactEmail monta o email encaminhado ao dono do site.
// Os valores do visitante são escapados antes de entrar no HTML.
func BuildContactEmail(from, to string, s domain.Submission) domain.Email {
	message := strings.ReplaceAll(s.Message, "\r\n", "\n")
	message = strings.ReplaceAll(html.EscapeString(message), "\n", "<br>")

	var b strings.Builder
	b.WriteString("<h2>New Contact Form Submission</h2>\n")
	b.WriteString("<p><strong>From:</strong> ")
	b.WriteString(html.EscapeString(s.Name))
	b.WriteString(" (")
	b.WriteString(html.EscapeString(s.Email))
	b.WriteString(")</p>\n")
	b.WriteString("<p><strong>Message:</strong></p>\n")
	b.WriteString("<p>")
	b.WriteString(message)
	b.WriteString("</p>\n")

	return domain.Email{
		From:     from,
		To:       to,
		Subject:  contactSubjectPrefix + s.Name,
		HTMLBody: b.String(),
		ReplyTo:  s.Email,
	}
}
