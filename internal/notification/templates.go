package notification

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	texttemplate "text/template"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

const (
	subjectQualified    = "Tu diagnóstico califica – Grupo Inforum"
	subjectNotQualified = "Gracias por tu diagnóstico – Grupo Inforum"

	titleQualified    = "Tu diagnóstico califica"
	titleNotQualified = "Gracias por tu diagnóstico"

	messageQualified = "¡Felicidades! Estás a 1 paso de obtener tu asesoría sin costo. " +
		"Rita Muralles se estará comunicando contigo para agendar una sesión corta de 30min " +
		"para presentarnos y realizar unas últimas dudas para guiarte de mejor manera."
	messageNotQualified = "¡Gracias por llenar el cuestionario! Por el momento nuestro equipo " +
		"se encuentra con cupo lleno. Te estaremos contactando al liberar espacio. " +
		"Por lo pronto te invitamos a conocer más de Inforum."
)

// resultEmailData feeds both the HTML and the plain text templates.
type resultEmailData struct {
	Name         string
	Title        string
	Message      string
	VideoURL     string
	SiteURL      string
	ThumbnailURL string
}

// Content is a rendered confirmation email.
type Content struct {
	Subject string
	HTML    string
	Text    string
}

var (
	qualifiedTmpl    = template.Must(template.New("base.html").ParseFS(templateFS, "templates/base.html", "templates/qualified.html"))
	notQualifiedTmpl = template.Must(template.New("base.html").ParseFS(templateFS, "templates/base.html", "templates/not_qualified.html"))
	textTmpl         = texttemplate.Must(texttemplate.New("result.txt").ParseFS(templateFS, "templates/result.txt"))
)

// render picks the template branch for the verdict. data.Title and
// data.Message are filled in here.
func render(qualifies bool, data resultEmailData) (Content, error) {
	tmpl := notQualifiedTmpl
	subject := subjectNotQualified
	data.Title = titleNotQualified
	data.Message = messageNotQualified
	if qualifies {
		tmpl = qualifiedTmpl
		subject = subjectQualified
		data.Title = titleQualified
		data.Message = messageQualified
	}

	var html bytes.Buffer
	if err := tmpl.ExecuteTemplate(&html, "email", data); err != nil {
		return Content{}, fmt.Errorf("execute email template: %w", err)
	}

	var text bytes.Buffer
	if err := textTmpl.Execute(&text, data); err != nil {
		return Content{}, fmt.Errorf("execute text template: %w", err)
	}

	return Content{Subject: subject, HTML: html.String(), Text: text.String()}, nil
}
