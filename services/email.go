package services

import (
	"fmt"
	"log"
	"strings"

	"tax_flow_app_go/config"

	"github.com/resend/resend-go/v2"
)

// Notification template kinds
const (
	PlantillaCalificacionCreada   = "calificacion_creada"
	PlantillaAuditoriaSolicitada  = "auditoria_solicitada"
	PlantillaCalificacionResuelta = "calificacion_resuelta"
	PlantillaRolAsignado          = "rol_asignado"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// Notificador is the outbound notification boundary. Enviar is
// fire-and-forget: it reports success as a boolean and never returns an
// error, so a failed send can never fail the triggering operation.
type Notificador interface {
	Enviar(plantilla string, destinatario string, contexto map[string]string) bool
}

// EmailNotificador sends notifications through the Resend API
type EmailNotificador struct {
	Cfg *config.Config
}

func NewEmailNotificador(cfg *config.Config) *EmailNotificador {
	return &EmailNotificador{Cfg: cfg}
}

// Enviar renders the template kind with the given context and sends it.
// Failures are logged and swallowed.
func (n *EmailNotificador) Enviar(plantilla string, destinatario string, contexto map[string]string) bool {
	email := construirEmail(plantilla, destinatario, contexto)
	if email == nil {
		log.Printf("[EMAIL] Unknown template kind %q, dropping notification", plantilla)
		return false
	}
	if err := sendEmail(n.Cfg, email); err != nil {
		log.Printf("[EMAIL] Error sending %s to %s: %v", plantilla, destinatario, err)
		return false
	}
	return true
}

func construirEmail(plantilla, destinatario string, ctx map[string]string) *Email {
	switch plantilla {
	case PlantillaCalificacionCreada:
		return buildCalificacionCreadaEmail(destinatario, ctx)
	case PlantillaAuditoriaSolicitada:
		return buildAuditoriaSolicitadaEmail(destinatario, ctx)
	case PlantillaCalificacionResuelta:
		return buildCalificacionResueltaEmail(destinatario, ctx)
	case PlantillaRolAsignado:
		return buildRolAsignadoEmail(destinatario, ctx)
	}
	return nil
}

// buildCalificacionCreadaEmail notifies the corredor that their
// calificación was created (and whether an audit was requested).
func buildCalificacionCreadaEmail(to string, ctx map[string]string) *Email {
	auditoriaHTML := ""
	if ctx["solicitar_auditoria"] == "true" {
		auditoriaHTML = `<div style="background-color:#fff3cd;border-left:4px solid #ffc107;padding:15px;margin:15px 0;">
			<p style="margin:0;color:#856404;"><strong>Has solicitado auditoría.</strong> Un auditor revisará esta calificación próximamente.</p>
		</div>`
	}

	html := fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;">
		<h2 style="color:#0b1220;">Calificación Creada</h2>
		<p>Hola <strong>%s</strong>,</p>
		<p>Tu calificación ha sido creada exitosamente en el sistema.</p>
		<div style="background-color:#f0f7ff;border-left:4px solid #0084ff;padding:15px;margin:20px 0;">
			<p style="margin:5px 0;"><strong>RUT:</strong> %s</p>
			<p style="margin:5px 0;"><strong>Tipo:</strong> %s</p>
			<p style="margin:5px 0;"><strong>Estado:</strong> %s</p>
		</div>
		%s
		<p style="color:#666;">Puedes ver el detalle de tu calificación en tu dashboard.</p>
	</div>`, ctx["nombre"], ctx["rut"], ctx["tipo_certificado"], ctx["estado"], auditoriaHTML)

	return &Email{
		To:       []string{to},
		Subject:  "Nueva Calificación Creada - Gestión Tributaria",
		HTMLBody: html,
		TextBody: fmt.Sprintf("Tu calificación para %s ha sido creada (estado %s)", ctx["rut"], ctx["estado"]),
	}
}

// buildAuditoriaSolicitadaEmail confirms an audit request was registered
func buildAuditoriaSolicitadaEmail(to string, ctx map[string]string) *Email {
	html := fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;">
		<h2 style="color:#0b1220;">Solicitud de Auditoría</h2>
		<p>Hola <strong>%s</strong>,</p>
		<p>Hemos registrado tu solicitud de auditoría. Un auditor especializado revisará tu caso próximamente.</p>
		<div style="background-color:#fff3cd;border-left:4px solid #ffc107;padding:15px;margin:20px 0;">
			<p style="margin:5px 0;"><strong>RUT:</strong> %s</p>
			<p style="margin:5px 0;"><strong>ID Calificación:</strong> %s</p>
		</div>
		<p style="color:#666;">Te enviaremos un correo tan pronto como el auditor complete la revisión.</p>
	</div>`, ctx["nombre"], ctx["rut"], ctx["calificacion_id"])

	return &Email{
		To:       []string{to},
		Subject:  "Solicitud de Auditoría Registrada - Gestión Tributaria",
		HTMLBody: html,
		TextBody: fmt.Sprintf("Tu solicitud de auditoría para %s ha sido registrada", ctx["rut"]),
	}
}

// buildCalificacionResueltaEmail notifies the creator of a resolution.
// An approved resolution is presented as VALIDADA.
func buildCalificacionResueltaEmail(to string, ctx map[string]string) *Email {
	estado := ctx["estado"]
	if estado == "APROBADA" {
		estado = "VALIDADA"
	}

	colorEstado := "#dc3545"
	if estado == "VALIDADA" {
		colorEstado = "#28a745"
	}

	comentariosHTML := ""
	if ctx["comentarios"] != "" {
		comentariosHTML = fmt.Sprintf(`<div style="background-color:#f8f9fa;border-left:4px solid #6c757d;padding:15px;margin:15px 0;">
			<p style="margin:5px 0;"><strong>Comentarios del Auditor:</strong></p>
			<p style="margin:5px 0;color:#666;">%s</p>
		</div>`, ctx["comentarios"])
	}

	html := fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;">
		<h2 style="color:%s;">Calificación %s</h2>
		<p>Hola <strong>%s</strong>,</p>
		<p>Tu calificación ha sido revisada por nuestro equipo de auditoría.</p>
		<div style="background-color:#f0f7ff;border-left:4px solid %s;padding:15px;margin:20px 0;">
			<p style="margin:5px 0;"><strong>RUT:</strong> %s</p>
			<p style="margin:5px 0;"><strong>Estado:</strong> %s</p>
		</div>
		%s
		<p style="color:#666;">Puedes ver el detalle completo en tu dashboard.</p>
	</div>`, colorEstado, estado, ctx["nombre"], colorEstado, ctx["rut"], estado, comentariosHTML)

	return &Email{
		To:       []string{to},
		Subject:  fmt.Sprintf("Calificación %s - Gestión Tributaria", estado),
		HTMLBody: html,
		TextBody: fmt.Sprintf("Tu calificación para %s ha sido %s", ctx["rut"], strings.ToLower(estado)),
	}
}

// buildRolAsignadoEmail notifies a user of a role assignment
func buildRolAsignadoEmail(to string, ctx map[string]string) *Email {
	html := fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;">
		<h2>¡Tu rol ha sido asignado!</h2>
		<p>Hola <strong>%s</strong>,</p>
		<p>Tu rol en el sistema es: <strong>%s</strong></p>
		<p>Ya puedes iniciar sesión y acceder a tu dashboard.</p>
	</div>`, ctx["nombre"], ctx["rol"])

	return &Email{
		To:       []string{to},
		Subject:  "Tu rol ha sido asignado - Gestión Tributaria",
		HTMLBody: html,
		TextBody: fmt.Sprintf("Tu rol: %s", ctx["rol"]),
	}
}

// sendEmail sends an email using the Resend API
func sendEmail(cfg *config.Config, email *Email) error {
	// In development mode, log the email instead of sending
	if cfg.EmailTestMode {
		logEmailToConsole(email)
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
	}
	if email.HTMLBody != "" {
		params.Html = email.HTMLBody
	}
	if email.TextBody != "" {
		params.Text = email.TextBody
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %v", err)
	}

	log.Printf("Email sent via Resend (ID: %s) to: %v", sent.Id, email.To)
	return nil
}

// logEmailToConsole logs email details in development mode
func logEmailToConsole(email *Email) {
	separator := strings.Repeat("=", 80)
	log.Printf("\n%s\nEMAIL (test mode - not actually sent)\n%s", separator, separator)
	log.Printf("To: %v", email.To)
	log.Printf("Subject: %s", email.Subject)
	log.Printf("\n--- TEXT BODY ---\n%s", email.TextBody)
	log.Printf("%s\n", separator)
}
