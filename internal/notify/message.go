package notify

import (
	"fmt"
	"html"
	"strings"

	"sortec/entity"
)

// composeMail returns subject and HTML body for an intent.
func composeMail(intent entity.NotificationIntent) (string, string, error) {
	p := intent.Payload
	name := html.EscapeString(p.ParticipantName)
	var sb strings.Builder

	switch intent.Kind {
	case entity.KindAdminReview:
		sb.WriteString(fmt.Sprintf("<p>El participante <b>%s</b> ha registrado un pago.</p>", name))
		if p.ContestCode != "" {
			sb.WriteString(fmt.Sprintf("<p>Código asignado: <b>%s</b></p>", html.EscapeString(p.ContestCode)))
		}
		sb.WriteString("<p>Por favor, revisa la solicitud:</p>")
		sb.WriteString(fmt.Sprintf("<a href='%s' style='color: green; font-weight: bold;'>Aprobar</a> | ", html.EscapeString(p.ApproveLink)))
		sb.WriteString(fmt.Sprintf("<a href='%s' style='color: red; font-weight: bold;'>Denegar</a>", html.EscapeString(p.DenyLink)))
		sb.WriteString("<p><b>Imagen del voucher:</b></p>")
		sb.WriteString(fmt.Sprintf("<img src='%s' width='300'/>", html.EscapeString(p.VoucherUrl)))
		return "Nuevo Registro Pendiente", sb.String(), nil

	case entity.KindApproved:
		sb.WriteString(fmt.Sprintf("<p>Hola <b>%s</b>,</p>", name))
		sb.WriteString("<p>Tu registro ha sido aprobado. ¡Gracias por participar en nuestro sorteo!</p>")
		sb.WriteString(fmt.Sprintf("<p><strong>Tu código para el sorteo es: <span style='font-size:18px;'>%s</span></strong></p>", html.EscapeString(p.ContestCode)))
		if p.SiteUrl != "" {
			sb.WriteString(fmt.Sprintf("<p>Podrás revisarlo en el listado de participantes aprobados: <a href='%s'>%s</a></p>",
				html.EscapeString(p.SiteUrl), html.EscapeString(p.SiteUrl)))
		}
		if p.ImageUrl != "" {
			sb.WriteString("<p><b>Detalles del sorteo:</b></p>")
			sb.WriteString(fmt.Sprintf("<img src='%s' width='600'/>", html.EscapeString(p.ImageUrl)))
		}
		return "Registro Aprobado", sb.String(), nil

	case entity.KindDenied:
		sb.WriteString(fmt.Sprintf("<p>Hola <b>%s</b>,</p>", name))
		sb.WriteString("<p>Tu registro no fue aprobado porque el voucher de pago que adjuntaste no pudo ser verificado.</p>")
		if p.SiteUrl != "" {
			sb.WriteString(fmt.Sprintf("<p>Si el cobro no se realizó, vuelve a registrarte en <a href='%s'>%s</a>.</p>",
				html.EscapeString(p.SiteUrl), html.EscapeString(p.SiteUrl)))
		}
		sb.WriteString("<p>Gracias y disculpa las molestias.</p>")
		return "Registro Denegado", sb.String(), nil
	}
	return "", "", fmt.Errorf("unknown notification kind: %q", intent.Kind)
}
