package message

import (
	"fmt"
	"strings"
	"time"

	"vepbot/internal/jobs"
)

// Trailer sentences, appended in this order when the matching flag is set.
const (
	TrailerPapers       = "Por favor, enviános los papeles del mes para poder completar la liquidación. "
	TrailerZClosing     = "Recordá mandarnos el cierre Z del controlador fiscal. "
	TrailerPurchases    = "No te olvides de enviarnos las facturas de compras del período. "
	TrailerAuditClosing = "Necesitamos también la cinta de auditoría del controlador fiscal. "
)

var monthNames = [...]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// Renderer substitutes placeholders with plain text replacement. Unknown
// tokens are left as they are.
type Renderer struct {
	Loc *time.Location
	Now func() time.Time
}

func NewRenderer(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{Loc: loc, Now: time.Now}
}

func (r *Renderer) Render(tmpl string, rcp jobs.Recipient, job jobs.Job) string {
	now := r.Now().In(r.Loc)
	informal := rcp.DisplayName()

	body := tmpl
	if !strings.Contains(body, "{nombre}") && !strings.Contains(body, "{alter_name}") {
		body = fmt.Sprintf("Hola %s,\\n\\n", informal) + body
	}

	month := MonthName(now.Month())
	year := fmt.Sprintf("%d", now.Year())

	caducate := ""
	if job.Caducate != nil {
		caducate = strings.TrimSpace(*job.Caducate)
	}
	if caducate == "" {
		caducate = MonthName(now.AddDate(0, 0, 1-now.Day()).AddDate(0, 1, 0).Month())
	}

	body = strings.NewReplacer(
		"{nombre}", informal,
		"{alter_name}", rcp.AlterName,
		"{name}", rcp.Name,
		"{caducate}", caducate,
		"{mes_anio}", month+" "+year,
		"{mes}", month,
		"{anio}", year,
		"{tipo}", string(job.Category),
		`\n`, "\n",
	).Replace(body)

	var b strings.Builder
	b.WriteString(body)
	if rcp.NeedPapers {
		b.WriteString(TrailerPapers)
	}
	if rcp.NeedZClosing {
		b.WriteString(TrailerZClosing)
	}
	if rcp.NeedPurchases {
		b.WriteString(TrailerPurchases)
	}
	if rcp.NeedAuditClosing {
		b.WriteString(TrailerAuditClosing)
	}
	return b.String()
}

func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}
