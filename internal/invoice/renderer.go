// Package invoice renders the HTML payment request sent to each sponsor after
// settlement.
package invoice

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// Config holds the presentation parameters for rendered invoices.
type Config struct {
	Subject       string
	Currency      string
	EventName     string
	AccountHolder string
	IBAN          string
	BankName      string
}

// Line is one itemized pledge on an invoice. LapCount is the runner's live
// lap count at render time and is display-only; Amount is the frozen settled
// amount and is the money that counts.
type Line struct {
	RunnerName string
	LapCount   int
	Kind       domain.PledgeKind
	UnitAmount float64
	Amount     float64
}

// Invoice is one sponsor's rendered payment request.
type Invoice struct {
	SponsorName string
	Lines       []Line
	Total       float64
}

const bodyTemplate = `<html>
<body>
<p>Dear {{if .SponsorName}}{{.SponsorName}}{{else}}sponsor{{end}},</p>
<p>thank you for supporting {{.EventName}}! Here is your contribution summary:</p>
<table>
<tr><th align="left">Runner</th><th align="left">Pledge</th><th align="right">Amount</th></tr>
{{range .Lines -}}
<tr>
<td>{{.RunnerName}}</td>
<td>{{if eq .Kind "perLap"}}{{money .UnitAmount}} per lap ({{.LapCount}} laps run){{else}}fixed contribution{{end}}</td>
<td align="right">{{money .Amount}}</td>
</tr>
{{end -}}
<tr><td></td><td><strong>Total</strong></td><td align="right"><strong>{{money .Total}}</strong></td></tr>
</table>
{{if .IBAN}}<p>Please transfer the total to:<br>
{{.AccountHolder}}<br>
IBAN {{.IBAN}}{{if .BankName}}<br>{{.BankName}}{{end}}</p>
{{end}}<p>Kind regards,<br>the {{.EventName}} team</p>
</body>
</html>`

// Renderer turns grouped settled pledges into HTML invoice bodies.
type Renderer struct {
	cfg  Config
	tmpl *template.Template
}

// NewRenderer parses the invoice template with the given presentation config.
func NewRenderer(cfg Config) (*Renderer, error) {
	tmpl := template.New("invoice").Funcs(template.FuncMap{
		"money": func(amount float64) string {
			return fmt.Sprintf("%s %.2f", cfg.Currency, amount)
		},
	})
	tmpl, err := tmpl.Parse(bodyTemplate)
	if err != nil {
		return nil, fmt.Errorf("invoice: parse template: %w", err)
	}
	return &Renderer{cfg: cfg, tmpl: tmpl}, nil
}

// Subject returns the configured mail subject line.
func (r *Renderer) Subject() string {
	return r.cfg.Subject
}

// Render produces the HTML body for one sponsor's invoice.
func (r *Renderer) Render(inv Invoice) (string, error) {
	data := struct {
		Invoice
		EventName     string
		AccountHolder string
		IBAN          string
		BankName      string
	}{
		Invoice:       inv,
		EventName:     r.cfg.EventName,
		AccountHolder: r.cfg.AccountHolder,
		IBAN:          r.cfg.IBAN,
		BankName:      r.cfg.BankName,
	}

	var b strings.Builder
	if err := r.tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("invoice: render: %w", err)
	}
	return b.String(), nil
}
