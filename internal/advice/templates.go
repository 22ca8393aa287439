package advice

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	"text/template"

	"tagihan/internal/amortization"
)

var planAdviceTmpl = template.Must(template.New("plan").Parse(
	`{{if eq .Convention "flat"}}Flat-rate plan: interest is charged on the full {{.Principal}} for all {{.Tenor}} months, so early repayment does not reduce it. {{else}}Annuity plan: interest is charged on the remaining balance, so each month more of the {{.MonthlyInstallment}} installment goes to principal. {{end}}` +
		`You pay {{.MonthlyInstallment}} per month for {{.Tenor}} months, {{.TotalPayment}} in total, of which {{.TotalInterest}} is interest.` +
		`{{if .TotalInterest.IsZero}} This plan is interest free.{{end}}`))

var reminderSubjectTmpl = template.Must(template.New("subject").Parse(
	`{{if .Overdue}}Overdue{{else}}Upcoming{{end}} payment: {{.BankName}} {{.CardName}}`))

var reminderHTMLTmpl = htmltemplate.Must(htmltemplate.New("reminder").Parse(`<p>Hi {{.RecipientName}},</p>
{{if .Overdue}}<p>Your <strong>{{.BankName}} {{.CardName}}</strong> payment of <strong>{{.Outstanding}}</strong> was due on {{.DueDate.Format "2 January 2006"}} and is now overdue. Please pay as soon as possible to avoid late fees.</p>
{{else}}<p>This is a reminder that your <strong>{{.BankName}} {{.CardName}}</strong> payment of <strong>{{.Outstanding}}</strong> is due on {{.DueDate.Format "2 January 2006"}}.</p>
{{end}}<p>Tagihan</p>
`))

func renderPlanAdvice(p amortization.Plan) string {
	var buf bytes.Buffer
	if err := planAdviceTmpl.Execute(&buf, p); err != nil {
		return fmt.Sprintf("Monthly installment %s over %d months.", p.MonthlyInstallment, p.Tenor)
	}
	return buf.String()
}

func renderReminder(in ReminderInput) (Email, error) {
	if strings.TrimSpace(in.RecipientName) == "" {
		in.RecipientName = "there"
	}

	var subject, html bytes.Buffer
	if err := reminderSubjectTmpl.Execute(&subject, in); err != nil {
		return Email{}, fmt.Errorf("render reminder subject: %w", err)
	}
	if err := reminderHTMLTmpl.Execute(&html, in); err != nil {
		return Email{}, fmt.Errorf("render reminder body: %w", err)
	}

	state := "is due on"
	if in.Overdue {
		state = "was due on"
	}
	text := fmt.Sprintf("Hi %s,\n\nYour %s %s payment of %s %s %s.\n\nTagihan\n",
		in.RecipientName, in.BankName, in.CardName, in.Outstanding, state, in.DueDate.Format("2 January 2006"))

	return Email{
		Subject:  strings.TrimSpace(subject.String()),
		HTMLBody: html.String(),
		TextBody: text,
	}, nil
}
