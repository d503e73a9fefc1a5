package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	texttemplate "text/template"
)

type NotificationKind string

const (
	NotificationRegistration	NotificationKind = "registration"
	NotificationOrderPlaced		NotificationKind = "order_placed"
	NotificationItemShipped		NotificationKind = "item_shipped"
)

type NotificationData struct {
	Kind				NotificationKind
	CompanyName	string
	OrderNumber	string
	ItemName		string
	ETADays			*int
}

// Email is a rendered customer message.
type Email struct {
	Subject		string
	Text			string
	HTML			string
}

const notificationHTML = `<p>Hi,</p>
{{- if eq .Kind "registration"}}
<p>Thanks for registering at {{.CompanyName}}. Please check your inbox for a confirmation link if required.</p>
{{- else if eq .Kind "order_placed"}}
<p>Your order {{.OrderNumber}} has been placed successfully. We'll notify you when it ships.</p>
{{- else if eq .Kind "item_shipped"}}
<p>Good news! Your item '{{.ItemName}}' from order {{.OrderNumber}} has shipped.{{etaText .ETADays}}</p>
{{- end}}
<p>Regards,<br>The {{.CompanyName}} Team</p>`

const notificationText = `Hi,

{{if eq .Kind "registration" -}}
Thanks for registering at {{.CompanyName}}. Please check your inbox for a confirmation link if required.
{{- else if eq .Kind "order_placed" -}}
Your order {{.OrderNumber}} has been placed successfully. We'll notify you when it ships.
{{- else if eq .Kind "item_shipped" -}}
Good news! Your item '{{.ItemName}}' from order {{.OrderNumber}} has shipped.{{etaText .ETADays}}
{{- end}}

Regards,
The {{.CompanyName}} Team`

func etaText(days *int) string {
	if days == nil || *days == 0 {
		return ""
	}
	return fmt.Sprintf(" Estimated delivery in %d days.", *days)
}

var (
	htmlTmpl = template.Must(template.New("notification_html").Funcs(template.FuncMap{"etaText": etaText}).Parse(notificationHTML))
	textTmpl = texttemplate.Must(texttemplate.New("notification_text").Funcs(texttemplate.FuncMap{"etaText": etaText}).Parse(notificationText))
)

func subject(data NotificationData) (string, error) {
	switch data.Kind {
	case NotificationRegistration:
		return fmt.Sprintf("Welcome to %s!", data.CompanyName), nil
	case NotificationOrderPlaced:
		return fmt.Sprintf("Your %s Order #%s Confirmed", data.CompanyName, data.OrderNumber), nil
	case NotificationItemShipped:
		return fmt.Sprintf("An item from your %s Order #%s has shipped!", data.CompanyName, data.OrderNumber), nil
	}
	return "", fmt.Errorf("unknown notification kind %q", data.Kind)
}

func RenderNotification(data NotificationData) (*Email, error) {
	subj, err := subject(data)
	if err != nil {
		return nil, err
	}
	var html bytes.Buffer
	if err := htmlTmpl.Execute(&html, data); err != nil {
		return nil, err
	}
	text, err := renderText(data)
	if err != nil {
		return nil, err
	}
	return &Email{Subject: subj, Text: text, HTML: html.String()}, nil
}

func renderText(data NotificationData) (string, error) {
	var buf strings.Builder
	if err := textTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
