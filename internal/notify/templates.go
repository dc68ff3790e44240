package notify

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"text/template"
)

const (
	templateApproved = "driver_approved"
	templateRejected = "driver_rejected"
)

var (
	msgTemplates map[string]*template.Template
	tmplMu       sync.RWMutex
)

// Template actions and *bold* / `code` spans are kept as written; every
// other MarkdownV2 special character in the static text is escaped.
var protectedRegion = regexp.MustCompile(
	`(\{\{-?\s*.*?\s*-?\}\}` +
		`|\*[^*\n]+\*` +
		"|`[^`\n]+`" +
		`)`,
)

var staticEscaper = regexp.MustCompile(`([_\[\]()~>#+\-=|{}.!\\])`)

var markdownV2Escape = regexp.MustCompile(`([_*\[\]()~` + "`" + `>#+\-=|{}.!\\])`)

func EscapeMarkdownV2(text string) string {
	return markdownV2Escape.ReplaceAllString(text, `\$1`)
}

//nolint:lll // template strings are naturally long
var defaults = map[string]string{
	templateApproved: "*Driver Approved*\n\n*Driver:* {{.FullName}}\n*Driver ID:* `{{.DriverID}}`\n*Telegram ID:* `{{.TelegramID}}`\n\n*Decided:* {{.Date}}",
	templateRejected: "*Driver Rejected*\n\n*Driver:* {{.FullName}}\n*Driver ID:* `{{.DriverID}}`\n*Telegram ID:* `{{.TelegramID}}`\n\n*Fields to update:*\n{{- range .Reasons}}\n  • {{.}}\n{{- end}}\n\n*Decided:* {{.Date}}",
}

type messageData struct {
	FullName   string
	DriverID   int64
	TelegramID int64
	Reasons    []string
	Date       string
}

func prepareTemplate(raw string) string {
	locs := protectedRegion.FindAllStringIndex(raw, -1)
	if len(locs) == 0 {
		return staticEscaper.ReplaceAllString(raw, `\$1`)
	}

	var b strings.Builder
	last := 0
	for _, loc := range locs {
		if loc[0] > last {
			b.WriteString(staticEscaper.ReplaceAllString(raw[last:loc[0]], `\$1`))
		}
		b.WriteString(raw[loc[0]:loc[1]])
		last = loc[1]
	}
	if last < len(raw) {
		b.WriteString(staticEscaper.ReplaceAllString(raw[last:], `\$1`))
	}
	return b.String()
}

// InitTemplates parses the built-in message templates. It is safe to call
// more than once.
func InitTemplates() error {
	parsed := make(map[string]*template.Template, len(defaults))
	for name, raw := range defaults {
		tmpl, err := template.New(name).
			Option("missingkey=error").
			Parse(prepareTemplate(raw))
		if err != nil {
			return fmt.Errorf("template %s: %w", name, err)
		}
		parsed[name] = tmpl
	}

	tmplMu.Lock()
	msgTemplates = parsed
	tmplMu.Unlock()
	return nil
}

func renderMessage(name string, data messageData) (string, error) {
	tmplMu.RLock()
	tmpl, ok := msgTemplates[name]
	tmplMu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %s not found", name)
	}

	escaped := messageData{
		FullName:   EscapeMarkdownV2(data.FullName),
		DriverID:   data.DriverID,
		TelegramID: data.TelegramID,
		Date:       EscapeMarkdownV2(data.Date),
	}
	for _, r := range data.Reasons {
		escaped.Reasons = append(escaped.Reasons, EscapeMarkdownV2(r))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, escaped); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
