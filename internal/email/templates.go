package email

import (
	"fmt"
	"html/template"
	"strings"
	"sync"
)

// TemplateManager holds parsed HTML templates keyed by name.
type TemplateManager struct {
	templates map[string]*template.Template
	mutex     sync.RWMutex
}

func NewTemplateManager() *TemplateManager {
	return &TemplateManager{
		templates: make(map[string]*template.Template),
	}
}

func (tm *TemplateManager) Render(templateName string, data TemplateData) (string, error) {
	tm.mutex.RLock()
	tpl, exists := tm.templates[templateName]
	tm.mutex.RUnlock()

	if !exists {
		return "", fmt.Errorf("template not found: %s", templateName)
	}

	var buf strings.Builder
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

func (tm *TemplateManager) AddTemplate(name string, templateStr string) error {
	tpl, err := template.New(name).Parse(templateStr)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	tm.mutex.Lock()
	tm.templates[name] = tpl
	tm.mutex.Unlock()
	return nil
}

// Template names used by the notification service.
const (
	TemplateVerificationCode = "verification_code"
	TemplateBatchCompleted   = "batch_completed"
)

const verificationCodeTemplate = `
<h2>Verify your email</h2>
<p>Use this code to confirm your email for <b>{{.LinkTitle}}</b>:</p>
<p style="font-size: 24px; letter-spacing: 4px;"><b>{{.Code}}</b></p>
<p>The code expires in {{.TTLMinutes}} minutes.</p>
`

const batchCompletedTemplate = `
<h2>New files received</h2>
<p>{{.UploaderName}} uploaded {{.FileCount}} file(s) ({{.TotalSize}}) to <b>{{.LinkTitle}}</b>.</p>
{{if .Message}}<blockquote>{{.Message}}</blockquote>{{end}}
`

// NewDefaultTemplateManager returns a manager preloaded with the built-in
// templates.
func NewDefaultTemplateManager() (*TemplateManager, error) {
	tm := NewTemplateManager()
	if err := tm.AddTemplate(TemplateVerificationCode, verificationCodeTemplate); err != nil {
		return nil, err
	}
	if err := tm.AddTemplate(TemplateBatchCompleted, batchCompletedTemplate); err != nil {
		return nil, err
	}
	return tm, nil
}
