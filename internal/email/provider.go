package email

// Provider sends outbound mail. The notification service depends on this
// interface only, so tests swap in a recording fake.
type Provider interface {
	// Send delivers a prepared message
	Send(email *Email) error

	// SendTemplate renders a named template and delivers it
	SendTemplate(to []string, subject string, templateName string, data TemplateData) error

	// Validate checks the provider configuration
	Validate() error

	// Close releases provider resources
	Close() error
}

// TemplateRenderer renders named HTML templates.
type TemplateRenderer interface {
	Render(templateName string, data TemplateData) (string, error)
	AddTemplate(name string, template string) error
}
