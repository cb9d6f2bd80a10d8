package internal

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	mode   runMode
}

type runMode int

const (
	modeServe runMode = iota
	modeMCP
)

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithMCP serves the MCP tools on stdin/stdout instead of the HTTP server.
func WithMCP() Option {
	return func(a *application) {
		a.mode = modeMCP
	}
}
