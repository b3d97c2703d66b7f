package logger

// Option defines a function to modify logger configuration
type Option func(*Config)

func WithLevel(level string) Option {
	return func(c *Config) { c.Level = level }
}

// WithFormat sets the log format (json or console)
func WithFormat(format string) Option {
	return func(c *Config) { c.Format = format }
}

// WithOutput sets the log output (console, file, or both)
func WithOutput(output string) Option {
	return func(c *Config) { c.Output = output }
}

// WithFile routes logs to a rotated file in addition to the configured output
func WithFile(filename string, maxSizeMB, maxAgeDays, maxBackups int) Option {
	return func(c *Config) {
		c.File.Filename = filename
		c.File.MaxSize = maxSizeMB
		c.File.MaxAge = maxAgeDays
		c.File.MaxBackups = maxBackups
	}
}

// NewWithOptions creates a new logger from DefaultConfig plus options
func NewWithOptions(opts ...Option) (*Logger, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return New(cfg)
}

// Development returns a debug-level console logger for cmd tools
func Development() (*Logger, error) {
	return NewWithOptions(WithLevel("debug"), WithFormat("console"), WithOutput("console"))
}
