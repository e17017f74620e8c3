package config

const (
	defaultDataDir            = "~/.local/share/popcorn"
	defaultLogDir             = "~/.local/share/popcorn/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultStaleRetryAttempts = 3
	defaultSearchPerPage      = 20
	defaultSearchMaxPerPage   = 100
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Engine: Engine{
			StaleRetryAttempts: defaultStaleRetryAttempts,
		},
		Search: Search{
			DefaultPerPage: defaultSearchPerPage,
			MaxPerPage:     defaultSearchMaxPerPage,
		},
	}
}
