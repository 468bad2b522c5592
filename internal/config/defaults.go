package config

const (
	defaultLibraryDir          = "~/music/library"
	defaultLogDir              = "~/.local/share/tunesort/logs"
	defaultAudDBaseURL         = "https://api.audd.io/"
	defaultAudDTimeoutSeconds  = 30
	defaultCallDelaySeconds    = 1.0
	defaultMaxAttempts         = 3
	defaultClipDurationSeconds = 10
	defaultMinDurationSeconds  = 10.0
	defaultSingleSongsDir      = "Single Songs"
	defaultMinFreeMiB          = 256
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LibraryDir: defaultLibraryDir,
			LogDir:     defaultLogDir,
		},
		AudD: AudD{
			BaseURL:        defaultAudDBaseURL,
			TimeoutSeconds: defaultAudDTimeoutSeconds,
		},
		Identification: Identification{
			CallDelaySeconds:    defaultCallDelaySeconds,
			MaxAttempts:         defaultMaxAttempts,
			ClipDurationSeconds: defaultClipDurationSeconds,
			MinDurationSeconds:  defaultMinDurationSeconds,
		},
		Organizer: Organizer{
			SingleSongsDir: defaultSingleSongsDir,
			MinFreeMiB:     defaultMinFreeMiB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
