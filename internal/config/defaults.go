package config

const (
	defaultDataDir   = "~/.local/share/downsort"
	defaultLogDir    = "~/.local/share/downsort/logs"
	defaultLogLevel  = "info"
	defaultLogFormat = "console"

	defaultAPIBind = "127.0.0.1:7519"

	defaultDownloadsDir = "~/Downloads"

	defaultFilenameThreshold    = 75.0
	defaultURLThreshold         = 75.0
	defaultTitleThreshold       = 60.0
	defaultContentThreshold     = 50.0
	defaultMaxContextItems      = 3
	defaultPromptTimeoutSeconds = 15
	defaultTabCacheEntries      = 3
	defaultTabCacheTTLHours     = 24
	defaultOraclePairConfidence = 85.0

	defaultOracleBaseURL        = "https://openrouter.ai/api/v1/chat/completions"
	defaultOracleModel          = "google/gemini-3-flash-preview"
	defaultOracleReferer        = "https://github.com/downsort/downsort"
	defaultOracleTitle          = "Downsort Placement Oracle"
	defaultOracleTimeoutSeconds = 20

	defaultNtfyRequestTimeout = 10

	defaultMoverSettleSeconds = 3
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		DataDir:   defaultDataDir,
		LogDir:    defaultLogDir,
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
		API: API{
			Bind: defaultAPIBind,
		},
		Downloads: Downloads{
			Dir: defaultDownloadsDir,
		},
		Matching: Matching{
			FilenameThreshold:    defaultFilenameThreshold,
			URLThreshold:         defaultURLThreshold,
			TitleThreshold:       defaultTitleThreshold,
			ContentThreshold:     defaultContentThreshold,
			MaxContextItems:      defaultMaxContextItems,
			PromptTimeoutSeconds: defaultPromptTimeoutSeconds,
			TabCacheEntries:      defaultTabCacheEntries,
			TabCacheTTLHours:     defaultTabCacheTTLHours,
			OraclePairConfidence: defaultOraclePairConfidence,
		},
		Oracle: Oracle{
			BaseURL:        defaultOracleBaseURL,
			Model:          defaultOracleModel,
			Referer:        defaultOracleReferer,
			Title:          defaultOracleTitle,
			TimeoutSeconds: defaultOracleTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyRequestTimeout,
			Routed:         true,
			Prompts:        true,
			Errors:         true,
		},
		Mover: Mover{
			Enabled:       true,
			SettleSeconds: defaultMoverSettleSeconds,
		},
	}
}
