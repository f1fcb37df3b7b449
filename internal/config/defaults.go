package config

const (
	defaultProjectDir = "~/rcsb-project"
	defaultLogDir     = "~/.local/share/rcsbsync/logs"

	defaultSearchBaseURL        = "https://search.rcsb.org/rcsbsearch/v2/query"
	defaultSearchPageSize       = 10000
	defaultSearchTimeoutSeconds = 60

	defaultEntryBaseURL           = "https://files.rcsb.org/download"
	defaultAlphaFoldBaseURL       = "https://alphafold.ebi.ac.uk/files"
	defaultDownloadJobs           = 2
	defaultChunkMultiplier        = 20
	defaultPauseSeconds           = 2
	defaultRequestsPerSecond      = 8.0
	defaultRetryAttempts          = 3
	defaultRetryBackoffSeconds    = 2
	defaultDownloadTimeoutSeconds = 120

	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 60

	// maxSearchPageSize is the documented server ceiling for rows per request.
	maxSearchPageSize = 10000
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ProjectDir: defaultProjectDir,
			LogDir:     defaultLogDir,
		},
		Search: Search{
			BaseURL:        defaultSearchBaseURL,
			PageSize:       defaultSearchPageSize,
			TimeoutSeconds: defaultSearchTimeoutSeconds,
		},
		Download: Download{
			EntryBaseURL:        defaultEntryBaseURL,
			AlphaFoldBaseURL:    defaultAlphaFoldBaseURL,
			Jobs:                defaultDownloadJobs,
			ChunkMultiplier:     defaultChunkMultiplier,
			PauseSeconds:        defaultPauseSeconds,
			RequestsPerSecond:   defaultRequestsPerSecond,
			RetryAttempts:       defaultRetryAttempts,
			RetryBackoffSeconds: defaultRetryBackoffSeconds,
			TimeoutSeconds:      defaultDownloadTimeoutSeconds,
			VerifyGzip:          true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
