package config

const (
	defaultConfigPath         = "~/.config/recitation/config.toml"
	defaultDataDir            = "~/.local/share/recitation"
	defaultWorkDir            = "~/.local/share/recitation/work"
	defaultLogDir             = "~/.local/state/recitation/logs"
	defaultQueueMode          = QueueModeFIFO
	defaultWorkerCount        = 8
	defaultQueuePollInterval  = 1
	defaultErrorRetryInterval = 10
	defaultHeartbeatInterval  = 30
	defaultResolverBaseURL    = "https://www.ncbi.nlm.nih.gov/pmc/utils/idconv/v1.0/"
	defaultResolverAttempts   = 5
	defaultResolverRetryMS    = 500
	defaultResolverTimeout    = 30
	defaultOAServiceURL       = "https://www.ncbi.nlm.nih.gov/pmc/utils/oa/oa.fcgi"
	defaultDownloadTimeout    = 300
	defaultSourceExtension    = ".nxml"
	defaultTransformCommand   = "xsltproc"
	defaultTransformTimeout   = 120
	defaultWikiAPIURL         = "https://en.wikisource.org/w/api.php"
	defaultWikiBasePath       = "Wikisource:WikiProject Open Access/Programmatic import from PubMed Central/"
	defaultWikiUserAgent      = "recitation/dev"
	defaultWikiTimeout        = 120
	defaultNtfyTimeout        = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
)

// MaxResolverAttempts bounds resolver.max_attempts.
const MaxResolverAttempts = 20

// Queue claim orders.
const (
	QueueModeFIFO = "fifo"
	QueueModeLIFO = "lifo"
)

// Environment variables consulted when wiki credentials are absent from the file.
const (
	EnvWikiUsername = "RECITATION_WIKI_USERNAME"
	EnvWikiPassword = "RECITATION_WIKI_PASSWORD"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Queue: Queue{
			Mode: defaultQueueMode,
		},
		Workflow: Workflow{
			WorkerCount:        defaultWorkerCount,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
		},
		Resolver: Resolver{
			BaseURL:      defaultResolverBaseURL,
			MaxAttempts:  defaultResolverAttempts,
			RetryDelayMS: defaultResolverRetryMS,
			Timeout:      defaultResolverTimeout,
		},
		Archive: Archive{
			OAServiceURL:    defaultOAServiceURL,
			DownloadTimeout: defaultDownloadTimeout,
			SourceExtension: defaultSourceExtension,
		},
		Transform: Transform{
			Command: defaultTransformCommand,
			Timeout: defaultTransformTimeout,
		},
		Wiki: Wiki{
			APIURL:    defaultWikiAPIURL,
			BasePath:  defaultWikiBasePath,
			UserAgent: defaultWikiUserAgent,
			Timeout:   defaultWikiTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
