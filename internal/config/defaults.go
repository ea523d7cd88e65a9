package config

const (
	defaultDataDir            = "~/.local/share/cinebot"
	defaultInputFile          = "~/.local/share/cinebot/now_playing.txt"
	defaultStateFile          = "~/.local/share/cinebot/site/votes.json"
	defaultOutputHTML         = "~/.local/share/cinebot/site/calendar.html"
	defaultVoteResponseFile   = "~/.local/share/cinebot/vote_response.txt"
	defaultVoteTraceFile      = "~/.local/share/cinebot/logs/vote_trace.log"
	defaultHistoryDB          = "~/.local/share/cinebot/history.db"
	defaultLogDir             = "~/.local/share/cinebot/logs"
	defaultTMDBLanguage       = "es-ES"
	defaultTMDBBaseURL        = "https://api.themoviedb.org/3"
	defaultTMDBImageBaseURL   = "https://image.tmdb.org/t/p/w185"
	defaultPollInterval       = 10
	defaultDaytimeStartHour   = 12
	defaultDaytimeEndHour     = 19
	defaultPublishRemote      = "origin"
	defaultLockTimeoutSeconds = 10
	defaultNotifyTimeout      = 10
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputFile:        defaultInputFile,
			StateFile:        defaultStateFile,
			OutputHTML:       defaultOutputHTML,
			VoteResponseFile: defaultVoteResponseFile,
			VoteTraceFile:    defaultVoteTraceFile,
			HistoryDB:        defaultHistoryDB,
			LogDir:           defaultLogDir,
		},
		TMDB: TMDB{
			BaseURL:      defaultTMDBBaseURL,
			Language:     defaultTMDBLanguage,
			ImageBaseURL: defaultTMDBImageBaseURL,
		},
		Poll: Poll{
			IntervalSeconds: defaultPollInterval,
		},
		Slots: Slots{
			DaytimeStartHour: defaultDaytimeStartHour,
			DaytimeEndHour:   defaultDaytimeEndHour,
		},
		Publish: Publish{
			Enabled: true,
			Remote:  defaultPublishRemote,
		},
		State: State{
			LockTimeoutSeconds: defaultLockTimeoutSeconds,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNotifyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
