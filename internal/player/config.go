package player

import (
	"time"
)

type Config struct {
	Discord  DiscordConfig
	Music    MusicConfig
	Resolver ResolverConfig
	Server   ServerConfig
	Log      LogConfig
	App      AppConfig
}

type DiscordConfig struct {
	Token  string
	Prefix string // command prefix, e.g. "!"
}

type MusicConfig struct {
	DefaultVolume int // percent of nominal, 100 = unity gain
	MinVolume     int
	MaxVolume     int

	MaxQueueSize     int
	MaxTrackDuration time.Duration // tracks longer than this fail resolution

	HistorySize int
	SearchLimit int

	AutoDisconnect time.Duration // idle time before leaving voice
	StayConnected  bool          // 24/7 mode default for new sessions

	ConnectRetries    int
	ConnectRetryDelay time.Duration
}

type ResolverConfig struct {
	Timeout           time.Duration // per resolution attempt
	Retries           int
	RetryDelay        time.Duration
	RequestsPerSecond float64
	CacheSize         int
	BloomCapacity     int
	BloomFalsePosRate float64
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type LogConfig struct {
	Level string
}

type AppConfig struct {
	FloodLimitPerMinute int
}

const (
	// DefaultAutoDisconnectSecs is the idle period before the bot leaves voice
	// when 24/7 mode is off.
	DefaultAutoDisconnectSecs = 300
	// DefaultFloodLimitPerMinute caps commands per user per minute.
	DefaultFloodLimitPerMinute = 12
)

func DefaultConfig() *Config {
	return &Config{
		Discord: DiscordConfig{
			Prefix: "!",
		},
		Music: MusicConfig{
			DefaultVolume:     250,
			MinVolume:         0,
			MaxVolume:         500,
			MaxQueueSize:      500,
			MaxTrackDuration:  2 * time.Hour,
			HistorySize:       50,
			SearchLimit:       5,
			AutoDisconnect:    DefaultAutoDisconnectSecs * time.Second,
			StayConnected:     true,
			ConnectRetries:    3,
			ConnectRetryDelay: 2 * time.Second,
		},
		Resolver: ResolverConfig{
			Timeout:           15 * time.Second,
			Retries:           3,
			RetryDelay:        500 * time.Millisecond,
			RequestsPerSecond: 4,
			CacheSize:         1000,
			BloomCapacity:     10000,
			BloomFalsePosRate: 0.001,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
		App: AppConfig{
			FloodLimitPerMinute: DefaultFloodLimitPerMinute,
		},
	}
}
