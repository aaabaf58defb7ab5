package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const envPrefix = "CLASSROOM"

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type RTCConfig struct {
	ICEServers         []ICEServer `mapstructure:"ice_servers"`
	ICETransportPolicy string      `mapstructure:"ice_transport_policy"`
}

type Config struct {
	Mode           string        `mapstructure:"mode"`
	Port           int           `mapstructure:"port"`
	StaticPath     string        `mapstructure:"static_path"`
	ReadLimit      int64         `mapstructure:"read_limit"`
	PingPeriod     time.Duration `mapstructure:"ping_period"`
	PongWait       time.Duration `mapstructure:"pong_wait"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	SendBuffer     int           `mapstructure:"send_buffer"`
	RoomQueue      int           `mapstructure:"room_queue"`
	Secret         string        `mapstructure:"secret"`
	LogLevel       string        `mapstructure:"log_level"`
	Backpressure   string        `mapstructure:"backpressure"`
	JoinLimit      int           `mapstructure:"join_limit"`
	JoinInterval   time.Duration `mapstructure:"join_interval"`
	PersistTimeout time.Duration `mapstructure:"persist_timeout"`
	HistoryLimit   int           `mapstructure:"history_limit"`
	Store          StoreConfig   `mapstructure:"store"`
	RTC            RTCConfig     `mapstructure:"rtc"`
}

// Load reads config/config.<CONFIG_ENV>.yaml on top of defaults, then lets
// CLASSROOM_* environment variables (optionally from .env) override it.
func Load() (*Config, error) {
	cfg, _, err := load()
	return cfg, err
}

// LoadWatched is Load plus a watch on the config file. onChange gets every
// revision that decodes and validates; broken edits are logged and skipped.
func LoadWatched(onChange func(*Config)) (*Config, error) {
	cfg, v, err := load()
	if err != nil {
		return nil, err
	}
	if v == nil {
		return cfg, nil
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(v)
		if err != nil {
			log.Error().Err(err).Str("module", "config").Str("file", e.Name).Msg("config reload rejected")
			return
		}
		log.Info().Str("module", "config").Str("file", e.Name).Msg("config reloaded")
		onChange(next)
	})
	v.WatchConfig()
	return cfg, nil
}

// load returns the viper instance only when a config file was read, since
// there is nothing to watch otherwise.
func load() (*Config, *viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("module", "config").Msg("failed to read .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileRead := true
	if err := v.ReadInConfig(); err != nil {
		fileRead = false
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("config ready")
	if !fileRead {
		return cfg, nil, nil
	}
	return cfg, v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("send_buffer", 256)
	v.SetDefault("room_queue", 1024)
	v.SetDefault("secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("backpressure", "kick")
	v.SetDefault("join_limit", 5)
	v.SetDefault("join_interval", "10s")
	v.SetDefault("persist_timeout", "5s")
	v.SetDefault("history_limit", 100)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "liveclass.db")
	v.SetDefault("rtc.ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
	v.SetDefault("rtc.ice_transport_policy", "all")
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backpressure {
	case "kick", "drop":
	default:
		return fmt.Errorf("backpressure must be kick or drop, got %q", c.Backpressure)
	}
	switch c.Store.Driver {
	case "sqlite", "postgres", "none":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.SendBuffer <= 0 || c.RoomQueue <= 0 || c.ReadLimit <= 0 {
		return errors.New("send_buffer, room_queue and read_limit must be positive")
	}
	if c.HistoryLimit <= 0 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}
	if c.JoinLimit <= 0 {
		return fmt.Errorf("join_limit must be positive, got %d", c.JoinLimit)
	}
	if c.JoinInterval <= 0 || c.PersistTimeout <= 0 || c.WriteTimeout <= 0 || c.PingPeriod <= 0 {
		return errors.New("join_interval, persist_timeout, write_timeout and ping_period must be positive")
	}
	if c.PingPeriod >= c.PongWait {
		return errors.New("ping_period must be shorter than pong_wait")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if webrtc.NewICETransportPolicy(c.RTC.ICETransportPolicy).String() != c.RTC.ICETransportPolicy {
		return fmt.Errorf("unknown ice_transport_policy %q", c.RTC.ICETransportPolicy)
	}
	for _, s := range c.RTC.ICEServers {
		if len(s.URLs) == 0 {
			return errors.New("ice server without urls")
		}
	}
	return nil
}

// WebRTC renders the ICE settings browsers should build their peer
// connections with.
func (c *Config) WebRTC() webrtc.Configuration {
	servers := make([]webrtc.ICEServer, 0, len(c.RTC.ICEServers))
	for _, s := range c.RTC.ICEServers {
		srv := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			srv.Credential = s.Credential
			srv.CredentialType = webrtc.ICECredentialTypePassword
		}
		servers = append(servers, srv)
	}
	return webrtc.Configuration{
		ICEServers:         servers,
		ICETransportPolicy: webrtc.NewICETransportPolicy(c.RTC.ICETransportPolicy),
	}
}

// NewLogger writes human-readable lines in debug mode and JSON otherwise.
func (c *Config) NewLogger(w io.Writer) zerolog.Logger {
	if c.Mode == "debug" {
		w = zerolog.ConsoleWriter{Out: w}
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

// ApplyLogLevel sets the global zerolog level from the config.
func (c *Config) ApplyLogLevel() {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return
	}
	zerolog.SetGlobalLevel(lvl)
}
