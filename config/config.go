package config

import (
	"os"
	"strings"
	"time"

	"github.com/Strum355/log"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func InitConfig() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, proceeding with defaults.")
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	initDefaults()
	viper.AutomaticEnv()
}

// Settings is a typed snapshot of the configuration
type Settings struct {
	RelayURL       string
	Reconnect      time.Duration
	RelayHeartbeat time.Duration

	DirectoryURL     string
	DirectoryTimeout time.Duration

	UserID       string
	UserNickname string
	UserAvatar   string
	UserToken    string
	StationID    string

	RedisAddress string
	ResolveCache time.Duration

	SearchURL       string
	SearchKey       string
	VerifyPlayable  bool
	ResolveTimeout  time.Duration
	SeekThreshold   time.Duration
	PlaybackBeat    time.Duration
	PlaybackTick    time.Duration
	MaxAlternatives int

	Prefix string
}

// Load reads the current configuration. InitConfig must have been called.
// A missing user id is taken from the user token when there is one.
func Load() Settings {
	s := Settings{
		RelayURL:       viper.GetString("relay.url"),
		Reconnect:      viper.GetDuration("relay.reconnect"),
		RelayHeartbeat: viper.GetDuration("relay.heartbeat"),

		DirectoryURL:     viper.GetString("directory.url"),
		DirectoryTimeout: viper.GetDuration("directory.timeout"),

		UserID:       viper.GetString("user.id"),
		UserNickname: viper.GetString("user.nickname"),
		UserAvatar:   viper.GetString("user.avatar"),
		UserToken:    viper.GetString("user.token"),
		StationID:    viper.GetString("station.id"),

		RedisAddress: viper.GetString("redis.address"),
		ResolveCache: time.Duration(viper.GetInt("cache.resolve")) * time.Second,

		SearchURL:       viper.GetString("resolver.search_url"),
		SearchKey:       viper.GetString("resolver.api_key"),
		VerifyPlayable:  viper.GetBool("resolver.verify"),
		ResolveTimeout:  viper.GetDuration("resolver.timeout"),
		SeekThreshold:   viper.GetDuration("playback.seek_threshold"),
		PlaybackBeat:    viper.GetDuration("playback.heartbeat"),
		PlaybackTick:    viper.GetDuration("playback.tick"),
		MaxAlternatives: viper.GetInt("playback.max_alternatives"),

		Prefix: viper.GetString("prefix"),
	}

	if s.UserID == "" && s.UserToken != "" {
		id, nickname, err := identityFromToken(s.UserToken)
		if err != nil {
			log.WithError(err).Warn("Couldn't read identity from user token")
			return s
		}
		s.UserID = id
		if s.UserNickname == "" {
			s.UserNickname = nickname
		}
	}
	if s.UserNickname == "" {
		s.UserNickname = os.Getenv("USER")
	}
	return s
}
