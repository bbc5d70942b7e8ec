package config

import (
	"os"

	"github.com/spf13/viper"
)

func initDefaults() {
	viper.SetDefault("relay.url", "ws://localhost:8080/relay")
	viper.SetDefault("relay.reconnect", "5s")
	viper.SetDefault("relay.heartbeat", "4s")

	viper.SetDefault("directory.url", "http://localhost:8080/api")
	viper.SetDefault("directory.timeout", "10s")

	viper.SetDefault("user.id", os.Getenv("TANDEM_USER"))

	viper.SetDefault("redis.address", "")
	viper.SetDefault("cache.resolve", 86400)

	viper.SetDefault("resolver.search_url", "https://www.googleapis.com/youtube/v3/search")
	viper.SetDefault("resolver.api_key", os.Getenv("YOUTUBE_API_KEY"))
	viper.SetDefault("resolver.verify", true)
	viper.SetDefault("resolver.timeout", "12s")

	viper.SetDefault("playback.seek_threshold", "1200ms")
	viper.SetDefault("playback.heartbeat", "2s")
	viper.SetDefault("playback.tick", "250ms")
	viper.SetDefault("playback.max_alternatives", 5)

	viper.SetDefault("prefix", "/")
}
