package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Tandem/commands"
	"Tandem/config"
	"Tandem/directory"
	"Tandem/handlers"
	"Tandem/media"
	"Tandem/playback"
	"Tandem/redis_client"
	"Tandem/relay"
	"Tandem/session"
	"Tandem/station"
	"Tandem/yt"

	"github.com/Strum355/log"
)

var production *bool

func main() {
	// Sets Flag to Debug Mode
	production = flag.Bool("p", false, "enables production with json logging")
	flag.Parse()
	if *production {
		log.InitJSONLogger(&log.Config{Output: os.Stderr})
	} else {
		log.InitSimpleLogger(&log.Config{Output: os.Stderr})
	}

	// Sets up Configurations for Viper
	config.InitConfig()
	settings := config.Load()
	if settings.UserID == "" || settings.StationID == "" {
		log.Error("user.id and station.id must be set")
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rdb := redis_client.New(ctx, settings.RedisAddress)
	if rdb != nil {
		defer rdb.Close()
	}

	// Track resolution and the local engine share one metadata client
	checker := yt.NewPlayabilityChecker()
	var verifier yt.Verifier
	if settings.VerifyPlayable {
		verifier = checker
	}
	resolver := yt.NewResolver(
		yt.NewSearchClient(settings.SearchURL, settings.SearchKey, settings.ResolveTimeout),
		verifier,
		rdb,
		settings.ResolveCache,
	)
	engine := media.NewVirtual(nil, probe(checker))

	header := http.Header{}
	if settings.UserToken != "" {
		header.Set("Authorization", "Bearer "+settings.UserToken)
	}
	conn := relay.New(relay.Options{
		URL:       settings.RelayURL,
		Reconnect: settings.Reconnect,
		Heartbeat: settings.RelayHeartbeat,
		Header:    header,
	})
	dir := directory.New(settings.DirectoryURL, settings.UserID, settings.UserToken, settings.DirectoryTimeout)

	opts := playback.DefaultOptions()
	if settings.SeekThreshold > 0 {
		opts.SeekThreshold = settings.SeekThreshold
	}
	if settings.ResolveTimeout > 0 {
		opts.ResolveTimeout = settings.ResolveTimeout
	}
	if settings.MaxAlternatives > 0 {
		opts.MaxAlternatives = settings.MaxAlternatives
	}

	ctrl := session.New(session.Options{
		Self: station.UserRef{
			ID:       settings.UserID,
			Nickname: settings.UserNickname,
			Avatar:   settings.UserAvatar,
		},
		StationID: settings.StationID,
		Heartbeat: settings.PlaybackBeat,
		Tick:      settings.PlaybackTick,
		Playback:  opts,
		Hooks:     handlers.Hooks(os.Stdout, settings.UserID),
	}, dir, conn, engine, resolver)

	go ctrl.Run(ctx)

	if err := ctrl.Enter(ctx); err != nil {
		log.WithError(err).Error("Failed to enter station")
		cancel()
		<-ctrl.Done()
		os.Exit(1)
	}
	log.Info("Station client is running")

	console := &handlers.Console{
		In:      os.Stdin,
		Out:     os.Stdout,
		Prefix:  settings.Prefix,
		Station: ctrl,
		Cmds:    commands.New(),
	}
	consoleDone := make(chan struct{})
	go func() {
		console.Run(ctx)
		close(consoleDone)
	}()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sc:
		gracefulShutdown(ctrl)
	case <-consoleDone:
		gracefulShutdown(ctrl)
	case <-ctrl.Done():
	}
	cancel()

	log.Info("Cleanly exiting")
}

// gracefulShutdown leaves the station so the directory and relay see us go
func gracefulShutdown(ctrl *session.Controller) {
	log.Info("Starting graceful shutdown...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ctrl.Leave(ctx); err != nil {
		log.WithError(err).Warn("Failed to leave station cleanly")
	}
}

// probe looks up track lengths for the virtual engine
func probe(checker *yt.PlayabilityChecker) media.Prober {
	return func(ctx context.Context, ref string) (time.Duration, int) {
		d, err := checker.Duration(ctx, ref)
		if err != nil {
			log.WithFields(log.Fields{"video_ref": ref, "error": err}).Debug("Failed to probe track")
			return 0, yt.ErrorCode(err)
		}
		return d, 0
	}
}
