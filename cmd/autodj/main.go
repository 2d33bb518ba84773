// Package main provides the autodj service entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"autodj/internal/core"
	"autodj/internal/events"
	"autodj/internal/fetch"
	httpserver "autodj/internal/http"
	"autodj/internal/provider"
	"autodj/internal/resolver"
	"autodj/internal/spotify"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "autodj",
	Short: "autodj - autoplay next-track resolver",
	Long: `autodj resolves a replacement track for the one that just finished playing,
drawn from the same platform (YouTube, Spotify, SoundCloud), with rate
limiting, timeout bounding and per-consumer repeat exclusion.`,
	RunE: runAutodj,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("server-host", "0.0.0.0", "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().Int("timeout-ms", 10000, "Provider resolution timeout in milliseconds")
	rootCmd.PersistentFlags().Int("max-retries", 2, "HTTP fetch retry count")
	rootCmd.PersistentFlags().Int("rate-limit-delay-ms", 500, "Minimum delay between resolutions per source in milliseconds")
	rootCmd.PersistentFlags().Int("history-size", 20, "Per-consumer exclusion history capacity")
	rootCmd.PersistentFlags().Bool("enable-events", true, "Enable lifecycle event emission")
	rootCmd.PersistentFlags().String("default-source", "youtube", "Fallback platform for unrecognized sources")
	rootCmd.PersistentFlags().String("user-agent", "", "User agent for outbound HTTP requests")
	rootCmd.PersistentFlags().String("resolver-url", "", "External search backend (Lavalink node) base URL")
	rootCmd.PersistentFlags().String("resolver-password", "", "External search backend password")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify application client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify application client secret")
	rootCmd.PersistentFlags().String("spotify-totp-secret", "", "Shared secret for the anonymous token endpoint")
	rootCmd.PersistentFlags().Int("spotify-max-recommendations", 10, "Maximum Spotify recommendation candidates")
	rootCmd.PersistentFlags().String("soundcloud-base-url", "https://soundcloud.com", "SoundCloud base URL")
	rootCmd.PersistentFlags().Int("soundcloud-max-tracks", 10, "Maximum SoundCloud candidates")
	rootCmd.PersistentFlags().Bool("youtube-radio-mode", true, "Enable the deterministic radio-mix fallback")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("AUTODJ")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Autoplay.Timeout = time.Duration(viper.GetInt("timeout-ms")) * time.Millisecond
	cfg.Autoplay.MaxRetries = viper.GetInt("max-retries")
	cfg.Autoplay.RateLimitDelay = time.Duration(viper.GetInt("rate-limit-delay-ms")) * time.Millisecond
	cfg.Autoplay.HistorySize = viper.GetInt("history-size")
	cfg.Autoplay.EnableEvents = viper.GetBool("enable-events")
	cfg.Autoplay.UserAgent = viper.GetString("user-agent")
	if src, ok := core.ParseSource(viper.GetString("default-source")); ok {
		cfg.Autoplay.DefaultSource = src
	}

	cfg.Resolver.URL = viper.GetString("resolver-url")
	cfg.Resolver.Password = viper.GetString("resolver-password")

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.TOTPSecret = viper.GetString("spotify-totp-secret")
	cfg.Spotify.MaxRecommendations = viper.GetInt("spotify-max-recommendations")

	cfg.SoundCloud.BaseURL = viper.GetString("soundcloud-base-url")
	cfg.SoundCloud.MaxTracks = viper.GetInt("soundcloud-max-tracks")

	cfg.YouTube.EnableRadioMode = viper.GetBool("youtube-radio-mode")

	cfg.Server.Host = viper.GetString("server-host")
	cfg.Server.Port = viper.GetInt("server-port")

	cfg.Log.Level = viper.GetString("log-level")

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runAutodj(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting autodj",
		zap.String("default_source", string(config.Autoplay.DefaultSource)),
		zap.Bool("resolver_configured", config.Resolver.URL != ""))

	fetchOpts := fetch.Options{
		MaxRetries: config.Autoplay.MaxRetries,
		Timeout:    config.Autoplay.Timeout,
		UserAgent:  config.Autoplay.UserAgent,
		Headers:    config.Autoplay.CustomHeaders,
	}
	fetchClient := fetch.NewClient(fetchOpts)

	var search resolver.Resolver
	if config.Resolver.URL != "" {
		search = resolver.NewLavalink(config.Resolver.URL, config.Resolver.Password, fetchOpts, logger.Named("resolver"))
	}

	var web provider.RecommendationsBackend
	if config.Spotify.ClientID != "" && config.Spotify.ClientSecret != "" {
		client, err := spotify.NewClient(ctx, config.Spotify.ClientID, config.Spotify.ClientSecret, logger.Named("spotify"))
		if err != nil {
			return fmt.Errorf("failed to create Spotify client: %w", err)
		}
		web = client
	}

	bus := events.NewBus()

	providers := map[core.Source]core.Provider{
		core.SourceYouTube:    provider.NewYouTube(search, bus, logger.Named("youtube"), config.YouTube),
		core.SourceSpotify:    provider.NewSpotify(search, web, fetchClient, config.Spotify, bus, logger.Named("spotify")),
		core.SourceSoundCloud: provider.NewSoundCloud(search, fetchClient, config.SoundCloud, bus, logger.Named("soundcloud")),
	}

	dispatcher := core.NewDispatcher(config.Autoplay, providers, bus, logger.Named("dispatcher"))

	httpServer := httpserver.NewServer(&config.Server, dispatcher, bus, logger.Named("http"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				httpServer.SetHistoryConsumers(len(dispatcher.HistoryConsumers()))
			}
		}
	})

	logger.Info("autodj started",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("autodj stopped with error", zap.Error(err))
		return err
	}

	logger.Info("autodj stopped gracefully")
	return nil
}
