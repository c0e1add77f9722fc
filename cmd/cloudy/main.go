package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/atomtech/cloudy/internal/backends"
	"github.com/atomtech/cloudy/internal/config"
	"github.com/atomtech/cloudy/internal/intent"
	"github.com/atomtech/cloudy/internal/memory"
	"github.com/atomtech/cloudy/internal/providers"
	"github.com/atomtech/cloudy/internal/search"
	"github.com/atomtech/cloudy/internal/server"
)

var version = "0.1.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			fmt.Printf("cloudy v%s\n", version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		}
	}

	run()
}

func run() {
	// .env is optional; deployed instances set real environment variables.
	godotenv.Load()

	var cfg *config.Config
	var err error
	if path := os.Getenv("CLOUDY_CONFIG"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))

	if !config.HasAIKeys(cfg) {
		logger.Warn("no AI keys configured, answers will be degraded")
	}

	var cache *backends.Cache
	if cfg.Cache.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		cache = backends.NewCache(rdb, logger)
		logger.Info("redis cache enabled", "addr", cfg.Cache.RedisAddr)
	}

	gemini := providers.NewGemini(cfg.AI.GeminiKeys, logger)
	groq := providers.NewGroq(cfg.AI.GroqKeys, logger)

	web := backends.NewWeb(backends.WebConfig{
		APIKey: cfg.Search.GoogleAPIKey,
		CX:     cfg.Search.GoogleCX,
		Cache:  cache,
		Logger: logger,
	})
	youtube := backends.NewYouTube(backends.YouTubeConfig{
		APIKey: cfg.Search.YouTubeKey,
		Cache:  cache,
		Logger: logger,
	})
	weather := backends.NewWeather(backends.WeatherConfig{
		APIKey: cfg.Search.OpenWeatherKey,
		Cache:  cache,
		Logger: logger,
	})
	shopping := backends.NewShopping(backends.ShoppingConfig{
		APIKey:   cfg.Search.SerpAPIKey,
		Location: cfg.Search.SerpLocation,
		Cache:    cache,
		Logger:   logger,
	})
	fx := backends.NewFX(backends.FXConfig{Cache: cache, Logger: logger})

	detector := intent.NewDetector(intent.DetectorConfig{
		Gemini:      gemini,
		Groq:        groq,
		Preference:  cfg.AI.Provider,
		GeminiModel: cfg.AI.GeminiModel,
		GroqModel:   cfg.AI.GroqModel,
		FXRate:      fx.Rate,
		Logger:      logger,
	})
	summarizer := search.NewSummarizer(search.SummarizerConfig{
		Gemini:      gemini,
		Groq:        groq,
		Preference:  cfg.AI.Provider,
		GeminiModel: cfg.AI.GeminiModel,
		GroqModel:   cfg.AI.GroqModel,
		Logger:      logger,
	})

	store := memory.NewMem0(memory.Mem0Config{
		APIKey: cfg.Memory.Mem0APIKey,
		Logger: logger,
	})
	writer := memory.NewWriter(store, logger, 0)

	ledger, err := memory.NewLedger(cfg.Memory.SQLitePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}

	extractProvider, extractModel := extractionProvider(cfg, gemini, groq)
	extractor := memory.NewExtractor(extractProvider, extractModel, store, logger)

	orch := search.NewOrchestrator(search.OrchestratorConfig{
		Detector:   detector,
		Summarizer: summarizer,
		Web:        web,
		YouTube:    youtube,
		Weather:    weather,
		Shopping:   shopping,
		Memory:     store,
		Writer:     writer,
		Ledger:     ledger,
		MapsKey:    cfg.Search.GoogleMapsKey,
		Logger:     logger,
	})

	srv := server.New(server.Config{
		ListenAddr: cfg.Server.ListenAddr,
		Orch:       orch,
		Summarizer: summarizer,
		Extractor:  extractor,
		Ledger:     ledger,
		Logger:     logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	if err := srv.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting server: %v\n", err)
		os.Exit(1)
	}

	<-ctx.Done()

	srv.Stop()
	writer.Close()
	if err := ledger.Close(); err != nil {
		logger.Error("closing database", "error", err)
	}
}

// extractionProvider mirrors the runtime provider choice for background fact
// extraction: the preferred family when it has keys, the other as fallback.
func extractionProvider(cfg *config.Config, gemini, groq providers.Client) (providers.Client, string) {
	switch {
	case cfg.AI.Provider == "groq" && groq.Ready():
		return groq, cfg.AI.GroqModel
	case gemini.Ready():
		return gemini, cfg.AI.GeminiModel
	default:
		return groq, cfg.AI.GroqModel
	}
}

func printUsage() {
	fmt.Printf("cloudy v%s — conversational search assistant\n\n", version)
	fmt.Println("Usage:")
	fmt.Println("  cloudy            Start the HTTP server")
	fmt.Println("  cloudy version    Show version")
	fmt.Println("  cloudy help       Show this help")
	fmt.Println()
	fmt.Println("Configuration comes from CLOUDY_CONFIG (JSON file) or environment")
	fmt.Println("variables. A .env file in the working directory is loaded if present.")
}
