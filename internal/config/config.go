package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
)

type Config struct {
	Server Server `json:"server"`
	AI     AI     `json:"ai"`
	Search Search `json:"search"`
	Memory Memory `json:"memory"`
	Cache  Cache  `json:"cache"`
	Log    Log    `json:"log"`
}

type Server struct {
	ListenAddr string `json:"listen_addr,omitempty"`
}

type AI struct {
	// Provider picks the default model family: "gemini" or "groq".
	Provider    string   `json:"provider,omitempty"`
	GeminiKeys  []string `json:"gemini_keys,omitempty"`
	GroqKeys    []string `json:"groq_keys,omitempty"`
	GeminiModel string   `json:"gemini_model,omitempty"`
	GroqModel   string   `json:"groq_model,omitempty"`
}

type Search struct {
	GoogleAPIKey   string `json:"google_api_key,omitempty"`
	GoogleCX       string `json:"google_cx,omitempty"`
	GoogleMapsKey  string `json:"google_maps_key,omitempty"`
	YouTubeKey     string `json:"youtube_key,omitempty"`
	OpenWeatherKey string `json:"openweather_key,omitempty"`
	SerpAPIKey     string `json:"serpapi_key,omitempty"`
	SerpLocation   string `json:"serpapi_location,omitempty"`
}

type Memory struct {
	Mem0APIKey string `json:"mem0_api_key,omitempty"`
	SQLitePath string `json:"sqlite_path,omitempty"`
}

type Cache struct {
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`
}

type Log struct {
	Level string `json:"level,omitempty"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		key := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		return match
	})
}

// Load reads a JSON config file, expanding ${VAR} references from the
// environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	data = []byte(expandEnvVars(string(data)))

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// FromEnv builds a config purely from environment variables, for
// deployments that never write a config file.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Server: Server{ListenAddr: os.Getenv("CLOUDY_LISTEN_ADDR")},
		AI: AI{
			Provider:    os.Getenv("AI_PROVIDER"),
			GeminiKeys:  envKeys("GOOGLE_API_KEY", "GEMINI_API_KEY"),
			GroqKeys:    envKeys("GROQ_API_KEY", "OPEN_AI_API_KEY"),
			GeminiModel: os.Getenv("GEMINI_MODEL"),
			GroqModel:   os.Getenv("GROQ_MODEL"),
		},
		Search: Search{
			GoogleAPIKey:   os.Getenv("GOOGLE_API_KEY"),
			GoogleCX:       firstEnv("GOOGLE_CX", "GOOGLE_CSE_ID"),
			GoogleMapsKey:  os.Getenv("GOOGLE_MAP_API_KEY"),
			YouTubeKey:     os.Getenv("YOUTUBE_API_KEY"),
			OpenWeatherKey: os.Getenv("OPENWEATHER_API_KEY"),
			SerpAPIKey:     os.Getenv("SERPAPI_API_KEY"),
			SerpLocation:   os.Getenv("SERPAPI_LOCATION"),
		},
		Memory: Memory{
			Mem0APIKey: os.Getenv("MEM0_API_KEY"),
			SQLitePath: os.Getenv("CLOUDY_DB_PATH"),
		},
		Cache: Cache{
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
		},
		Log: Log{Level: os.Getenv("LOG_LEVEL")},
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		n, err := strconv.Atoi(db)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", db, err)
		}
		cfg.Cache.RedisDB = n
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// envKeys collects non-empty values of the named variables, dropping
// duplicates so one key set in two variables counts once.
func envKeys(names ...string) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, name := range names {
		v := strings.TrimSpace(os.Getenv(name))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		keys = append(keys, v)
	}
	return keys
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.AI.GeminiModel == "" {
		cfg.AI.GeminiModel = "gemini-2.5-flash"
	}
	if cfg.AI.GroqModel == "" {
		cfg.AI.GroqModel = "openai/gpt-oss-120b"
	}
	if cfg.AI.Provider == "" {
		if len(cfg.AI.GroqKeys) > 0 {
			cfg.AI.Provider = "groq"
		} else {
			cfg.AI.Provider = "gemini"
		}
	}
	if cfg.Memory.SQLitePath == "" {
		cfg.Memory.SQLitePath = "cloudy.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q (must be debug/info/warn/error)", cfg.Log.Level)
	}

	switch strings.ToLower(cfg.AI.Provider) {
	case "gemini", "groq":
	default:
		return fmt.Errorf("invalid ai provider %q (must be gemini or groq)", cfg.AI.Provider)
	}

	for i, k := range cfg.AI.GeminiKeys {
		if strings.HasPrefix(k, "${") {
			return fmt.Errorf("gemini key %d contains unexpanded env var: %s", i, k)
		}
	}
	for i, k := range cfg.AI.GroqKeys {
		if strings.HasPrefix(k, "${") {
			return fmt.Errorf("groq key %d contains unexpanded env var: %s", i, k)
		}
	}

	return nil
}

// SlogLevel maps the configured level string to a slog level.
func (l Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// HasAIKeys reports whether at least one model provider has a usable key.
// Without any, Cloudy still serves requests but answers with a canned
// disabled line.
func HasAIKeys(cfg *Config) bool {
	return len(cfg.AI.GeminiKeys) > 0 || len(cfg.AI.GroqKeys) > 0
}
