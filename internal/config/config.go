package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr       string
	GRPCAddr       string
	CORSOrigins    []string
	RequestTimeout time.Duration
	SessionMaxIdle time.Duration

	LLMProvider    string
	LLMApiKey      string
	LLMModel       string
	LLMVisionModel string
	LLMBaseURL     string
	LLMTimeout     time.Duration

	PgHost     string
	PgPort     string
	PgUser     string
	PgPassword string
	PgName     string

	CatalogSource    string
	CatalogCacheSize int

	LogLevel       string
	LogDevelopment bool
}

// NewConfig loads the optional env file at path, then reads every key from
// the environment (LLM_API_KEY for llm.api_key and so on).
func NewConfig(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		HTTPAddr:       v.GetString("http.addr"),
		GRPCAddr:       v.GetString("grpc.addr"),
		CORSOrigins:    splitList(v.GetString("http.cors_origins")),
		RequestTimeout: v.GetDuration("http.request_timeout"),
		SessionMaxIdle: v.GetDuration("session.max_idle"),

		LLMProvider:    strings.ToLower(v.GetString("llm.provider")),
		LLMApiKey:      v.GetString("llm.api_key"),
		LLMModel:       v.GetString("llm.model"),
		LLMVisionModel: v.GetString("llm.vision_model"),
		LLMBaseURL:     v.GetString("llm.base_url"),
		LLMTimeout:     v.GetDuration("llm.timeout"),

		PgHost:     v.GetString("pg.host"),
		PgPort:     v.GetString("pg.port"),
		PgUser:     v.GetString("pg.user"),
		PgPassword: v.GetString("pg.password"),
		PgName:     v.GetString("pg.name"),

		CatalogSource:    strings.ToLower(v.GetString("catalog.source")),
		CatalogCacheSize: v.GetInt("catalog.cache_size"),

		LogLevel:       v.GetString("log.level"),
		LogDevelopment: v.GetBool("log.development"),
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":5641")
	v.SetDefault("grpc.addr", ":5642")
	v.SetDefault("http.cors_origins", "http://localhost:3000")
	v.SetDefault("http.request_timeout", 60*time.Second)
	v.SetDefault("session.max_idle", 2*time.Hour)
	v.SetDefault("llm.provider", "mistral")
	v.SetDefault("llm.timeout", 15*time.Second)
	v.SetDefault("pg.port", "5432")
	v.SetDefault("catalog.source", "static")
	v.SetDefault("catalog.cache_size", 128)
	v.SetDefault("log.level", "info")
}

func (c *Config) validate() error {
	switch c.LLMProvider {
	case "mistral", "gemini", "none":
	default:
		return fmt.Errorf("config: unknown llm.provider %q", c.LLMProvider)
	}
	switch c.CatalogSource {
	case "static":
	case "postgres":
		if !c.HasDatabase() {
			return errors.New("config: catalog.source=postgres needs pg.host")
		}
	default:
		return fmt.Errorf("config: unknown catalog.source %q", c.CatalogSource)
	}
	return nil
}

// HasDatabase reports whether Postgres is configured.
func (c *Config) HasDatabase() bool { return c.PgHost != "" }

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.PgHost, c.PgPort, c.PgUser, c.PgPassword, c.PgName)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
