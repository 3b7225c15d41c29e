package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	defaultDirName        = ".docpilot"
	defaultConfigFileName = "config.yaml"
	defaultDBFileName     = "docpilot.db"
)

type LLMConfig struct {
	Provider    string  `yaml:"provider" toml:"provider"`
	APIKey      string  `yaml:"api_key" toml:"api_key"`
	BaseURL     string  `yaml:"base_url" toml:"base_url"`
	Model       string  `yaml:"model" toml:"model"`
	MaxTokens   int     `yaml:"max_tokens" toml:"max_tokens"`
	Temperature float64 `yaml:"temperature" toml:"temperature"`
}

// Remote kinds for GeneratorConfig.Remote.
const (
	RemoteLLM     = "llm"
	RemoteService = "service"
	RemoteNone    = "none"
)

type GeneratorConfig struct {
	Remote     string `yaml:"remote" toml:"remote"`
	ServiceURL string `yaml:"service_url" toml:"service_url"`
	TimeoutMs  int    `yaml:"timeout_ms" toml:"timeout_ms"`
	MaxRetries int    `yaml:"max_retries" toml:"max_retries"`
	BackoffMs  int    `yaml:"backoff_ms" toml:"backoff_ms"`
}

type ParserConfig struct {
	FetchTimeoutMs  int      `yaml:"fetch_timeout_ms" toml:"fetch_timeout_ms"`
	ProbePaths      []string `yaml:"probe_paths" toml:"probe_paths"`
	MaxProbes       int      `yaml:"max_probes" toml:"max_probes"`
	GraphQLPaths    []string `yaml:"graphql_paths" toml:"graphql_paths"`
	EvaluateScripts *bool    `yaml:"evaluate_scripts" toml:"evaluate_scripts"`
	ScriptTimeoutMs int      `yaml:"script_timeout_ms" toml:"script_timeout_ms"`
}

// ScriptsEnabled reports whether inline page scripts may be evaluated.
func (p ParserConfig) ScriptsEnabled() bool {
	return p.EvaluateScripts == nil || *p.EvaluateScripts
}

type StoreConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// HARConfig drops captured requests that are not API traffic.
type HARConfig struct {
	IgnoreExtensions   []string `yaml:"ignore_extensions" toml:"ignore_extensions"`
	IgnoreContentTypes []string `yaml:"ignore_content_types" toml:"ignore_content_types"`
	IgnorePaths        []string `yaml:"ignore_paths" toml:"ignore_paths"`
}

type SanitizeConfig struct {
	Headers     []string `yaml:"headers" toml:"headers"`
	BodyFields  []string `yaml:"body_fields" toml:"body_fields"`
	Replacement string   `yaml:"replacement" toml:"replacement"`
}

type ServerConfig struct {
	Host            string `yaml:"host" toml:"host"`
	Port            int    `yaml:"port" toml:"port"`
	CORSExtensionID string `yaml:"cors_extension_id" toml:"cors_extension_id"`
}

type LogConfig struct {
	Level string `yaml:"level" toml:"level"`
}

type TelemetryConfig struct {
	Endpoint    string            `yaml:"endpoint" toml:"endpoint"`
	Insecure    bool              `yaml:"insecure" toml:"insecure"`
	ServiceName string            `yaml:"service_name" toml:"service_name"`
	Headers     map[string]string `yaml:"headers" toml:"headers"`
}

type Config struct {
	LLM       LLMConfig       `yaml:"llm" toml:"llm"`
	Generator GeneratorConfig `yaml:"generator" toml:"generator"`
	Parser    ParserConfig    `yaml:"parser" toml:"parser"`
	Store     StoreConfig     `yaml:"store" toml:"store"`
	HAR       HARConfig       `yaml:"har" toml:"har"`
	Sanitize  SanitizeConfig  `yaml:"sanitize" toml:"sanitize"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
	Log       LogConfig       `yaml:"log" toml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry" toml:"telemetry"`
}

// DefaultProbePaths are the conventional spec locations tried behind a Swagger UI page.
var DefaultProbePaths = []string{
	"/swagger.json",
	"/swagger.yaml",
	"/api-docs",
	"/api/swagger.json",
	"/v2/swagger.json",
	"/v3/api-docs",
	"/openapi.json",
	"/openapi.yaml",
}

// DefaultGraphQLPaths are the conventional GraphQL endpoint locations.
var DefaultGraphQLPaths = []string{"/graphql", "/api/graphql", "/v1/graphql"}

// Dir returns the docpilot home directory (~/.docpilot).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, defaultDirName), nil
}

// Load loads YAML (or TOML, by extension) config, then applies env overrides.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	if configPath == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(dir, defaultConfigFileName)
	}

	if data, err := os.ReadFile(configPath); err == nil {
		if err := decode(configPath, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.SetDefaults()
	applyEnvOverrides(cfg)
	return cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

func (c *Config) SetDefaults() {
	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o-mini"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.1
	}
	if c.Generator.Remote == "" {
		c.Generator.Remote = RemoteLLM
	}
	if c.Generator.TimeoutMs == 0 {
		c.Generator.TimeoutMs = 12000
	}
	if c.Generator.MaxRetries == 0 {
		c.Generator.MaxRetries = 2
	}
	if c.Generator.BackoffMs == 0 {
		c.Generator.BackoffMs = 500
	}
	if c.Parser.FetchTimeoutMs == 0 {
		c.Parser.FetchTimeoutMs = 10000
	}
	if len(c.Parser.ProbePaths) == 0 {
		c.Parser.ProbePaths = append([]string(nil), DefaultProbePaths...)
	}
	if c.Parser.MaxProbes == 0 {
		c.Parser.MaxProbes = len(c.Parser.ProbePaths)
	}
	if len(c.Parser.GraphQLPaths) == 0 {
		c.Parser.GraphQLPaths = append([]string(nil), DefaultGraphQLPaths...)
	}
	if c.Parser.ScriptTimeoutMs == 0 {
		c.Parser.ScriptTimeoutMs = 2000
	}
	if c.Store.Path == "" {
		if dir, err := Dir(); err == nil {
			c.Store.Path = filepath.Join(dir, defaultDBFileName)
		} else {
			c.Store.Path = defaultDBFileName
		}
	}
	if c.HAR.IgnoreExtensions == nil {
		c.HAR.IgnoreExtensions = []string{".js", ".css", ".png", ".jpg", ".gif", ".svg", ".woff", ".woff2", ".ico", ".map"}
	}
	if c.HAR.IgnoreContentTypes == nil {
		c.HAR.IgnoreContentTypes = []string{"text/html", "text/css", "image/*", "font/*", "application/javascript"}
	}
	if c.HAR.IgnorePaths == nil {
		c.HAR.IgnorePaths = []string{"/static/", "/assets/", "/favicon"}
	}
	if len(c.Sanitize.Headers) == 0 {
		c.Sanitize.Headers = []string{"Authorization", "Cookie", "Set-Cookie", "X-Api-Key", "X-Auth-Token"}
	}
	if len(c.Sanitize.BodyFields) == 0 {
		c.Sanitize.BodyFields = []string{"password", "secret", "token", "api_key", "access_token", "refresh_token", "credential"}
	}
	if c.Sanitize.Replacement == "" {
		c.Sanitize.Replacement = "***REDACTED***"
	}
	if c.Server.Host == "" {
		c.Server.Host = "127.0.0.1"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "docpilot"
	}
}

func (c *Config) Validate() error {
	switch c.Generator.Remote {
	case RemoteLLM, RemoteService, RemoteNone:
	default:
		return fmt.Errorf("generator.remote must be one of llm, service, none (got %q)", c.Generator.Remote)
	}
	if c.Generator.MaxRetries < 0 {
		return errors.New("generator.max_retries cannot be negative")
	}
	if c.Generator.TimeoutMs <= 0 {
		return errors.New("generator.timeout_ms must be positive")
	}
	if c.Parser.MaxProbes < 0 {
		return errors.New("parser.max_probes cannot be negative")
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return errors.New("store.path cannot be empty")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// ValidateRemote enforces the requirements of the configured remote generation path.
func (c *Config) ValidateRemote() error {
	if err := c.Validate(); err != nil {
		return err
	}
	switch c.Generator.Remote {
	case RemoteLLM:
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			return errors.New("llm.api_key cannot be empty")
		}
	case RemoteService:
		if strings.TrimSpace(c.Generator.ServiceURL) == "" {
			return errors.New("generator.service_url cannot be empty")
		}
	}
	return nil
}

func applyEnvOverrides(c *Config) {
	setString(&c.LLM.Provider, "DOCPILOT_LLM_PROVIDER")
	setString(&c.LLM.APIKey, "DOCPILOT_LLM_API_KEY")
	setString(&c.LLM.BaseURL, "DOCPILOT_LLM_BASE_URL")
	setString(&c.LLM.Model, "DOCPILOT_LLM_MODEL")
	setInt(&c.LLM.MaxTokens, "DOCPILOT_LLM_MAX_TOKENS")
	setFloat(&c.LLM.Temperature, "DOCPILOT_LLM_TEMPERATURE")
	setString(&c.Generator.Remote, "DOCPILOT_GENERATOR_REMOTE")
	setString(&c.Generator.ServiceURL, "DOCPILOT_GENERATOR_SERVICE_URL")
	setInt(&c.Generator.TimeoutMs, "DOCPILOT_GENERATOR_TIMEOUT_MS")
	setInt(&c.Generator.MaxRetries, "DOCPILOT_GENERATOR_MAX_RETRIES")
	setString(&c.Store.Path, "DOCPILOT_STORE_PATH")
	setString(&c.Server.Host, "DOCPILOT_SERVER_HOST")
	setInt(&c.Server.Port, "DOCPILOT_SERVER_PORT")
	setString(&c.Log.Level, "DOCPILOT_LOG_LEVEL")
	setString(&c.Telemetry.Endpoint, "DOCPILOT_TRACE_OTEL_ENDPOINT")
	setBool(&c.Telemetry.Insecure, "DOCPILOT_TRACE_OTEL_INSECURE")
	setString(&c.Telemetry.ServiceName, "DOCPILOT_TRACE_OTEL_SERVICE")
	if v, ok := os.LookupEnv("DOCPILOT_TRACE_OTEL_HEADERS"); ok {
		if headers := parseHeaders(v); len(headers) > 0 {
			c.Telemetry.Headers = headers
		}
	}
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

// parseHeaders converts comma separated key=value pairs into a header map.
func parseHeaders(spec string) map[string]string {
	headers := make(map[string]string)
	for _, entry := range strings.Split(spec, ",") {
		parts := strings.SplitN(strings.TrimSpace(entry), "=", 2)
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		value := ""
		if len(parts) == 2 {
			value = strings.TrimSpace(parts[1])
		}
		headers[key] = value
	}
	return headers
}
