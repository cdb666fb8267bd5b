package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"junctionflow/catalog"

	"github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Feed     FeedConfig     `yaml:"feed"`
	Database DatabaseConfig `yaml:"database"`
	Capture  CaptureConfig  `yaml:"capture"`
	Export   ExportConfig   `yaml:"export"`
	Redis    RedisConfig    `yaml:"redis"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Server   ServerConfig   `yaml:"server"`
	JWT      JWTConfig      `yaml:"jwt"`
	CORS     CORSConfig     `yaml:"cors"`
}

type FeedConfig struct {
	URL          string        `yaml:"url"`
	Road         string        `yaml:"road"`
	Junctions    []string      `yaml:"junctions"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	UserAgent    string        `yaml:"user_agent"`
}

type DatabaseConfig struct {
	Driver         string        `yaml:"driver"`
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	User           string        `yaml:"user"`
	Password       string        `yaml:"password"`
	Name           string        `yaml:"name"`
	SSLMode        string        `yaml:"sslmode"`
	Path           string        `yaml:"path"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	MaxOpenConns   int           `yaml:"max_open_conns"`
	BatchSize      int           `yaml:"batch_size"`
}

// GetDSN renders the connection string for the configured driver. Values are
// quoted or escaped so credentials may contain any character.
func (d DatabaseConfig) GetDSN() string {
	timeoutSec := int(d.ConnectTimeout / time.Second)
	if timeoutSec <= 0 {
		timeoutSec = 10
	}

	switch d.Driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
		mc.DBName = d.Name
		mc.ParseTime = true
		mc.Timeout = time.Duration(timeoutSec) * time.Second
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN()
	case "sqlite":
		return d.Path
	default:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
			pgQuote(d.Host), d.Port, pgQuote(d.User), pgQuote(d.Password),
			pgQuote(d.Name), pgQuote(d.SSLMode), timeoutSec,
		)
	}
}

// pgQuote renders a keyword/value connection string value, quoting it when it
// is empty or holds spaces, quotes or backslashes.
func pgQuote(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t\n'\\") {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

type CaptureConfig struct {
	Timezone   string        `yaml:"timezone"`
	RunTimeout time.Duration `yaml:"run_timeout"`
}

type ExportConfig struct {
	Path string `yaml:"path"`
}

type RedisConfig struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

type MQTTConfig struct {
	URL         string `yaml:"url"`
	TopicPrefix string `yaml:"topic_prefix"`
	ClientID    string `yaml:"client_id"`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	JobName        string `yaml:"job_name"`
}

type ServerConfig struct {
	Port         int           `yaml:"port"`
	WSPingPeriod time.Duration `yaml:"ws_ping_period"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

type CORSConfig struct {
	AllowedOrigins string `yaml:"allowed_origins"`
}

// Defaults returns the configuration used when neither a file nor the
// environment sets a value. It never carries credentials.
func Defaults() *Config {
	return &Config{
		Feed: FeedConfig{
			URL:          "https://www.trafficengland.com/api/network/getJunctionSections",
			Road:         "M1",
			Junctions:    catalog.Default(),
			Timeout:      30 * time.Second,
			MaxBodyBytes: 10 * 1024 * 1024,
			UserAgent:    "junctionflow-collector",
		},
		Database: DatabaseConfig{
			Driver:         "postgres",
			Host:           "localhost",
			Port:           5432,
			User:           "junctionflow",
			Name:           "junctionflow",
			SSLMode:        "disable",
			Path:           "junctionflow.db",
			ConnectTimeout: 10 * time.Second,
			MaxOpenConns:   4,
			BatchSize:      100,
		},
		Capture: CaptureConfig{
			Timezone:   "Europe/London",
			RunTimeout: 2 * time.Minute,
		},
		Export: ExportConfig{
			Path: "junction_data_export.csv",
		},
		Redis: RedisConfig{
			Channel: "junctionflow:live",
		},
		MQTT: MQTTConfig{
			TopicPrefix: "junctionflow/junctions",
			ClientID:    "junctionflow-collector",
		},
		Metrics: MetricsConfig{
			JobName: "junctionflow_collector",
		},
		Server: ServerConfig{
			Port:         8080,
			WSPingPeriod: 30 * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: "*",
		},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file named
// by CONFIG_FILE (if any), then environment variables.
func LoadConfig() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var err error

	cfg.Feed.URL = getEnv("FEED_URL", cfg.Feed.URL)
	cfg.Feed.Road = getEnv("FEED_ROAD", cfg.Feed.Road)
	if list := os.Getenv("FEED_JUNCTIONS"); list != "" {
		cfg.Feed.Junctions = catalog.Parse(list)
	}
	cfg.Feed.UserAgent = getEnv("FEED_USER_AGENT", cfg.Feed.UserAgent)
	if cfg.Feed.Timeout, err = getDurationEnv("FEED_TIMEOUT", cfg.Feed.Timeout); err != nil {
		return fmt.Errorf("invalid FEED_TIMEOUT: %w", err)
	}
	maxBody, err := getIntEnv("FEED_MAX_BODY_BYTES", int(cfg.Feed.MaxBodyBytes))
	if err != nil {
		return fmt.Errorf("invalid FEED_MAX_BODY_BYTES: %w", err)
	}
	cfg.Feed.MaxBodyBytes = int64(maxBody)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	if cfg.Database.Port, err = getIntEnv("DB_PORT", cfg.Database.Port); err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.Path = getEnv("DB_PATH", cfg.Database.Path)
	if cfg.Database.ConnectTimeout, err = getDurationEnv("DB_CONNECT_TIMEOUT", cfg.Database.ConnectTimeout); err != nil {
		return fmt.Errorf("invalid DB_CONNECT_TIMEOUT: %w", err)
	}
	if cfg.Database.MaxOpenConns, err = getIntEnv("DB_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns); err != nil {
		return fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	if cfg.Database.BatchSize, err = getIntEnv("DB_BATCH_SIZE", cfg.Database.BatchSize); err != nil {
		return fmt.Errorf("invalid DB_BATCH_SIZE: %w", err)
	}

	cfg.Capture.Timezone = getEnv("CAPTURE_TIMEZONE", cfg.Capture.Timezone)
	if cfg.Capture.RunTimeout, err = getDurationEnv("RUN_TIMEOUT", cfg.Capture.RunTimeout); err != nil {
		return fmt.Errorf("invalid RUN_TIMEOUT: %w", err)
	}

	cfg.Export.Path = getEnv("EXPORT_PATH", cfg.Export.Path)

	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.Channel = getEnv("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.MQTT.URL = getEnv("MQTT_URL", cfg.MQTT.URL)
	cfg.MQTT.TopicPrefix = getEnv("MQTT_TOPIC_PREFIX", cfg.MQTT.TopicPrefix)
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", cfg.MQTT.ClientID)

	cfg.Metrics.PushgatewayURL = getEnv("PUSHGATEWAY_URL", cfg.Metrics.PushgatewayURL)
	cfg.Metrics.JobName = getEnv("METRICS_JOB_NAME", cfg.Metrics.JobName)

	if cfg.Server.Port, err = getIntEnv("SERVER_PORT", cfg.Server.Port); err != nil {
		return fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	if cfg.Server.WSPingPeriod, err = getDurationEnv("WS_PING_PERIOD", cfg.Server.WSPingPeriod); err != nil {
		return fmt.Errorf("invalid WS_PING_PERIOD: %w", err)
	}

	cfg.JWT.Secret = getEnv("JWT_SECRET", cfg.JWT.Secret)
	cfg.CORS.AllowedOrigins = getEnv("CORS_ALLOWED_ORIGINS", cfg.CORS.AllowedOrigins)

	return nil
}

// Validate rejects settings the collector cannot run with.
func (c *Config) Validate() error {
	if _, err := url.ParseRequestURI(c.Feed.URL); err != nil {
		return fmt.Errorf("invalid FEED_URL %q: %w", c.Feed.URL, err)
	}
	if err := catalog.Validate(c.Feed.Junctions); err != nil {
		return err
	}
	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("FEED_TIMEOUT must be positive")
	}
	switch c.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.BatchSize <= 0 {
		return fmt.Errorf("DB_BATCH_SIZE must be positive")
	}
	if c.Export.Path == "" {
		return fmt.Errorf("EXPORT_PATH must not be empty")
	}
	return nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
