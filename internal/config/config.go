package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Content ContentConfig `yaml:"content"`
	Media   MediaConfig   `yaml:"media"`
	Webhook WebhookConfig `yaml:"webhook"`
	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"Pulsive"`
	Description string `yaml:"description" default:"A GitHub-powered blogging platform"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12700"`
}

// StorageConfig selects the post persistence backend. "github" stores
// posts as markdown files in each user's content repository; "sqlite"
// stores them as rows in the local database.
type StorageConfig struct {
	Backend    string `yaml:"backend" default:"github"`
	SQLitePath string `yaml:"sqlite_path" default:"./pulsive.db"`

	// GithubAPIURL overrides the GitHub API base URL. Used by tests
	// and GitHub Enterprise deployments. Empty means api.github.com.
	GithubAPIURL string `yaml:"github_api_url" default:""`
}

type ContentConfig struct {
	PostsPerPage    int `yaml:"posts_per_page" default:"10"`
	MaxUploadBytes  int `yaml:"max_upload_bytes" default:"52428800"`
	ExcerptLength   int `yaml:"excerpt_length" default:"150"`
	WebhookLogLimit int `yaml:"webhook_log_limit" default:"5"`
}

// MediaConfig selects where uploaded media lands. "repo" writes into the
// user's content repository under media/; "s3" uploads to a bucket.
type MediaConfig struct {
	Backend    string `yaml:"backend" default:"repo"`
	S3Bucket   string `yaml:"s3_bucket" default:""`
	S3Endpoint string `yaml:"s3_endpoint" default:""`
}

type WebhookConfig struct {
	Workers        int `yaml:"workers" default:"3"`
	QueueSize      int `yaml:"queue_size" default:"100"`
	TimeoutSeconds int `yaml:"timeout_seconds" default:"10"`
}

var AppConfig *Config

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	// Try to read and parse the config file
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	AppConfig = config
	return nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			if field.String() == "" {
				field.SetString(defaultValue)
			}
		case reflect.Int, reflect.Int64:
			if field.Int() == 0 {
				if n, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
					field.SetInt(n)
				}
			}
		case reflect.Bool:
			if !field.Bool() {
				if b, err := strconv.ParseBool(defaultValue); err == nil {
					field.SetBool(b)
				}
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				field.Set(reflect.ValueOf(parts))
			}
		}
	}
}
