package config

import (
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/AnTengye/contractvigency/backend/pipeline"
	"gopkg.in/yaml.v3"
)

// DefaultSourceURL is the public administrative contracts spreadsheet.
const DefaultSourceURL = "https://raw.githubusercontent.com/brunazpessoa/Controle-de-Vigencia-de-Contratos/main/projeto-contratos-vigencia/compras-contratos-administrativos.xlsx"

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Minio    MinioConfig    `yaml:"minio"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Source   SourceConfig   `yaml:"source"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Store    StoreConfig    `yaml:"store"`
	Users    []User         `yaml:"users"`
}

type ServerConfig struct {
	Port            int `yaml:"port"`
	RateLimit       int `yaml:"rate_limit"` // requests per minute per client
	MaxUploadSizeMB int `yaml:"max_upload_size_mb"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MinioConfig struct {
	Endpoint   string `yaml:"endpoint"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Bucket     string `yaml:"bucket"`
	UseSSL     bool   `yaml:"use_ssl"`
	ExpireDays int    `yaml:"expire_days"`
}

// Enabled reports whether uploaded spreadsheets are kept in object storage.
func (m MinioConfig) Enabled() bool {
	return m.Endpoint != ""
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type SourceConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Sheet    string        `yaml:"sheet"`
}

type PipelineConfig struct {
	// Timezone decides which calendar day "today" is.
	Timezone      string           `yaml:"timezone"`
	StrictColumns *bool            `yaml:"strict_columns"`
	Columns       pipeline.Columns `yaml:"columns"`
}

// Strict reports whether a missing column rejects an import. Defaults to true.
func (p PipelineConfig) Strict() bool {
	return p.StrictColumns == nil || *p.StrictColumns
}

// Location resolves Timezone, falling back to UTC.
func (p PipelineConfig) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type StoreConfig struct {
	MaxDatasets int `yaml:"max_datasets"`
}

type User struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Tenant   string `yaml:"tenant"`
}

var GlobalConfig *Config

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	overrideFromEnv(&cfg)

	GlobalConfig = &cfg
	return &cfg, nil
}

// Default returns a configuration usable without a file, e.g. for one-off reports.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	overrideFromEnv(&cfg)
	return &cfg
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 100
	}
	if cfg.Server.MaxUploadSizeMB == 0 {
		cfg.Server.MaxUploadSizeMB = 32
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
	if cfg.Minio.ExpireDays == 0 {
		cfg.Minio.ExpireDays = 7
	}
	if cfg.Auth.TokenExpireHours == 0 {
		cfg.Auth.TokenExpireHours = 24
	}
	if cfg.Source.URL == "" {
		cfg.Source.URL = DefaultSourceURL
	}
	if cfg.Source.Timeout == 0 {
		cfg.Source.Timeout = 60 * time.Second
	}
	if cfg.Source.CacheTTL == 0 {
		cfg.Source.CacheTTL = time.Hour
	}
	if cfg.Pipeline.Timezone == "" {
		cfg.Pipeline.Timezone = "America/Sao_Paulo"
	}
	cfg.Pipeline.Columns = cfg.Pipeline.Columns.WithDefaults()
	if cfg.Store.MaxDatasets == 0 {
		cfg.Store.MaxDatasets = 20
	}
}

// overrideFromEnv lets deployments replace secrets and endpoints without editing the file.
func overrideFromEnv(cfg *Config) {
	if port := os.Getenv("CV_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if level := os.Getenv("CV_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if endpoint := os.Getenv("CV_MINIO_ENDPOINT"); endpoint != "" {
		cfg.Minio.Endpoint = endpoint
	}
	if key := os.Getenv("CV_MINIO_ACCESS_KEY"); key != "" {
		cfg.Minio.AccessKey = key
	}
	if secret := os.Getenv("CV_MINIO_SECRET_KEY"); secret != "" {
		cfg.Minio.SecretKey = secret
	}
	if addr := os.Getenv("CV_REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if secret := os.Getenv("CV_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if url := os.Getenv("CV_SOURCE_URL"); url != "" {
		cfg.Source.URL = url
	}
}

// FindUser finds a user by username
func (c *Config) FindUser(username string) *User {
	for i := range c.Users {
		if c.Users[i].Username == username {
			return &c.Users[i]
		}
	}
	return nil
}
