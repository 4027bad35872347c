package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	CatalogModeRecords  = "records"
	CatalogModeMetadata = "metadata"

	StorageDriverS3   = "s3"
	StorageDriverDisk = "disk"

	DatabaseDriverPostgres = "postgres"
	DatabaseDriverSQLite   = "sqlite"
)

type HTTPConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxUploadBytes int64
	PublicBaseURL  string
}

type CatalogConfig struct {
	Mode string
}

type StorageConfig struct {
	Driver         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	Region         string
	Prefix         string
	URLTTL         time.Duration
	RequestTimeout time.Duration
	DiskRoot       string
	SigningSecret  string
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	User            string
	Password        string
	Host            string
	Name            string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}

// ConnString returns DSN when set, otherwise assembles a postgres URL from
// the discrete user/password/host/name settings.
func (c DatabaseConfig) ConnString() string {
	if c.DSN != "" || c.Driver != DatabaseDriverPostgres || c.Host == "" {
		return c.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host,
		Path:   "/" + c.Name,
	}
	return u.String()
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type JobsConfig struct {
	InventorySchedule string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Catalog          CatalogConfig
	Storage          StorageConfig
	Database         DatabaseConfig
	Redis            RedisConfig
	Jobs             JobsConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) RecordsMode() bool {
	return c.Catalog.Mode == CatalogModeRecords
}

func Load() (*AppConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("PHOTOSHELF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *AppConfig) Validate() error {
	switch c.Catalog.Mode {
	case CatalogModeRecords, CatalogModeMetadata:
	default:
		return fmt.Errorf("unknown catalog mode %q", c.Catalog.Mode)
	}

	switch c.Storage.Driver {
	case StorageDriverS3:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the s3 driver")
		}
	case StorageDriverDisk:
		if c.Storage.SigningSecret == "" {
			return errors.New("storage.signingsecret is required for the disk driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	if c.RecordsMode() {
		switch c.Database.Driver {
		case DatabaseDriverPostgres, DatabaseDriverSQLite:
		default:
			return fmt.Errorf("unknown database driver %q", c.Database.Driver)
		}
		if c.Database.ConnString() == "" {
			return errors.New("database connection settings are required in records mode")
		}
	}

	if !strings.HasSuffix(c.Storage.Prefix, "/") {
		return fmt.Errorf("storage.prefix %q must end with '/'", c.Storage.Prefix)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 5000)
	v.SetDefault("http.readtimeout", "30s")
	v.SetDefault("http.writetimeout", "60s")
	v.SetDefault("http.idletimeout", "60s")
	v.SetDefault("http.maxuploadbytes", 32<<20)
	v.SetDefault("http.publicbaseurl", "http://localhost:5000")

	v.SetDefault("catalog.mode", CatalogModeRecords)

	v.SetDefault("storage.driver", StorageDriverS3)
	v.SetDefault("storage.endpoint", "s3.amazonaws.com")
	v.SetDefault("storage.accesskey", "")
	v.SetDefault("storage.secretkey", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.usessl", true)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.prefix", "uploads/")
	v.SetDefault("storage.urlttl", "1h")
	v.SetDefault("storage.requesttimeout", "10s")
	v.SetDefault("storage.diskroot", "./data/blobs")
	v.SetDefault("storage.signingsecret", "")

	v.SetDefault("database.driver", DatabaseDriverPostgres)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.user", "admin")
	v.SetDefault("database.password", "")
	v.SetDefault("database.host", "")
	v.SetDefault("database.name", "lab")
	v.SetDefault("database.maxopen", 10)
	v.SetDefault("database.maxidle", 2)
	v.SetDefault("database.connmaxlifetime", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("jobs.inventoryschedule", "0 */30 * * * *")

	v.SetDefault("allowcorsorigins", []string{})
}
