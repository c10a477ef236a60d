package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/wb-go/wbf/zlog"
)

// Config holds the main configuration for the application.
type Config struct {
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Upload   Upload   `mapstructure:"upload"`
	Auth     Auth     `mapstructure:"auth"`
	Mirror   Mirror   `mapstructure:"mirror"`
	Kafka    Kafka    `mapstructure:"kafka"`
	Retry    Retry    `mapstructure:"retry"`
}

// Server holds HTTP server-related configuration.
type Server struct {
	HTTPPort       string   `mapstructure:"http_port"`       // HTTP port to listen on
	AllowedOrigins []string `mapstructure:"allowed_origins"` // CORS origins
}

// Database holds database master and slave configuration.
type Database struct {
	Master DatabaseNode   `mapstructure:"master"`
	Slaves []DatabaseNode `mapstructure:"slaves"`

	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DatabaseNode holds connection parameters for a single database node.
type DatabaseNode struct {
	Host    string `mapstructure:"host"`
	Port    string `mapstructure:"port"`
	User    string `mapstructure:"user"`
	Pass    string `mapstructure:"pass"`
	Name    string `mapstructure:"name"`
	SSLMode string `mapstructure:"ssl_mode"`
}

// Upload configures the media pipeline. It is built once at startup and
// passed by value to every component that needs it.
type Upload struct {
	StorageRoot          string    `mapstructure:"storage_root"`           // filesystem root for stored images
	AllowedExtensions    []string  `mapstructure:"allowed_extensions"`     // accepted file extensions
	MaxContentLength     int64     `mapstructure:"max_content_length"`     // byte ceiling per file
	MaxPixels            int       `mapstructure:"max_pixels"`             // width*height ceiling before decode
	PrimarySize          Size      `mapstructure:"primary_size"`           // bounding box of the primary variant
	ThumbnailSize        Size      `mapstructure:"thumbnail_size"`         // bounding box of the thumbnail
	CompressionQuality   int       `mapstructure:"compression_quality"`    // re-encode quality 0-100
	SecureFilenamePrefix string    `mapstructure:"secure_filename_prefix"` // prefix of every generated name
	Subfolders           []string  `mapstructure:"subfolders"`             // writable namespace tags
	PublicSubfolders     []string  `mapstructure:"public_subfolders"`      // tags readable without auth
	Watermark            Watermark `mapstructure:"watermark"`
}

// Size is a width x height bounding box.
type Size struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

// Watermark configures the optional text stamped on primary variants.
type Watermark struct {
	Text       string   `mapstructure:"text"`
	FontPath   string   `mapstructure:"font_path"`
	Subfolders []string `mapstructure:"subfolders"`
}

// Auth holds JWT settings.
type Auth struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// Mirror holds configuration for the S3-compatible mirror of stored images.
type Mirror struct {
	Enabled    bool   `mapstructure:"enabled"`
	Endpoint   string `mapstructure:"endpoint"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	BucketName string `mapstructure:"bucket_name"`
	UseSSL     bool   `mapstructure:"use_ssl"`
}

// Kafka holds configuration for the Kafka message queue.
type Kafka struct {
	Enabled bool     `mapstructure:"enabled"`  // publish media events
	GroupID string   `mapstructure:"group_id"` // Consumer group ID
	Topic   string   `mapstructure:"topic"`    // Kafka topic name
	Brokers []string `mapstructure:"brokers"`  // List of Kafka broker addresses
}

// Retry defines retry policy configuration.
type Retry struct {
	Attempts int           `mapstructure:"attempts"` // Number of retry attempts
	Delay    time.Duration `mapstructure:"delay"`    // Initial delay between retries
	Backoff  float64       `mapstructure:"backoff"`  // Backoff multiplier for delays
}

// DSN returns the PostgreSQL DSN string for connecting to this database node.
func (n DatabaseNode) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		n.User, n.Pass, n.Host, n.Port, n.Name, n.SSLMode,
	)
}

// DefaultUpload returns the upload settings used when the config file
// leaves them out.
func DefaultUpload() Upload {
	return Upload{
		StorageRoot:          "./uploads",
		AllowedExtensions:    []string{"png", "jpg", "jpeg", "gif", "bmp", "webp", "tiff", "svg"},
		MaxContentLength:     5 << 20,
		MaxPixels:            40_000_000,
		PrimarySize:          Size{Width: 400, Height: 400},
		ThumbnailSize:        Size{Width: 150, Height: 150},
		CompressionQuality:   85,
		SecureFilenamePrefix: "img_",
		Subfolders:           []string{"profile", "posts"},
		PublicSubfolders:     []string{"profile"},
	}
}

// Validate checks upload settings that would otherwise fail at request time.
func (u Upload) Validate() error {
	if u.StorageRoot == "" {
		return fmt.Errorf("upload: storage_root is required")
	}
	if len(u.AllowedExtensions) == 0 {
		return fmt.Errorf("upload: allowed_extensions is empty")
	}
	if u.MaxContentLength <= 0 {
		return fmt.Errorf("upload: max_content_length must be positive")
	}
	if u.CompressionQuality < 0 || u.CompressionQuality > 100 {
		return fmt.Errorf("upload: compression_quality must be within 0-100, got %d", u.CompressionQuality)
	}
	for name, s := range map[string]Size{"primary_size": u.PrimarySize, "thumbnail_size": u.ThumbnailSize} {
		if s.Width <= 0 || s.Height <= 0 {
			return fmt.Errorf("upload: %s must be positive, got %dx%d", name, s.Width, s.Height)
		}
	}
	if u.SecureFilenamePrefix == "" || strings.ContainsAny(u.SecureFilenamePrefix, "./\\") {
		return fmt.Errorf("upload: invalid secure_filename_prefix %q", u.SecureFilenamePrefix)
	}
	return nil
}

// bindEnv binds critical environment variables to Viper keys.
func bindEnv(v *viper.Viper) error {
	bindings := map[string]string{
		"database.master.host": "DB_HOST",
		"database.master.port": "DB_PORT",
		"database.master.user": "DB_USER",
		"database.master.pass": "DB_PASSWORD",
		"database.master.name": "DB_NAME",
		"auth.jwt_secret":      "JWT_SECRET",
		"mirror.access_key":    "MINIO_ACCESS_KEY",
		"mirror.secret_key":    "MINIO_SECRET_KEY",
		"upload.storage_root":  "UPLOAD_FOLDER",
	}

	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultUpload()
	v.SetDefault("server.http_port", ":8080")
	v.SetDefault("upload.storage_root", d.StorageRoot)
	v.SetDefault("upload.allowed_extensions", d.AllowedExtensions)
	v.SetDefault("upload.max_content_length", d.MaxContentLength)
	v.SetDefault("upload.max_pixels", d.MaxPixels)
	v.SetDefault("upload.primary_size.width", d.PrimarySize.Width)
	v.SetDefault("upload.primary_size.height", d.PrimarySize.Height)
	v.SetDefault("upload.thumbnail_size.width", d.ThumbnailSize.Width)
	v.SetDefault("upload.thumbnail_size.height", d.ThumbnailSize.Height)
	v.SetDefault("upload.compression_quality", d.CompressionQuality)
	v.SetDefault("upload.secure_filename_prefix", d.SecureFilenamePrefix)
	v.SetDefault("upload.subfolders", d.Subfolders)
	v.SetDefault("upload.public_subfolders", d.PublicSubfolders)
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.delay", 100*time.Millisecond)
	v.SetDefault("retry.backoff", 2.0)
}

// Load reads the YAML configuration at path, applies defaults and
// environment overrides and validates the upload section.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := bindEnv(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Upload.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad loads the configuration from the specified file path.
// It panics if the configuration file cannot be loaded or unmarshaled.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		zlog.Logger.Panic().Err(err).Msg("failed to load config")
	}

	return cfg
}
