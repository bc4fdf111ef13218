package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Environment string          `yaml:"environment"`
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Redis       RedisConfig     `yaml:"redis"`
	Typesense   TypesenseConfig `yaml:"typesense"`
	PlantID     PlantIDConfig   `yaml:"plant_id"`
	Auth        AuthConfig      `yaml:"auth"`
	Client      ClientConfig    `yaml:"client"`
	Imaging     ImagingConfig   `yaml:"imaging"`
	Location    LocationConfig  `yaml:"location"`
	OTEL        OTELConfig      `yaml:"otel"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL     string `yaml:"url"`
	APIKey  string `yaml:"api_key"`
	Enabled bool   `yaml:"enabled"`
}

// PlantIDConfig holds configuration for the plant identification API
type PlantIDConfig struct {
	APIKey        string        `yaml:"api_key"`
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	Latitude      float64       `yaml:"latitude"`
	Longitude     float64       `yaml:"longitude"`
	SimilarImages bool          `yaml:"similar_images"`
	Language      string        `yaml:"language"`
}

// AuthConfig holds token signing configuration
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	AccessTTL  time.Duration `yaml:"access_ttl"`
	RefreshTTL time.Duration `yaml:"refresh_ttl"`
}

// ClientConfig holds configuration for the garden client
type ClientConfig struct {
	StoreURL       string        `yaml:"store_url"`
	SessionDBPath  string        `yaml:"session_db_path"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// ImagingConfig holds photo preprocessing settings
type ImagingConfig struct {
	MaxWidth int    `yaml:"max_width"`
	Quality  int    `yaml:"quality"`
	TempDir  string `yaml:"temp_dir"`
}

// LocationConfig selects where recognition coordinates come from. An address is
// geocoded once with Google Maps; otherwise the plant id latitude and longitude are used.
type LocationConfig struct {
	Address          string `yaml:"address"`
	GoogleMapsAPIKey string `yaml:"google_maps_api_key"`
	GeocodeURL       string `yaml:"geocode_url"`
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Endpoint       string `yaml:"endpoint"`
	Enabled        bool   `yaml:"enabled"`
}

// Defaults returns the configuration used when neither a file nor the environment says otherwise.
func Defaults() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 5000,
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "postgres",
			Database: "smart_garden",
			SSLMode:  "disable",
		},
		Redis: RedisConfig{
			Host:    "localhost",
			Port:    6379,
			Enabled: true,
		},
		Typesense: TypesenseConfig{
			URL:    "http://localhost:8108",
			APIKey: "xyz",
		},
		PlantID: PlantIDConfig{
			BaseURL:       "https://plant.id/api/v3",
			Timeout:       20 * time.Second,
			Latitude:      49.207,
			Longitude:     16.608,
			SimilarImages: true,
			Language:      "en",
		},
		Auth: AuthConfig{
			AccessTTL:  24 * time.Hour,
			RefreshTTL: 30 * 24 * time.Hour,
		},
		Client: ClientConfig{
			StoreURL:       "http://localhost:5000",
			SessionDBPath:  "garden-session.db",
			RequestTimeout: 15 * time.Second,
		},
		Imaging: ImagingConfig{
			MaxWidth: 800,
			Quality:  70,
		},
		OTEL: OTELConfig{
			ServiceName:    "smart-garden",
			ServiceVersion: "1.0.0",
		},
	}
}

// Load loads configuration from an optional YAML file and then environment variables.
// The file is CONFIG_PATH, or config.yaml in the working directory; a missing file is not an error.
func Load() (*Config, error) {
	cfg := Defaults()

	configPath := getEnv("CONFIG_PATH", "config.yaml")
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", configPath, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", configPath, err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Environment = getEnv("APP_ENV", c.Environment)

	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvAsInt("SERVER_PORT", c.Server.Port)
	if origins := getEnv("ALLOWED_ORIGINS", ""); origins != "" {
		c.Server.AllowedOrigins = strings.Split(origins, ",")
	}

	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvAsInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnvAsInt("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvAsInt("REDIS_DB", c.Redis.DB)
	c.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", c.Redis.Enabled)

	c.Typesense.URL = getEnv("TYPESENSE_URL", c.Typesense.URL)
	c.Typesense.APIKey = getEnv("TYPESENSE_API_KEY", c.Typesense.APIKey)
	c.Typesense.Enabled = getEnvAsBool("TYPESENSE_ENABLED", c.Typesense.Enabled)

	c.PlantID.APIKey = getEnv("PLANT_ID_API_KEY", c.PlantID.APIKey)
	c.PlantID.BaseURL = getEnv("PLANT_ID_BASE_URL", c.PlantID.BaseURL)
	c.PlantID.Timeout = getEnvAsDuration("PLANT_ID_TIMEOUT", c.PlantID.Timeout)
	c.PlantID.Latitude = getEnvAsFloat("PLANT_ID_LATITUDE", c.PlantID.Latitude)
	c.PlantID.Longitude = getEnvAsFloat("PLANT_ID_LONGITUDE", c.PlantID.Longitude)
	c.PlantID.SimilarImages = getEnvAsBool("PLANT_ID_SIMILAR_IMAGES", c.PlantID.SimilarImages)
	c.PlantID.Language = getEnv("PLANT_ID_LANGUAGE", c.PlantID.Language)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.AccessTTL = getEnvAsDuration("JWT_ACCESS_TTL", c.Auth.AccessTTL)
	c.Auth.RefreshTTL = getEnvAsDuration("JWT_REFRESH_TTL", c.Auth.RefreshTTL)

	c.Client.StoreURL = getEnv("GARDEN_STORE_URL", c.Client.StoreURL)
	c.Client.SessionDBPath = getEnv("GARDEN_SESSION_DB", c.Client.SessionDBPath)
	c.Client.RequestTimeout = getEnvAsDuration("GARDEN_REQUEST_TIMEOUT", c.Client.RequestTimeout)

	c.Imaging.MaxWidth = getEnvAsInt("IMAGE_MAX_WIDTH", c.Imaging.MaxWidth)
	c.Imaging.Quality = getEnvAsInt("IMAGE_QUALITY", c.Imaging.Quality)
	c.Imaging.TempDir = getEnv("IMAGE_TEMP_DIR", c.Imaging.TempDir)

	c.Location.Address = getEnv("GARDEN_LOCATION", c.Location.Address)
	c.Location.GoogleMapsAPIKey = getEnv("GOOGLE_MAPS_API_KEY", c.Location.GoogleMapsAPIKey)
	c.Location.GeocodeURL = getEnv("GOOGLE_GEOCODE_URL", c.Location.GeocodeURL)

	c.OTEL.ServiceName = getEnv("OTEL_SERVICE_NAME", c.OTEL.ServiceName)
	c.OTEL.ServiceVersion = getEnv("OTEL_SERVICE_VERSION", c.OTEL.ServiceVersion)
	c.OTEL.Endpoint = getEnv("OTEL_ENDPOINT", c.OTEL.Endpoint)
	c.OTEL.Enabled = getEnvAsBool("OTEL_ENABLED", c.OTEL.Enabled)
}

// Validate checks settings that would otherwise fail late at request time.
func (c *Config) Validate() error {
	if c.PlantID.Timeout <= 0 {
		return errors.New("plant id timeout must be positive")
	}
	if c.Client.RequestTimeout <= 0 {
		return errors.New("client request timeout must be positive")
	}
	if c.Imaging.Quality < 1 || c.Imaging.Quality > 100 {
		return fmt.Errorf("image quality %d out of range 1-100", c.Imaging.Quality)
	}
	if c.Imaging.MaxWidth <= 0 {
		return errors.New("image max width must be positive")
	}
	if c.Location.Address != "" && c.Location.GoogleMapsAPIKey == "" {
		return errors.New("GOOGLE_MAPS_API_KEY is required when a location address is set")
	}
	return nil
}

// ValidateServer runs Validate plus the checks only the API server needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Auth.JWTSecret == "" && c.Environment != "development" {
		return errors.New("JWT_SECRET is required outside development")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
