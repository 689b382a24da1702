package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds service configuration read from the environment.
type Config struct {
	ListenAddr        string
	ModelPath         string
	ClassesPath       string
	SharedLibraryPath string
	Debug             bool

	MaxQueueSize        int
	FrameSkipFactor     int
	MinConfidence       float32
	FilterMinConfidence bool

	Observer ObserverConfig

	SightingLabel    string
	SightingCooldown time.Duration

	Kafka KafkaConfig
}

type ObserverConfig struct {
	Name       string
	Mobile     bool
	Lat        float64
	Lon        float64
	HasFix     bool
	BearingDeg float64
	TiltDeg    float64
}

type KafkaConfig struct {
	BootstrapServers string
	Topic            string
}

// Enabled reports whether sightings should be published.
func (k KafkaConfig) Enabled() bool {
	return k.BootstrapServers != ""
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables, falling back to
// defaults for unset or unparsable values.
func FromEnv() *Config {
	return &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":8080"),
		ModelPath:         getEnv("MODEL_PATH", "models/yolov10n.onnx"),
		ClassesPath:       getEnv("CLASSES_PATH", ""),
		SharedLibraryPath: getEnv("ONNXRUNTIME_LIB", "lib/libonnxruntime.so"),
		Debug:             getEnvBool("DEBUG", false),

		MaxQueueSize:        getEnvInt("MAX_QUEUE_SIZE", 2),
		FrameSkipFactor:     getEnvInt("FRAME_SKIP_FACTOR", 1),
		MinConfidence:       float32(getEnvFloat("MIN_CONFIDENCE", 0.25)),
		FilterMinConfidence: getEnvBool("FILTER_MIN_CONFIDENCE", true),

		Observer: ObserverConfig{
			Name:       getEnv("OBSERVER_NAME", "observer"),
			Mobile:     getEnvBool("OBSERVER_MOBILE", false),
			Lat:        getEnvFloat("OBSERVER_LAT", 0),
			Lon:        getEnvFloat("OBSERVER_LON", 0),
			HasFix:     os.Getenv("OBSERVER_LAT") != "" && os.Getenv("OBSERVER_LON") != "",
			BearingDeg: getEnvFloat("OBSERVER_BEARING", 0),
			TiltDeg:    getEnvFloat("OBSERVER_TILT", 0),
		},

		SightingLabel:    getEnv("SIGHTING_LABEL", "person"),
		SightingCooldown: getEnvDuration("SIGHTING_COOLDOWN", 2*time.Second),

		Kafka: KafkaConfig{
			BootstrapServers: getEnv("KAFKA_BOOTSTRAP_SERVERS", ""),
			Topic:            getEnv("KAFKA_TOPIC", "sightings"),
		},
	}
}

func (c *Config) Validate() error {
	var problems []string
	if c.MaxQueueSize <= 0 {
		problems = append(problems, "MAX_QUEUE_SIZE must be positive")
	}
	if c.FrameSkipFactor <= 0 {
		problems = append(problems, "FRAME_SKIP_FACTOR must be positive")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		problems = append(problems, "MIN_CONFIDENCE must be within [0,1]")
	}
	if c.ModelPath == "" {
		problems = append(problems, "MODEL_PATH is required")
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		problems = append(problems, "KAFKA_TOPIC is required when KAFKA_BOOTSTRAP_SERVERS is set")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if v, err := time.ParseDuration(value); err == nil {
			return v
		}
	}
	return defaultValue
}
