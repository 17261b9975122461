package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration
type Config struct {
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
	MaxFileSizeMB int    `yaml:"max_file_size_mb"`
	CVFolds       int    `yaml:"cv_folds"`
	RandomSeed    int64  `yaml:"random_seed"`
	OutputDir     string `yaml:"output_dir"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "text"),
		MaxFileSizeMB: getEnvAsInt("MAX_FILE_SIZE_MB", 200),
		CVFolds:       getEnvAsInt("CV_FOLDS", 5),
		RandomSeed:    int64(getEnvAsInt("RANDOM_SEED", 42)),
		OutputDir:     getEnv("OUTPUT_DIR", "artifacts"),
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigFile loads configuration from a YAML file, with environment
// variables taking precedence over file values.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := &Config{
		LogLevel:      "info",
		LogFormat:     "text",
		MaxFileSizeMB: 200,
		CVFolds:       5,
		RandomSeed:    42,
		OutputDir:     "artifacts",
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// environment overrides
	config.LogLevel = getEnv("LOG_LEVEL", config.LogLevel)
	config.LogFormat = getEnv("LOG_FORMAT", config.LogFormat)
	config.MaxFileSizeMB = getEnvAsInt("MAX_FILE_SIZE_MB", config.MaxFileSizeMB)
	config.CVFolds = getEnvAsInt("CV_FOLDS", config.CVFolds)
	config.RandomSeed = int64(getEnvAsInt("RANDOM_SEED", int(config.RandomSeed)))
	config.OutputDir = getEnv("OUTPUT_DIR", config.OutputDir)

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	if c.MaxFileSizeMB <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.MaxFileSizeMB)
	}
	if c.CVFolds < 2 {
		return fmt.Errorf("CV_FOLDS must be at least 2, got %d", c.CVFolds)
	}
	if c.OutputDir == "" {
		return fmt.Errorf("OUTPUT_DIR must not be empty")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
