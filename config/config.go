package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config carries the connection-level settings the CLI resolves from the
// environment. Per-invocation transfer parameters come from flags instead.
type Config struct {
	SFTP SFTPConfig
	GCS  GCSConfig
	Log  LogConfig
}

type SFTPConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	PrivateKeyPath string
	KnownHostKey   string
	DialTimeoutSec int
}

type GCSConfig struct {
	CredentialsFile string
}

type LogConfig struct {
	Level string
}

var (
	once     sync.Once
	instance *Config
)

// Load resolves the configuration once from the environment (and an optional
// .env file).
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SFTP_HOST", "localhost")
		viper.SetDefault("SFTP_PORT", 22)
		viper.SetDefault("SFTP_USER", "")
		viper.SetDefault("SFTP_PASSWORD", "")
		viper.SetDefault("SFTP_PRIVATE_KEY", "")
		viper.SetDefault("SFTP_KNOWN_HOST_KEY", "")
		viper.SetDefault("SFTP_DIAL_TIMEOUT_SECONDS", 30)
		viper.SetDefault("GCS_CREDENTIALS_FILE", "")
		viper.SetDefault("LOG_LEVEL", "info")

		// Read from environment variables
		viper.AutomaticEnv()

		instance = &Config{
			SFTP: SFTPConfig{
				Host:           viper.GetString("SFTP_HOST"),
				Port:           viper.GetInt("SFTP_PORT"),
				User:           viper.GetString("SFTP_USER"),
				Password:       viper.GetString("SFTP_PASSWORD"),
				PrivateKeyPath: viper.GetString("SFTP_PRIVATE_KEY"),
				KnownHostKey:   viper.GetString("SFTP_KNOWN_HOST_KEY"),
				DialTimeoutSec: viper.GetInt("SFTP_DIAL_TIMEOUT_SECONDS"),
			},
			GCS: GCSConfig{
				CredentialsFile: viper.GetString("GCS_CREDENTIALS_FILE"),
			},
			Log: LogConfig{
				Level: viper.GetString("LOG_LEVEL"),
			},
		}
	})

	return instance
}

// DialTimeout returns the SFTP dial timeout as a duration.
func (c *SFTPConfig) DialTimeout() time.Duration {
	return time.Duration(c.DialTimeoutSec) * time.Second
}
