package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// StorageConfig selects where launch records are written. Every configured
// sink receives every record.
type StorageConfig struct {
	Out            string
	PGDSN          string
	PGEnsureSchema bool
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisPrefix    string
	S3Bucket       string
	S3Region       string
	S3Endpoint     string
	S3Prefix       string
	S3AccessKey    string
	S3SecretKey    string
	S3PathStyle    bool
}

// newViper merges a .env file, environment variables, flags and the config
// file into one viper instance. defaults are applied first.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("LAUNCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func storageDefaults(defaults map[string]interface{}) map[string]interface{} {
	defaults["out"] = "./data"
	defaults["pg-ensure-schema"] = true
	defaults["redis-prefix"] = "launcher"
	defaults["s3-region"] = "us-east-1"
	defaults["max-retries"] = 3
	defaults["retry-backoff"] = 200 * time.Millisecond
	return defaults
}

func loadStorage(v *viper.Viper) StorageConfig {
	return StorageConfig{
		Out:            v.GetString("out"),
		PGDSN:          v.GetString("pg-dsn"),
		PGEnsureSchema: v.GetBool("pg-ensure-schema"),
		RedisAddr:      v.GetString("redis-addr"),
		RedisPassword:  v.GetString("redis-password"),
		RedisDB:        v.GetInt("redis-db"),
		RedisPrefix:    v.GetString("redis-prefix"),
		S3Bucket:       v.GetString("s3-bucket"),
		S3Region:       v.GetString("s3-region"),
		S3Endpoint:     v.GetString("s3-endpoint"),
		S3Prefix:       v.GetString("s3-prefix"),
		S3AccessKey:    v.GetString("s3-access-key"),
		S3SecretKey:    v.GetString("s3-secret-key"),
		S3PathStyle:    v.GetBool("s3-path-style"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
