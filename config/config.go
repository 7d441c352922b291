package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port string
	}
	Log struct {
		Level string
	}
	Database struct {
		DSN string
	}
	Redis struct {
		Addr     string
		Password string
		DB       int
	}
	JWT struct {
		Secret string
		TTL    time.Duration
	}
	Matchmaker struct {
		// memory / redis / postgres
		Archive          string
		Bosses           []string
		Compositions     [][]string
		ProvisionTimeout time.Duration
		Password         struct {
			Length      int
			Alphabet    string
			Retention   time.Duration
			MaxAttempts int
		}
	}
	Voice struct {
		Enabled bool
		Issuer  string
		Domain  string
		Secret  string
		TTL     time.Duration
	}
	Metrics struct {
		AdminKey string
	}
}

var C Config

const defaultPath = "config/config.yaml"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":4000")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.dsn", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.ttl", 24*time.Hour)
	v.SetDefault("matchmaker.archive", "memory")
	v.SetDefault("matchmaker.bosses", []string{})
	v.SetDefault("matchmaker.compositions", [][]string{})
	v.SetDefault("matchmaker.provisionTimeout", 10*time.Second)
	v.SetDefault("matchmaker.password.length", 6)
	v.SetDefault("matchmaker.password.alphabet", "abcdefghijklmnopqrstuvwxyz")
	v.SetDefault("matchmaker.password.retention", time.Hour)
	v.SetDefault("matchmaker.password.maxAttempts", 1000)
	v.SetDefault("voice.enabled", false)
	v.SetDefault("voice.issuer", "")
	v.SetDefault("voice.domain", "")
	v.SetDefault("voice.secret", "")
	v.SetDefault("voice.ttl", 2*time.Hour)
	v.SetDefault("metrics.adminKey", "")
}

// Load 读取配置文件（MM_CONFIG 可覆盖路径），文件缺失时只用默认值 + 环境变量
func Load() error {
	path := os.Getenv("MM_CONFIG")
	if path == "" {
		path = defaultPath
	}
	c, err := LoadFrom(path)
	if err != nil {
		return err
	}
	C = c
	return nil
}

func LoadFrom(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return c, err
			}
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, nil
}
