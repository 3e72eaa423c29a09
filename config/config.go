package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            string        `yaml:"PORT"             env:"PORT"             env-default:"5000"`
	LogLevel        string        `yaml:"LOG_LEVEL"        env:"LOG_LEVEL"        env-default:"info"`
	GinMode         string        `yaml:"GIN_MODE"         env:"GIN_MODE"         env-default:"release"`
	ShutdownTimeout time.Duration `yaml:"SHUTDOWN_TIMEOUT" env:"SHUTDOWN_TIMEOUT" env-default:"5s"`
	Database        Database      `yaml:"DATABASE"`
	Auth            Auth          `yaml:"AUTH"`
	Redis           Redis         `yaml:"REDIS"`
}

type Database struct {
	Driver      string `yaml:"DB_DRIVER"        env:"DB_DRIVER"        env-default:"sqlite"`
	URL         string `yaml:"DATABASE_URL"     env:"DATABASE_URL"     env-default:"voting.db"`
	MongoDBName string `yaml:"MONGODB_DATABASE" env:"MONGODB_DATABASE" env-default:"voting"`
}

type Auth struct {
	JWTSecret string        `yaml:"JWT_SECRET" env:"JWT_SECRET" env-required:"true"`
	TokenTTL  time.Duration `yaml:"TOKEN_TTL"  env:"TOKEN_TTL"  env-default:"1h"`
}

// Redis is optional: an empty Addr disables the poll cache and the distributed lock.
type Redis struct {
	Addr     string        `yaml:"REDIS_ADDR"     env:"REDIS_ADDR"`
	Password string        `yaml:"REDIS_PASSWORD" env:"REDIS_PASSWORD"`
	DB       int           `yaml:"REDIS_DB"       env:"REDIS_DB"       env-default:"0"`
	CacheTTL time.Duration `yaml:"CACHE_TTL"      env:"CACHE_TTL"      env-default:"10m"`
}

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
	DriverMongo  = "mongo"
)

// New 从.env文件和环境变量加载配置，.env文件不存在时直接读取环境变量
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	var config Config
	if err := cleanenv.ReadEnv(&config); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL, DriverMongo:
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("config: TOKEN_TTL must be positive")
	}
	return nil
}

func (r Redis) Enabled() bool {
	return r.Addr != ""
}
