package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config is the full process configuration, read from the environment.
type Config struct {
	AppEnv        string `env:"APP_ENV" envDefault:"development"`
	LogLevel      string `env:"LOG_LEVEL"`
	HTTPAddr      string `env:"HTTP_ADDR" envDefault:":9000"`
	StoreDriver   string `env:"STORE_DRIVER" envDefault:"postgres"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`
	JWTSecret     string `env:"JWT_SECRET"`

	DB        DBConfig        `envPrefix:"DB_"`
	Auction   AuctionConfig   `envPrefix:"AUCTION_"`
	Scheduler SchedulerConfig `envPrefix:"SCHEDULER_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	NATS      NATSConfig      `envPrefix:"NATS_"`
}

type DBConfig struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"5432"`
	User     string `env:"USER" envDefault:"postgres"`
	Password string `env:"PASSWORD"`
	Name     string `env:"NAME" envDefault:"auctions"`
	SSLMode  string `env:"SSLMODE" envDefault:"disable"`
}

type AuctionConfig struct {
	BidIncrement    decimal.Decimal `env:"BID_INCREMENT" envDefault:"100"`
	DefaultDuration time.Duration   `env:"DEFAULT_DURATION" envDefault:"24h"`
}

type SchedulerConfig struct {
	Enabled  bool          `env:"ENABLED" envDefault:"true"`
	Interval time.Duration `env:"INTERVAL" envDefault:"60s"`
}

// RedisConfig enables the cross-instance broadcast relay when Addr is set.
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	Channel  string `env:"CHANNEL" envDefault:"auction_events"`
}

// NATSConfig enables winner notifications over NATS when URL is set.
type NATSConfig struct {
	URL           string `env:"URL"`
	WinnerSubject string `env:"WINNER_SUBJECT" envDefault:"auction.winner"`
}

var parsers = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(decimal.Decimal{}): func(v string) (interface{}, error) {
		return decimal.NewFromString(v)
	},
}

// Load reads an optional .env file and parses the environment into Config.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads Config from the current environment only.
func Parse() (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{FuncMap: parsers}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("config: SCHEDULER_INTERVAL must be positive")
	}
	if !c.Auction.BidIncrement.IsPositive() {
		return fmt.Errorf("config: AUCTION_BID_INCREMENT must be positive")
	}
	if inc := c.Auction.BidIncrement; !inc.Equal(inc.Truncate(2)) {
		return fmt.Errorf("config: AUCTION_BID_INCREMENT must have at most 2 decimal places")
	}
	if c.Auction.DefaultDuration <= 0 {
		return fmt.Errorf("config: AUCTION_DEFAULT_DURATION must be positive")
	}
	return nil
}

// PostgresDSN builds the connection string used by pgx and golang-migrate.
func (c DBConfig) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}
