package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/go-errors/errors"
	flags "github.com/jessevdk/go-flags"
)

type AlgodClient struct {
	Token   string            `long:"algod-token" env:"ALGOD_TOKEN" description:"API token for the algod node"`
	Host    string            `long:"algod-host" env:"ALGOD_HOST" description:"Scheme and host of the algod node" default:"https://testnet-api.voi.nodely.dev"`
	Port    string            `long:"algod-port" env:"ALGOD_PORT" description:"Port of the algod node" default:"443"`
	Headers map[string]string `long:"algod-header" env:"ALGOD_HEADERS" env-delim:"," description:"Extra header sent to the algod node as name:value, repeatable"`
}

func (a AlgodClient) HasError() error {
	if a.Host == "" {
		return errors.New("algod host is required")
	}
	if !strings.HasPrefix(a.Host, "http://") && !strings.HasPrefix(a.Host, "https://") {
		return errors.Errorf("algod host must start with http:// or https://, got %q", a.Host)
	}
	return nil
}

// URL joins host and port. An empty port leaves the host untouched.
func (a AlgodClient) URL() string {
	host := strings.TrimSuffix(a.Host, "/")
	if a.Port == "" {
		return host
	}
	return host + ":" + a.Port
}

type Config struct {
	DBFile                 string        `short:"f" long:"file" env:"DB_FILE" description:"SQLite database file" default:"proposers.db"`
	Algod                  AlgodClient   `group:"algod"`
	PollInterval           time.Duration `long:"poll-interval" env:"POLL_INTERVAL" description:"Wait at the tip of the chain before asking for new blocks" default:"10s"`
	RetryInterval          time.Duration `long:"retry-interval" env:"RETRY_INTERVAL" description:"Wait before retrying a failed block" default:"10s"`
	RequestTimeout         time.Duration `long:"request-timeout" env:"REQUEST_TIMEOUT" description:"Deadline for every request to the node" default:"5s"`
	MaxBlockAttempts       int           `long:"max-block-attempts" env:"MAX_BLOCK_ATTEMPTS" description:"Give up after this many failed attempts on a block, 0 retries forever" default:"0"`
	MaxInflightRequests    int           `long:"max-inflight-requests" env:"MAX_INFLIGHT_REQUESTS" description:"Cap on timed out requests still running" default:"4"`
	ReportProgressInterval time.Duration `long:"report-progress-interval" env:"REPORT_PROGRESS_INTERVAL" description:"Interval to report progress" default:"30s"`
	MetricsAddr            string        `long:"metrics-addr" env:"METRICS_ADDR" description:"Address to serve prometheus metrics on, disabled when empty"`
	LogLevel               string        `long:"log-level" env:"LOG_LEVEL" description:"Log level" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
	LogFormat              string        `long:"log-format" env:"LOG_FORMAT" description:"Log format" choice:"text" choice:"json" choice:"tint" default:"tint"`
}

func (c Config) HasError() error {
	if err := c.Algod.HasError(); err != nil {
		return err
	}
	if c.DBFile == "" {
		return errors.New("database file is required")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	if c.PollInterval <= 0 || c.RetryInterval <= 0 {
		return errors.New("poll and retry intervals must be positive")
	}
	if c.MaxBlockAttempts < 0 {
		return errors.New("max block attempts must be >= 0")
	}
	if c.MaxInflightRequests <= 0 {
		return errors.New("max inflight requests must be positive")
	}
	return nil
}

func (c Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func Parse() (*Config, error) {
	return ParseArgs(nil)
}

// ParseArgs parses args instead of os.Args when args is not nil
func ParseArgs(args []string) (*Config, error) {
	var config Config
	parser := flags.NewParser(&config, flags.Default)
	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		return nil, err
	}
	if err := config.HasError(); err != nil {
		return nil, err
	}
	return &config, nil
}
