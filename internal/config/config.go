// Package config assembles server settings from defaults, an optional .env
// file, TRGOVINA_* environment variables and command-line flags, in that
// order of increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "TRGOVINA_"

// SMTP holds outbound mail settings. An empty Host disables sending.
type SMTP struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Config holds all server settings.
type Config struct {
	DBPath     string
	Addr       string
	AdminEmail string

	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	TokenTTL time.Duration
	ResetTTL time.Duration

	// BaseURL prefixes links in outgoing mail.
	BaseURL string

	SMTP SMTP

	JanitorSchedule string
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		DBPath:          "trgovina.sqlite3",
		Addr:            ":8080",
		AdminEmail:      "admin@trgovina.local",
		LogMaxSizeMB:    64,
		LogMaxBackups:   7,
		LogMaxAgeDays:   28,
		TokenTTL:        24 * time.Hour,
		ResetTTL:        time.Hour,
		BaseURL:         "http://localhost:8080",
		SMTP:            SMTP{Port: 587},
		JanitorSchedule: "@hourly",
	}
}

// Usage is printed for -h and on flag errors.
const Usage = `Usage: trgovina [flags]

Flags:
  -d, -db <path>          SQLite database path (default: trgovina.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -e, -admin <email>      admin email on first run (default: admin@trgovina.local)
  -l, -log <path>         log file path, rotated (default: stdout/stderr only)
      -log-max-size <mb>  rotate the log file after this many megabytes (default: 64)
      -log-backups <n>    rotated log files to keep (default: 7)
      -log-max-age <days> days to keep rotated log files (default: 28)
      -token-ttl <dur>    lifetime of issued tokens (default: 24h)
      -reset-ttl <dur>    lifetime of password reset codes (default: 1h)
      -base-url <url>     public URL used in outgoing mail
      -smtp-host <host>   SMTP server; empty logs mail instead of sending
      -smtp-port <port>   SMTP port (default: 587)
      -smtp-user <user>   SMTP user
      -smtp-from <addr>   sender address
      -janitor <sched>    cron schedule for expired data cleanup (default: @hourly)
  -h, -help               show this help and exit

Every flag can also be set with a TRGOVINA_* environment variable, for example
TRGOVINA_DB or TRGOVINA_SMTP_HOST, or in a .env file. The SMTP password is only
read from TRGOVINA_SMTP_PASSWORD.
`

// Load builds the configuration. envFile is read if it exists; args are the
// command-line arguments without the program name.
func Load(envFile string, args []string, output io.Writer) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.parseFlags(args, output); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"DB":            &c.DBPath,
		"ADDR":          &c.Addr,
		"ADMIN":         &c.AdminEmail,
		"LOG":           &c.LogPath,
		"BASE_URL":      &c.BaseURL,
		"SMTP_HOST":     &c.SMTP.Host,
		"SMTP_USER":     &c.SMTP.User,
		"SMTP_PASSWORD": &c.SMTP.Password,
		"SMTP_FROM":     &c.SMTP.From,
		"JANITOR":       &c.JanitorSchedule,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(envPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"LOG_MAX_SIZE": &c.LogMaxSizeMB,
		"LOG_BACKUPS":  &c.LogMaxBackups,
		"LOG_MAX_AGE":  &c.LogMaxAgeDays,
		"SMTP_PORT":    &c.SMTP.Port,
	}
	for key, dst := range ints {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = n
	}

	durations := map[string]*time.Duration{
		"TOKEN_TTL": &c.TokenTTL,
		"RESET_TTL": &c.ResetTTL,
	}
	for key, dst := range durations {
		v, ok := os.LookupEnv(envPrefix + key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		*dst = d
	}
	return nil
}

func (c *Config) parseFlags(args []string, output io.Writer) error {
	flags := flag.NewFlagSet("trgovina", flag.ContinueOnError)
	flags.SetOutput(output)
	flags.Usage = func() { fmt.Fprint(output, Usage) }

	flags.StringVar(&c.DBPath, "db", c.DBPath, "")
	flags.StringVar(&c.DBPath, "d", c.DBPath, "")

	flags.StringVar(&c.Addr, "addr", c.Addr, "")
	flags.StringVar(&c.Addr, "a", c.Addr, "")

	flags.StringVar(&c.AdminEmail, "admin", c.AdminEmail, "")
	flags.StringVar(&c.AdminEmail, "e", c.AdminEmail, "")

	flags.StringVar(&c.LogPath, "log", c.LogPath, "")
	flags.StringVar(&c.LogPath, "l", c.LogPath, "")
	flags.IntVar(&c.LogMaxSizeMB, "log-max-size", c.LogMaxSizeMB, "")
	flags.IntVar(&c.LogMaxBackups, "log-backups", c.LogMaxBackups, "")
	flags.IntVar(&c.LogMaxAgeDays, "log-max-age", c.LogMaxAgeDays, "")

	flags.DurationVar(&c.TokenTTL, "token-ttl", c.TokenTTL, "")
	flags.DurationVar(&c.ResetTTL, "reset-ttl", c.ResetTTL, "")
	flags.StringVar(&c.BaseURL, "base-url", c.BaseURL, "")

	flags.StringVar(&c.SMTP.Host, "smtp-host", c.SMTP.Host, "")
	flags.IntVar(&c.SMTP.Port, "smtp-port", c.SMTP.Port, "")
	flags.StringVar(&c.SMTP.User, "smtp-user", c.SMTP.User, "")
	flags.StringVar(&c.SMTP.From, "smtp-from", c.SMTP.From, "")

	flags.StringVar(&c.JanitorSchedule, "janitor", c.JanitorSchedule, "")

	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() > 0 {
		flags.Usage()
		return fmt.Errorf("unexpected argument: %s", flags.Arg(0))
	}
	return nil
}

func (c *Config) validate() error {
	if c.DBPath == "" {
		return errors.New("database path must not be empty")
	}
	if c.TokenTTL <= 0 || c.ResetTTL <= 0 {
		return errors.New("token and reset lifetimes must be positive")
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return errors.New("smtp sender address required when smtp host is set")
	}
	return nil
}
