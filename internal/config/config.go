// Package config loads tgstats configuration from defaults, an optional YAML
// file, .env files, TGSTATS_* environment variables and command-line flags,
// in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "TGSTATS"

// ErrConfiguration wraps every loading or validation failure.
var ErrConfiguration = errors.New("configuration error")

// Config is the complete application configuration.
type Config struct {
	Logger      LoggerConfig      `mapstructure:"logger"`
	Database    DatabaseConfig    `mapstructure:"database"`
	TelegramCLI TelegramCLIConfig `mapstructure:"telegram_cli"`
	Collector   CollectorConfig   `mapstructure:"collector"`
	Report      ReportConfig      `mapstructure:"report"`
	Telegram    TelegramConfig    `mapstructure:"telegram"`
	Gemini      GeminiConfig      `mapstructure:"gemini"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
}

// LoggerConfig controls slog output.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// DatabaseConfig locates the per-conversation SQLite files.
type DatabaseConfig struct {
	Dir string `mapstructure:"dir" validate:"required"`
}

// TelegramCLIConfig points at the telegram-cli daemon socket.
type TelegramCLIConfig struct {
	Host    string        `mapstructure:"host"    validate:"required"`
	Port    int           `mapstructure:"port"    validate:"min=1,max=65535"`
	Timeout time.Duration `mapstructure:"timeout" validate:"min=1s,max=10m"`
}

// Addr returns host:port.
func (c TelegramCLIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CollectorConfig tunes the dump loop.
type CollectorConfig struct {
	Step    int           `mapstructure:"step"    validate:"min=1,max=1000"`
	Backoff time.Duration `mapstructure:"backoff" validate:"min=0"`
}

// ReportConfig tunes aggregation and rendering.
type ReportConfig struct {
	Title             string        `mapstructure:"title"              validate:"required"`
	Timezone          string        `mapstructure:"timezone"           validate:"required"`
	OutputDir         string        `mapstructure:"output_dir"`
	InitialPopulation int           `mapstructure:"initial_population" validate:"min=0"`
	TopTalkers        int           `mapstructure:"top_talkers"        validate:"min=1"`
	TopWords          int           `mapstructure:"top_words"          validate:"min=1"`
	TopEmojis         int           `mapstructure:"top_emojis"         validate:"min=1"`
	TopCommands       int           `mapstructure:"top_commands"       validate:"min=1"`
	TopCommandUsers   int           `mapstructure:"top_command_users"  validate:"min=1"`
	TopBots           int           `mapstructure:"top_bots"           validate:"min=1"`
	TopRenames        int           `mapstructure:"top_renames"        validate:"min=1"`
	PeakWindow        time.Duration `mapstructure:"peak_window"        validate:"min=1s"`
	SummaryMessages   int           `mapstructure:"summary_messages"   validate:"min=1,max=5000"`
}

// Location resolves Timezone.
func (c ReportConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid report timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// TelegramConfig configures the Bot API listener used by live capture.
type TelegramConfig struct {
	Token   string `mapstructure:"token"`
	AdminID int64  `mapstructure:"admin_id" validate:"min=0"`

	// ChatID restricts capture to one group; 0 captures every chat.
	ChatID int64 `mapstructure:"chat_id"`

	// BotInfo is filled at runtime from getMe.
	BotInfo *models.User `mapstructure:"-"`
}

// GeminiConfig configures the optional chat summary.
type GeminiConfig struct {
	APIKey            string  `mapstructure:"api_key"`
	ModelName         string  `mapstructure:"model_name"          validate:"required"`
	Temperature       float32 `mapstructure:"temperature"         validate:"min=0,max=2"`
	SystemInstruction string  `mapstructure:"system_instruction"`
	MaxRetries        int     `mapstructure:"max_retries"         validate:"min=0,max=10"`
	RetryDelaySeconds int     `mapstructure:"retry_delay_seconds" validate:"min=0,max=60"`
}

// Enabled reports whether an API key was supplied.
func (c GeminiConfig) Enabled() bool { return c.APIKey != "" }

// SchedulerConfig lists the periodic tasks run during live capture.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks" validate:"dive"`
}

// TaskConfig enables a task on a cron schedule.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"log-level": "logger.level",
	"log-json":  "logger.json",
	"db-dir":    "database.dir",
	"step":      "collector.step",
	"out":       "report.output_dir",
	"timezone":  "report.timezone",
}

// LoadConfig reads configuration. path may be empty or point to a missing
// file, in which case defaults apply. fs may be nil.
func LoadConfig(path string, fs *pflag.FlagSet) (*Config, error) {
	// .env is optional; only report files that exist but cannot be read.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: failed to load .env: %v", ErrConfiguration, err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: failed to read %s: %v", ErrConfiguration, path, err)
			}
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("%w: failed to bind flag %s: %v", ErrConfiguration, name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrConfiguration, err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if _, err := cfg.Report.Location(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())
