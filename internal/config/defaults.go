package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values for configuration.
const (
	DefaultLogLevel = "info"

	DefaultTelegramCLIHost    = "localhost"
	DefaultTelegramCLIPort    = 4458
	DefaultTelegramCLITimeout = 30 * time.Second

	DefaultCollectorStep    = 100
	DefaultCollectorBackoff = 2 * time.Second

	DefaultReportTitle     = "Telegram Statistics"
	DefaultReportTimezone  = "Local"
	DefaultPeakWindow      = time.Hour
	DefaultSummaryMessages = 300

	DefaultGeminiModel = "gemini-2.0-flash"
)

// DefaultSummaryInstruction steers the optional chat summary.
const DefaultSummaryInstruction = "You summarize group chat history for a statistics page. " +
	"Write three to five short paragraphs describing the main topics, recurring jokes and notable events. " +
	"Do not quote messages verbatim and do not mention user ids."

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", false)

	v.SetDefault("database.dir", ".")

	v.SetDefault("telegram_cli.host", DefaultTelegramCLIHost)
	v.SetDefault("telegram_cli.port", DefaultTelegramCLIPort)
	v.SetDefault("telegram_cli.timeout", DefaultTelegramCLITimeout)

	v.SetDefault("collector.step", DefaultCollectorStep)
	v.SetDefault("collector.backoff", DefaultCollectorBackoff)

	v.SetDefault("report.title", DefaultReportTitle)
	v.SetDefault("report.timezone", DefaultReportTimezone)
	v.SetDefault("report.output_dir", "")
	v.SetDefault("report.initial_population", 0)
	v.SetDefault("report.top_talkers", 15)
	v.SetDefault("report.top_words", 50)
	v.SetDefault("report.top_emojis", 20)
	v.SetDefault("report.top_commands", 6)
	v.SetDefault("report.top_command_users", 6)
	v.SetDefault("report.top_bots", 5)
	v.SetDefault("report.top_renames", 10)
	v.SetDefault("report.peak_window", DefaultPeakWindow)
	v.SetDefault("report.summary_messages", DefaultSummaryMessages)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.admin_id", 0)
	v.SetDefault("telegram.chat_id", 0)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", DefaultGeminiModel)
	v.SetDefault("gemini.temperature", 0.7)
	v.SetDefault("gemini.system_instruction", DefaultSummaryInstruction)
	v.SetDefault("gemini.max_retries", 2)
	v.SetDefault("gemini.retry_delay_seconds", 5)

	v.SetDefault("scheduler.tasks", map[string]any{
		"sql_maintenance": map[string]any{"enabled": true, "schedule": "0 0 4 * * *"},
		"report":          map[string]any{"enabled": true, "schedule": "0 30 4 * * *"},
	})
}
