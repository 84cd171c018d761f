package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Fixed ports of the dashboard and the in-container terminal server.
const (
	DefaultPublicPort   = 7680
	DefaultTerminalPort = 7681
)

// Settings is a typed view of the loaded configuration.
type Settings struct {
	Host          string
	Port          int
	Prefix        string
	TerminalPort  int
	Wrapper       string
	Title         string
	StopGrace     time.Duration
	InternalMount string
	SecretsDir    string
	CreateScript  string
	WatchBackoff  time.Duration
	HubBuffer     int
	MetricsPort   int
	Verbose       bool
	LogFile       string
	SlackEnabled  bool
	SlackChannel  string
}

// Load initializes the configuration from file and environment variables.
func Load(cfgFile string) {
	// .env is optional
	_ = godotenv.Load()

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix("SAFECLAW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	SetDefaults()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Warning: failed to read config file %s: %v\n", cfgFile, err)
	}
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("server.host", "127.0.0.1")
	viper.SetDefault("server.port", DefaultPublicPort)
	viper.SetDefault("session.prefix", "safeclaw")
	viper.SetDefault("terminal.port", DefaultTerminalPort)
	viper.SetDefault("terminal.wrapper", "/home/sclaw/ttyd-wrapper.sh")
	viper.SetDefault("terminal.title", "SafeClaw")
	viper.SetDefault("runtime.stop_grace", 1)
	viper.SetDefault("runtime.internal_mount", "/home/sclaw/.claude")
	viper.SetDefault("secrets_dir", "")
	viper.SetDefault("create.script", "./scripts/run.sh")
	viper.SetDefault("watcher.backoff", "1s")
	viper.SetDefault("hub.buffer", 64)
	viper.SetDefault("metrics_port", 0)
	viper.SetDefault("verbose", false)
	viper.SetDefault("log_file", "")

	// Notification Defaults
	viper.SetDefault("notifications.slack.enabled", os.Getenv("SLACK_BOT_USER_TOKEN") != "")
	viper.SetDefault("notifications.slack.channel", "#general")
}

// Get reads the current settings from viper.
func Get() Settings {
	return Settings{
		Host:          viper.GetString("server.host"),
		Port:          viper.GetInt("server.port"),
		Prefix:        viper.GetString("session.prefix"),
		TerminalPort:  viper.GetInt("terminal.port"),
		Wrapper:       viper.GetString("terminal.wrapper"),
		Title:         viper.GetString("terminal.title"),
		StopGrace:     seconds("runtime.stop_grace"),
		InternalMount: viper.GetString("runtime.internal_mount"),
		SecretsDir:    viper.GetString("secrets_dir"),
		CreateScript:  viper.GetString("create.script"),
		WatchBackoff:  seconds("watcher.backoff"),
		HubBuffer:     viper.GetInt("hub.buffer"),
		MetricsPort:   viper.GetInt("metrics_port"),
		Verbose:       viper.GetBool("verbose"),
		LogFile:       viper.GetString("log_file"),
		SlackEnabled:  viper.GetBool("notifications.slack.enabled"),
		SlackChannel:  viper.GetString("notifications.slack.channel"),
	}
}

// seconds reads a duration key that may be written either as a Go duration
// ("1s", "500ms") or as a bare number of seconds.
func seconds(key string) time.Duration {
	if n, err := strconv.Atoi(viper.GetString(key)); err == nil {
		return time.Duration(n) * time.Second
	}
	return viper.GetDuration(key)
}
