package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/eunmann/vuln-stats/pkg/applist"
	"github.com/eunmann/vuln-stats/pkg/logging"
	"github.com/eunmann/vuln-stats/pkg/store"
	"github.com/eunmann/vuln-stats/pkg/vusc"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configName is the config file name without extension.
const configName = ".vulnstats"

// configType is the config file format.
const configType = "yaml"

// envPrefix is the environment variable prefix, e.g. VULNSTATS_DB_URL.
const envPrefix = "VULNSTATS"

// FlagKeys maps command line flag names to configuration keys. Flags that
// are not defined on a command are ignored when binding.
var FlagKeys = map[string]string{
	"vusc-url":       "vusc.url",
	"db-url":         "db.url",
	"db-user":        "db.user",
	"db-password":    "db.password",
	"app-files":      "apps.files",
	"year":           "apps.year",
	"workers":        "apps.workers",
	"metrics-file":   "output.metrics_file",
	"parquet-dir":    "output.parquet_dir",
	"debug":          "log.debug",
	"human":          "log.human",
	"progress-every": "analyze.progress_every",
}

// Load reads the configuration. If configPath is non-empty it names the
// config file; otherwise .vulnstats.yaml is searched in the working
// directory and $HOME. A missing config file is not an error. Flags set on
// the command line win over everything else.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	applyDefaults(v)

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	client := vusc.DefaultConfig()
	v.SetDefault("vusc.url", "")
	v.SetDefault("vusc.connect_timeout", client.ConnectTimeout)
	v.SetDefault("vusc.read_timeout", client.ReadTimeout)
	v.SetDefault("vusc.user_agent", client.UserAgent)

	sqlite := store.DefaultSQLiteConfig("")
	v.SetDefault("db.url", "")
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sqlite.synchronous", sqlite.Synchronous)
	v.SetDefault("db.sqlite.cache_size_kb", sqlite.CacheSizeKB)
	v.SetDefault("db.sqlite.busy_timeout_ms", sqlite.BusyTimeoutMs)

	v.SetDefault("apps.files", "")
	v.SetDefault("apps.year", 0)
	v.SetDefault("apps.workers", applist.DefaultWorkers)

	v.SetDefault("output.metrics_file", "")
	v.SetDefault("output.parquet_dir", "")

	v.SetDefault("log.debug", false)
	v.SetDefault("log.human", false)

	v.SetDefault("analyze.progress_every", logging.DefaultProgressEvery)
}
