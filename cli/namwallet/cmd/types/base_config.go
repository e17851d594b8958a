package types

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/knowable-run/namwallet/internal/observability"
)

type (
	BaseConfiguration struct {
		// The wallet home directory
		HomeDir string
		// Configuration file URL. If it's relative, then it's relative from the HomeDir.
		CfgFile string
		// Logger configuration file URL.
		LogCfgFile string
		// Prometheus textfile the metrics are written to, metrics are not exported when empty.
		MetricsFile string

		ConsoleWriter ConsoleWrapper

		Logger  *slog.Logger
		Observe *observability.Observe
	}
)

const (
	// The prefix for configuration keys inside environment.
	envPrefix = "NW"
	// The default name for config file.
	defaultConfigFile = "config.props"
	// the default wallet home directory.
	defaultHomeDir = ".namwallet"
	// The default logger configuration file name.
	defaultLoggerConfigFile = "logger-config.yaml"
	// The configuration key for home directory.
	keyHome = "home"
	// The configuration key for config file name.
	keyConfig = "config"

	flagNameLoggerCfgFile = "logger-config"
	flagNameLogOutputFile = "log-file"
	flagNameLogLevel      = "log-level"
	flagNameLogFormat     = "log-format"
	flagNameMetricsFile   = "metrics-file"
)

func (c *BaseConfiguration) AddConfigurationFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&c.HomeDir, keyHome, "", fmt.Sprintf("set the NW_HOME for this invocation (default is %s)", walletHomeDir()))
	cmd.PersistentFlags().StringVar(&c.CfgFile, keyConfig, "", fmt.Sprintf("config file URL (default is $NW_HOME/%s)", defaultConfigFile))
	cmd.PersistentFlags().StringVar(&c.LogCfgFile, flagNameLoggerCfgFile, defaultLoggerConfigFile, "logger config file URL. Considered absolute if starts with '/'. Otherwise relative from $NW_HOME.")
	cmd.PersistentFlags().StringVar(&c.MetricsFile, flagNameMetricsFile, "", "write metrics of the run to the file in Prometheus text format, disabled when not set")
	// do not set default values for these flags as then we can easily determine whether to load the value from cfg file or not
	cmd.PersistentFlags().String(flagNameLogOutputFile, "", "log file path or one of the special values: stdout, stderr, discard")
	cmd.PersistentFlags().String(flagNameLogLevel, "", "logging level, one of: DEBUG, INFO, WARN, ERROR")
	cmd.PersistentFlags().String(flagNameLogFormat, "", "log format, one of: text, json, console")
}

// InitConfigFileLocation resolves home dir and config file, in order of precedence: flag, environment, default.
// These are handled before Viper as the rest of the configuration is loaded from there.
func (c *BaseConfiguration) InitConfigFileLocation() {
	c.HomeDir = firstNonEmpty(c.HomeDir, os.Getenv(envKey(keyHome)), walletHomeDir())
	c.CfgFile = firstNonEmpty(c.CfgFile, os.Getenv(envKey(keyConfig)), defaultConfigFile)
	if !filepath.IsAbs(c.CfgFile) {
		c.CfgFile = filepath.Join(c.HomeDir, c.CfgFile)
	}
}

/*
LoggerCfgFilename always returns non-empty filename - either the value
of the flag set by user or default cfg location.
*/
func (c *BaseConfiguration) LoggerCfgFilename() string {
	if c.LogCfgFile == "" {
		c.LogCfgFile = defaultLoggerConfigFile
	}
	if !filepath.IsAbs(c.LogCfgFile) {
		return filepath.Join(c.HomeDir, c.LogCfgFile)
	}
	return c.LogCfgFile
}

func (c *BaseConfiguration) ConfigFileExists() bool {
	_, err := os.Stat(c.CfgFile)
	return err == nil
}

/*
InitLogger creates Logger based on the logger configuration file and the
configuration flags in "cmd", flags override values loaded from the file.
*/
func (c *BaseConfiguration) InitLogger(cmd *cobra.Command) (*slog.Logger, error) {
	cfg := &LogConfiguration{}

	loggerCfgFile := c.LoggerCfgFilename()
	if f, err := os.Open(filepath.Clean(loggerCfgFile)); err != nil {
		defaultLoggerCfg := filepath.Join(c.HomeDir, defaultLoggerConfigFile)
		if !(errors.Is(err, os.ErrNotExist) && loggerCfgFile == defaultLoggerCfg) {
			return nil, fmt.Errorf("opening logger configuration file: %w", err)
		}
	} else {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decoding logger configuration (%s): %w", loggerCfgFile, err)
		}
	}

	// flags mustn't have default values in the command definition, only values set by user override the file
	overrides := []struct {
		flag  string
		value *string
	}{
		{flagNameLogLevel, &cfg.Level},
		{flagNameLogFormat, &cfg.Format},
		{flagNameLogOutputFile, &cfg.OutputPath},
	}
	for _, o := range overrides {
		if !cmd.Flags().Changed(o.flag) {
			continue
		}
		v, err := cmd.Flags().GetString(o.flag)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s flag value: %w", o.flag, err)
		}
		*o.value = v
	}

	log, err := NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return log, nil
}

// InitializeConfig reads in config file and ENV variables if set.
func (c *BaseConfiguration) InitializeConfig(cmd *cobra.Command) error {
	v := viper.New()

	c.InitConfigFileLocation()

	if c.ConfigFileExists() {
		v.SetConfigFile(c.CfgFile)
	}

	// missing config file is fine, unparsable one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file %s: %w", c.CfgFile, err)
		}
	}

	// environment variables are prefixed, e.g. a flag like --rpc-url
	// binds to an environment variable NW_RPC_URL.
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := bindFlags(cmd, v); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}

	return nil
}

func envKey(key string) string {
	return strings.ToUpper(envPrefix + "_" + key)
}

// walletHomeDir is "$HOME/.namwallet", relative to the working dir when user home is not known.
func walletHomeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return defaultHomeDir
	}
	return filepath.Join(dir, defaultHomeDir)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Bind each cobra flag to its associated viper configuration (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var bindFlagErr []error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Name == keyHome || f.Name == keyConfig {
			// "home" and "config" are special configuration values, handled separately.
			return
		}

		// Environment variables can't have dashes in them, so bind them to their equivalent
		// keys with underscores, e.g. --chain-id to NW_CHAIN_ID
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name, fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				bindFlagErr = append(bindFlagErr, fmt.Errorf("binding env to flag %q: %w", f.Name, err))
				return
			}
		}

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				bindFlagErr = append(bindFlagErr, fmt.Errorf("setting flag %q value: %w", f.Name, err))
				return
			}
		}
	})

	return errors.Join(bindFlagErr...)
}

/*
InitializeConfig loads configuration for the command and initializes logger
and observability unless these have been already assigned (ie by tests).
*/
func InitializeConfig(cmd *cobra.Command, config *BaseConfiguration) error {
	var errs []error

	if err := config.InitializeConfig(cmd); err != nil {
		errs = append(errs, fmt.Errorf("reading configuration: %w", err))
	}

	if config.Logger == nil {
		log, err := config.InitLogger(cmd)
		if err != nil {
			errs = append(errs, fmt.Errorf("initializing logger: %w", err))
		}
		config.Logger = log
	}

	if config.Observe == nil {
		config.Observe = observability.New(config.MetricsFile)
	}
	if config.ConsoleWriter == nil {
		config.ConsoleWriter = NewStdoutWriter()
	}
	return errors.Join(errs...)
}
