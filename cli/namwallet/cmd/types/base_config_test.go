package types

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

func newTestCmd(conf *BaseConfiguration, flags ...string) *cobra.Command {
	var chainID string
	cmd := &cobra.Command{
		Use: "test",
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}
	conf.AddConfigurationFlags(cmd)
	cmd.Flags().StringVar(&chainID, "chain-id", "", "")
	cmd.SetArgs(flags)
	return cmd
}

func TestInitializeConfig_defaults(t *testing.T) {
	home := t.TempDir()
	conf := &BaseConfiguration{}
	cmd := newTestCmd(conf, "--home", home)
	require.NoError(t, cmd.Execute())

	require.NoError(t, InitializeConfig(cmd, conf))
	require.Equal(t, filepath.Join(home, defaultConfigFile), conf.CfgFile)
	require.Equal(t, filepath.Join(home, defaultLoggerConfigFile), conf.LoggerCfgFilename())
	require.NotNil(t, conf.Logger)
	require.NotNil(t, conf.Observe)
	require.NotNil(t, conf.ConsoleWriter)
}

func TestInitializeConfig_configFileAndEnv(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, defaultConfigFile), []byte("chain-id=from-file\n"), 0600))

	conf := &BaseConfiguration{}
	cmd := newTestCmd(conf, "--home", home)
	require.NoError(t, cmd.Execute())
	require.NoError(t, conf.InitializeConfig(cmd))
	v, err := cmd.Flags().GetString("chain-id")
	require.NoError(t, err)
	require.Equal(t, "from-file", v)

	t.Setenv("NW_CHAIN_ID", "from-env")
	conf = &BaseConfiguration{}
	cmd = newTestCmd(conf, "--home", home)
	require.NoError(t, cmd.Execute())
	require.NoError(t, conf.InitializeConfig(cmd))
	v, err = cmd.Flags().GetString("chain-id")
	require.NoError(t, err)
	require.Equal(t, "from-env", v)
}

func TestInitLogger_configFile(t *testing.T) {
	home := t.TempDir()
	logFile := filepath.Join(home, "out.log")
	cfgFile := filepath.Join(home, "log.yaml")
	require.NoError(t, os.WriteFile(cfgFile, []byte("defaultLevel: warn\nformat: text\noutputPath: "+logFile+"\n"), 0600))

	conf := &BaseConfiguration{}
	cmd := newTestCmd(conf, "--home", home, "--logger-config", cfgFile, "--log-level", "error")
	require.NoError(t, cmd.Execute())
	conf.InitConfigFileLocation()
	log, err := conf.InitLogger(cmd)
	require.NoError(t, err)
	log.Warn("not logged")
	log.Error("logged")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	require.NotContains(t, string(data), "not logged")
	require.Contains(t, string(data), "level=ERROR")

	// missing custom logger config is an error, missing default one is not
	conf = &BaseConfiguration{}
	cmd = newTestCmd(conf, "--home", home, "--logger-config", "missing.yaml")
	require.NoError(t, cmd.Execute())
	conf.InitConfigFileLocation()
	_, err = conf.InitLogger(cmd)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestInitializeConfig_keepsAssigned(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	conf := &BaseConfiguration{Logger: log}
	cmd := newTestCmd(conf, "--home", t.TempDir())
	require.NoError(t, cmd.Execute())
	require.NoError(t, InitializeConfig(cmd, conf))
	require.Same(t, log, conf.Logger)
}
