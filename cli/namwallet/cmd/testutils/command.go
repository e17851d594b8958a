package testutils

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/knowable-run/namwallet/cli/namwallet/cmd/types"
	"github.com/knowable-run/namwallet/internal/observability"
	"github.com/knowable-run/namwallet/internal/testutils/logger"
)

type (
	CmdConstructor    func(*types.BaseConfiguration) *cobra.Command
	SubCmdConstructor func(*types.WalletConfig) *cobra.Command
)

type CmdExecutor struct {
	home           string
	cmdConstructor CmdConstructor
	prefixArgs     []string
	observe        *observability.Observe
	stdin          string
}

func NewCmdExecutor(cmdConstructor CmdConstructor, prefixArgs ...string) *CmdExecutor {
	return &CmdExecutor{
		cmdConstructor: cmdConstructor,
		prefixArgs:     prefixArgs,
	}
}

func NewSubCmdExecutor(cmdConstructor SubCmdConstructor, prefixArgs ...string) *CmdExecutor {
	return NewCmdExecutor(func(baseConf *types.BaseConfiguration) *cobra.Command {
		return cmdConstructor(&types.WalletConfig{Base: baseConf})
	}, prefixArgs...)
}

func (c CmdExecutor) WithHome(home string) *CmdExecutor {
	c.home = home
	return &c
}

func (c CmdExecutor) WithPrefixArgs(prefixArgs ...string) *CmdExecutor {
	c.prefixArgs = append(append([]string{}, c.prefixArgs...), prefixArgs...)
	return &c
}

// WithObserve makes the commands record metrics into "observe" instead of a new registry of every run.
func (c CmdExecutor) WithObserve(observe *observability.Observe) *CmdExecutor {
	c.observe = observe
	return &c
}

// WithStdin sets the input of the command.
func (c CmdExecutor) WithStdin(input string) *CmdExecutor {
	c.stdin = input
	return &c
}

func (c *CmdExecutor) Exec(t *testing.T, args ...string) *TestConsoleWriter {
	output, err := c.exec(t, args...)
	require.NoError(t, err)
	return output
}

func (c *CmdExecutor) ExecFunc(t *testing.T, args ...string) func() *TestConsoleWriter {
	return func() *TestConsoleWriter {
		return c.Exec(t, args...)
	}
}

func (c *CmdExecutor) ExecWithError(t *testing.T, expectedError string, args ...string) error {
	_, err := c.exec(t, args...)
	require.ErrorContains(t, err, expectedError)
	return err
}

func (c *CmdExecutor) exec(t *testing.T, args ...string) (*TestConsoleWriter, error) {
	consoleWriter := &TestConsoleWriter{}
	observe := c.observe
	if observe == nil {
		observe = observability.NOP()
	}
	cmdConf := &types.BaseConfiguration{
		HomeDir:       c.home,
		ConsoleWriter: consoleWriter,
		Logger:        logger.New(t),
		Observe:       observe,
	}
	cmd := c.cmdConstructor(cmdConf)
	cmd.SilenceUsage = true
	cmd.SetArgs(append(append([]string{}, c.prefixArgs...), args...))
	if c.stdin != "" {
		cmd.SetIn(strings.NewReader(c.stdin))
	}

	return consoleWriter, cmd.Execute()
}
