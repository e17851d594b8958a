package tools

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet/workflow"
)

func Test_encodeRequestCmd(t *testing.T) {
	tmpDir := t.TempDir()

	createCmd := func(out *bytes.Buffer, args ...string) *cobra.Command {
		cmd := NewToolsCmd()
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		cmd.SetOut(out)
		cmd.SetArgs(append([]string{"encode-request"}, args...))
		return cmd
	}

	writeFile := func(t *testing.T, name, content string) string {
		fn := filepath.Join(tmpDir, name)
		require.NoError(t, os.WriteFile(fn, []byte(content), 0600))
		return fn
	}

	t.Run("no flags provided", func(t *testing.T) {
		cmd := createCmd(&bytes.Buffer{})
		require.EqualError(t, cmd.Execute(), `required flag(s) "request-file" not set`)
	})

	t.Run("yaml request to stdout", func(t *testing.T) {
		fn := writeFile(t, "req.yaml", "kind: transparent\nsource: alice\ntarget: bob\namount: \"10\"\n")
		buf := &bytes.Buffer{}
		require.NoError(t, createCmd(buf, "--request-file", fn).Execute())

		var order workflow.Order
		require.NoError(t, types.Cbor.Unmarshal(buf.Bytes(), &order))
		require.Equal(t, workflow.Order{Kind: "transparent", Source: "alice", Target: "bob", Amount: "10"}, order)
	})

	t.Run("json request to file", func(t *testing.T) {
		fn := writeFile(t, "req.json", `{"kind":"shield","source":"alice","target":"bob","amount":"1"}`)
		out := filepath.Join(tmpDir, "req.cbor")
		buf := &bytes.Buffer{}
		require.NoError(t, createCmd(buf, "--request-file", fn, "--output", out).Execute())
		require.Empty(t, buf.Bytes())

		data, err := os.ReadFile(out)
		require.NoError(t, err)
		var order workflow.Order
		require.NoError(t, types.Cbor.Unmarshal(data, &order))
		require.Equal(t, "shield", order.Kind)
	})

	t.Run("unknown kind", func(t *testing.T) {
		fn := writeFile(t, "bad.json", `{"kind":"teleport","source":"alice"}`)
		require.EqualError(t, createCmd(&bytes.Buffer{}, "--request-file", fn).Execute(), `invalid input: unknown transfer kind "teleport"`)
	})

	t.Run("schemaless", func(t *testing.T) {
		fn := writeFile(t, "any.json", `{"foo":[1,2]}`)
		buf := &bytes.Buffer{}
		require.NoError(t, createCmd(buf, "--request-file", fn, "--schemaless").Execute())

		var v map[string][]int
		require.NoError(t, types.Cbor.Unmarshal(buf.Bytes(), &v))
		require.Equal(t, []int{1, 2}, v["foo"])
	})
}

func Test_convertToCBOR(t *testing.T) {
	data, err := convertToCBOR([]byte("raw"), ".bin")
	require.NoError(t, err)
	require.Equal(t, []byte("raw"), data)

	_, err = convertToCBOR([]byte("{"), ".JSON")
	require.ErrorContains(t, err, "decoding data as json")

	data, err = convertToCBOR([]byte(`<plist version="1.0"><string>abc</string></plist>`), "plist")
	require.NoError(t, err)
	var s string
	require.NoError(t, types.Cbor.Unmarshal(data, &s))
	require.Equal(t, "abc", s)
}

func Test_ibcMemoCmd(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewToolsCmd()
	cmd.SilenceUsage = true
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"ibc-memo", "--amount", "5", "--token", "nam", "--source", "alice", "--receiver", "osmo1xyz"})
	require.NoError(t, cmd.Execute())
	require.Equal(t, "Transfer of 5 nam from alice to osmo1xyz via port transfer and channel channel-0\n", buf.String())

	cmd = NewToolsCmd()
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"ibc-memo", "--amount", "5", "--token", "nam", "--source", "alice", "--receiver", "osmo1xyz", "--channel-id", "chan"})
	require.ErrorContains(t, cmd.Execute(), `invalid IBC channel id "chan"`)
}
