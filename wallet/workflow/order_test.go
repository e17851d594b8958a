package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knowable-run/namwallet/wallet"
)

func TestDecodeOrder(t *testing.T) {
	want := &Order{Kind: "ibc", Source: "alice", Target: "osmo1dst", Amount: "1.5", Channel: "channel-2"}

	inputs := map[string]string{
		"json": `{"kind":"ibc","source":"alice","target":"osmo1dst","amount":"1.5","channel":"channel-2"}`,
		".YAML": "kind: ibc\nsource: alice\ntarget: osmo1dst\namount: \"1.5\"\nchannel: channel-2\n",
		"plist": `<?xml version="1.0" encoding="UTF-8"?>
<plist version="1.0"><dict>
<key>kind</key><string>ibc</string>
<key>source</key><string>alice</string>
<key>target</key><string>osmo1dst</string>
<key>amount</key><string>1.5</string>
<key>channel</key><string>channel-2</string>
</dict></plist>`,
	}
	for format, data := range inputs {
		got, err := DecodeOrder([]byte(data), format)
		require.NoError(t, err, format)
		require.Equal(t, want, got, format)
	}

	_, err := DecodeOrder([]byte("{"), "json")
	require.ErrorIs(t, err, wallet.ErrInvalidInput)
	_, err = DecodeOrder([]byte("kind=ibc"), "toml")
	require.ErrorContains(t, err, `unsupported order format "toml"`)
}

func TestReadOrderFile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "order.json")
	require.NoError(t, os.WriteFile(fn, []byte(`{"kind":"transparent","source":"a","target":"b","amount":"2"}`), 0600))
	order, err := ReadOrderFile(fn)
	require.NoError(t, err)
	require.Equal(t, "transparent", order.Kind)

	_, err = ReadOrderFile(filepath.Join(t.TempDir(), "missing.json"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
