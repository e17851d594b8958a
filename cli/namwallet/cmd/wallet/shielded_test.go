package wallet

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/knowable-run/namwallet/cli/namwallet/cmd/testutils"
	"github.com/knowable-run/namwallet/client/rpc/mocksrv"
	inttestutils "github.com/knowable-run/namwallet/internal/testutils"
)

func TestShieldedSyncAndBalance(t *testing.T) {
	home, _ := testutils.CreateNewWallet(t, "main")
	vk := inttestutils.NewViewingKey(t, 2)
	newWalletExecutor(home).Exec(t, "add-viewing-key", "--alias", "shielded", "--key", vk)

	native := nativeToken(t)
	gw, _, gwArgs := startGateway(t,
		mocksrv.WithEpochs(1, 4),
		mocksrv.WithNotes(vk, 30,
			mocksrv.Note{Height: 3, Token: native, Delta: "1000000"},
			mocksrv.Note{Height: 25, Token: native, Delta: "500000"},
		),
	)
	exec := newWalletExecutor(home, gwArgs...)

	// nothing synced yet
	out := exec.Exec(t, "shielded-balance", "--owner", "shielded")
	require.Equal(t, []string{"Last committed masp epoch: 4", "native: 0"}, out.Lines)

	out = exec.Exec(t, "shielded-sync", "--page-size", "10")
	require.Equal(t, []string{`Synced "shielded" up to block 30`}, out.Lines)
	require.Equal(t, 3, gw.CallCount("masp_scanNotes"))

	out = exec.Exec(t, "shielded-balance", "--owner", "shielded")
	require.Equal(t, []string{"Last committed masp epoch: 4", "native: 1.5"}, out.Lines)

	// already synced to the latest height
	out = exec.Exec(t, "shielded-sync", "--viewing-key", "shielded")
	require.Equal(t, []string{`Synced "shielded" up to block 30`}, out.Lines)
	require.Equal(t, 3, gw.CallCount("masp_scanNotes"))

	exec.ExecWithError(t, `not found: viewing key "other"`, "shielded-sync", "--viewing-key", "other")
	exec.ExecWithError(t, `not found: viewing key "other"`, "shielded-balance", "--owner", "other")
}

func TestShieldedSync_noKeys(t *testing.T) {
	home, _ := testutils.CreateNewWallet(t, "main")
	_, _, gwArgs := startGateway(t)
	out := newWalletExecutor(home, gwArgs...).Exec(t, "shielded-sync")
	require.Equal(t, []string{"No viewing keys in the wallet"}, out.Lines)
}

func TestGenPaymentAddrCmd(t *testing.T) {
	home, _ := testutils.CreateNewWallet(t, "main")
	vk := inttestutils.NewViewingKey(t, 2)
	newWalletExecutor(home).Exec(t, "add-viewing-key", "--alias", "shielded", "--key", vk)
	pa := inttestutils.NewPaymentAddress(t, 3)
	gw, _, gwArgs := startGateway(t, mocksrv.WithPaymentAddress(vk, pa))
	exec := newWalletExecutor(home, gwArgs...)

	exec.ExecWithError(t, `alias "default"`, "address", "--alias", "default")

	out := exec.Exec(t, "gen-payment-addr", "--alias", "default", "--viewing-key", "shielded")
	require.Equal(t, []string{fmt.Sprintf(`Successfully generated payment address %s with alias "default"`, pa)}, out.Lines)

	out = exec.Exec(t, "address", "--alias", "default")
	require.Equal(t, []string{pa.String()}, out.Lines)

	// existing alias is kept unless forced
	out = exec.Exec(t, "gen-payment-addr", "--alias", "default", "--viewing-key", "shielded")
	require.Equal(t, []string{fmt.Sprintf(`Payment address with alias "default" already exists: %s`, pa)}, out.Lines)
	require.Equal(t, 1, gw.CallCount("masp_paymentAddress"))

	next := inttestutils.NewPaymentAddress(t, 4)
	gw.SetPaymentAddress(vk, next)
	out = exec.Exec(t, "gen-payment-addr", "--alias", "default", "--viewing-key", "shielded", "--force")
	require.Equal(t, []string{fmt.Sprintf(`Successfully generated payment address %s with alias "default"`, next)}, out.Lines)
	out = exec.Exec(t, "address", "--alias", "default")
	require.Equal(t, []string{next.String()}, out.Lines)

	exec.ExecWithError(t, `not found: viewing key "nope"`, "gen-payment-addr", "--alias", "x", "--viewing-key", "nope")
}
