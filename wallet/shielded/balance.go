package shielded

import (
	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/util"
)

// Balance returns the formatted balance of the token for the viewing key.
// Missing or undecodable data is reported as "0", the balance is informational.
func (c *ContextDB) Balance(viewingKey string, token types.Address, denom uint8) string {
	balances, err := c.Balances(viewingKey)
	if err != nil {
		return "0"
	}
	raw, ok := balances[token]
	if !ok {
		return "0"
	}
	s, err := util.FormatRawAmount(raw, denom)
	if err != nil {
		return "0"
	}
	return s
}
