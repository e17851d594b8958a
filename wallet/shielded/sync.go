package shielded

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/knowable-run/namwallet/client/types"
	"github.com/knowable-run/namwallet/wallet"
	"github.com/knowable-run/namwallet/wallet/account"
)

const DefaultPageSize = 1000

type (
	Syncer struct {
		masp     types.MaspClient
		db       *ContextDB
		pageSize uint64
		log      *slog.Logger
	}

	SyncResult struct {
		Alias      string
		FromHeight uint64
		ToHeight   uint64
		Pages      int
	}
)

func NewSyncer(masp types.MaspClient, db *ContextDB, pageSize uint64, log *slog.Logger) *Syncer {
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}
	return &Syncer{masp: masp, db: db, pageSize: pageSize, log: log}
}

/*
Sync scans the shielded pool for notes of the viewing keys, starting from the
last synced height of each key (or its birthday) up to the latest height indexed
by the gateway. Progress is stored after every page so an interrupted sync
continues where it stopped.
*/
func (s *Syncer) Sync(ctx context.Context, keys []*account.ViewingKeyRecord) ([]*SyncResult, error) {
	latest, err := s.masp.LatestHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: querying latest masp height: %w", wallet.ErrNetworkFailure, err)
	}
	var results []*SyncResult
	for _, vk := range keys {
		res, err := s.syncKey(ctx, vk, latest)
		if err != nil {
			return results, fmt.Errorf("syncing viewing key %q: %w", vk.Alias, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Syncer) syncKey(ctx context.Context, vk *account.ViewingKeyRecord, latest uint64) (*SyncResult, error) {
	synced, err := s.db.SyncedHeight(vk.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", wallet.ErrStorageFailure, err)
	}
	from := synced + 1
	if synced == 0 {
		from = max(vk.Birthday, 1)
	}
	res := &SyncResult{Alias: vk.Alias, FromHeight: from, ToHeight: synced}
	for from <= latest {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		to := min(from+s.pageSize-1, latest)
		scan, err := s.masp.ScanNotes(ctx, vk.Key, from, to)
		if err != nil {
			return res, fmt.Errorf("%w: scanning notes [%d, %d]: %w", wallet.ErrNetworkFailure, from, to, err)
		}
		scan.FromHeight, scan.ToHeight = from, to
		if err := s.db.Apply(vk.Key, scan); err != nil {
			return res, fmt.Errorf("%w: %w", wallet.ErrStorageFailure, err)
		}
		s.log.DebugContext(ctx, "scanned notes", slog.String("alias", vk.Alias), slog.Uint64("from", from), slog.Uint64("to", to), slog.Int("tokens", len(scan.Deltas)))
		res.ToHeight = to
		res.Pages++
		from = to + 1
	}
	s.log.InfoContext(ctx, "shielded context synced", slog.String("alias", vk.Alias), slog.Uint64("height", res.ToHeight))
	return res, nil
}
