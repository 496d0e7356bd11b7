// Package syncer tails the privacy contract's event stream and drives the
// local Merkle accumulator to mirror the on-chain commitment set.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/rs/zerolog"

	"github.com/SunsetLabs-Game/zylith-asp/merkle"
	"github.com/SunsetLabs-Game/zylith-asp/types"
)

// eventChunkSize is the page size for event queries.
const eventChunkSize = 1000

// Syncer advances a block watermark, applies decoded deposits to the tree,
// and rebuilds from genesis when the local root diverges from the contract's.
type Syncer struct {
	provider Provider
	contract *big.Int
	tree     *merkle.Tree
	store    *StateStore
	decoder  *Decoder
	log      zerolog.Logger

	pollInterval  time.Duration
	disableResync bool

	watermark uint64

	// Divergence is only acted on after two consecutive mismatches at
	// least one poll interval apart, so an in-flight contract transaction
	// doesn't thrash the tree.
	mismatches   int
	lastMismatch time.Time
}

// New creates a Syncer. The persisted watermark is loaded now; a
// RESYNC_FROM_BLOCK override replaces and re-persists it.
func New(cfg Config, provider Provider, tree *merkle.Tree, store *StateStore, log zerolog.Logger) (*Syncer, error) {
	contract, err := types.ParseFelt(cfg.ContractAddress)
	if err != nil {
		return nil, fmt.Errorf("contract address: %w", err)
	}

	logger := log.With().Str("component", "syncer").Logger()

	st, err := store.Load()
	if err != nil {
		return nil, err
	}
	watermark := st.LastSyncedBlock

	if cfg.ResyncFromBlock != nil {
		watermark = *cfg.ResyncFromBlock
		if err := store.Save(State{LastSyncedBlock: watermark}); err != nil {
			return nil, err
		}
		logger.Info().Uint64("block", watermark).Msg("watermark overridden by RESYNC_FROM_BLOCK")
	}

	return &Syncer{
		provider:      provider,
		contract:      contract,
		tree:          tree,
		store:         store,
		decoder:       NewDecoder(contract, logger),
		log:           logger,
		pollInterval:  cfg.PollInterval,
		disableResync: cfg.DisableResync,
		watermark:     watermark,
	}, nil
}

// Watermark returns the last fully applied block.
func (s *Syncer) Watermark() uint64 { return s.watermark }

// Run executes the sync loop until ctx is cancelled. Errors are logged and
// retried on the next tick; the watermark only advances after a block range
// is fully drained, so a cancellation mid-range is safe.
func (s *Syncer) Run(ctx context.Context) {
	s.log.Info().
		Str("contract", types.HexFelt(s.contract)).
		Uint64("watermark", s.watermark).
		Msg("syncer started")

	for {
		s.checkExternalReset()
		s.reconcile(ctx)

		if err := s.SyncOnce(ctx); err != nil {
			s.log.Error().Err(err).Msg("sync iteration failed")
		}

		select {
		case <-ctx.Done():
			s.log.Info().Msg("syncer stopped")
			return
		case <-time.After(s.pollInterval):
		}
	}
}

// SyncOnce pulls and applies all events between the watermark and the chain
// head. The watermark advances and persists only after the last page.
func (s *Syncer) SyncOnce(ctx context.Context) error {
	latest, err := s.provider.BlockNumber(ctx)
	if err != nil {
		return fmt.Errorf("query latest block: %w", err)
	}
	if s.watermark >= latest {
		return nil
	}

	filter := EventFilter{
		FromBlock: s.watermark + 1,
		ToBlock:   latest,
		Address:   s.contract,
	}

	applied := 0
	continuation := ""
	for {
		page, err := s.provider.Events(ctx, filter, continuation, eventChunkSize)
		if err != nil {
			return fmt.Errorf("query events %d-%d: %w", filter.FromBlock, filter.ToBlock, err)
		}

		for _, ev := range page.Events {
			dep, ok := s.decoder.Decode(ev)
			if !ok {
				continue
			}
			if err := s.apply(dep); err != nil {
				return err
			}
			applied++
		}

		if page.ContinuationToken == "" {
			break
		}
		continuation = page.ContinuationToken
	}

	s.watermark = latest
	if err := s.store.Save(State{LastSyncedBlock: latest}); err != nil {
		// The in-memory watermark still advances; re-processing after a
		// restart is idempotent.
		s.log.Error().Err(err).Msg("persist watermark failed")
	}

	if applied > 0 {
		s.log.Info().
			Int("deposits", applied).
			Uint64("block", latest).
			Str("root", types.HexFelt(s.tree.Root())).
			Msg("applied deposits")
	}
	return nil
}

// apply inserts one deposit. An index conflict means the local view disagrees
// with the contract; it forces an immediate rebuild unless resync is disabled.
func (s *Syncer) apply(dep *Deposit) error {
	root, err := s.tree.InsertAt(dep.LeafIndex, dep.Commitment)
	if err != nil {
		var conflict *merkle.IndexConflictError
		if errors.As(err, &conflict) {
			s.log.Error().
				Uint32("index", conflict.Index).
				Uint64("block", dep.Block).
				Msg("leaf conflicts with synced state")
			if !s.disableResync {
				s.rebuild("index conflict")
			}
		}
		return fmt.Errorf("insert leaf %d: %w", dep.LeafIndex, err)
	}

	if root.Cmp(dep.Root) != 0 {
		// Expected while earlier indices are still gap-filled; the
		// periodic reconciliation catches real divergence.
		s.log.Debug().
			Uint32("index", dep.LeafIndex).
			Str("local", types.HexFelt(root)).
			Str("event", types.HexFelt(dep.Root)).
			Msg("post-insertion root differs from event root")
	}
	return nil
}

// reconcile compares the local root with the contract's. Divergence confirmed
// across two polls triggers a rebuild from genesis.
func (s *Syncer) reconcile(ctx context.Context) {
	onchain, err := s.provider.MerkleRoot(ctx, s.contract)
	if err != nil {
		s.log.Warn().Err(err).Msg("read on-chain root failed")
		return
	}

	local := s.tree.Root()
	if local.Cmp(onchain) == 0 {
		s.mismatches = 0
		return
	}

	if s.mismatches > 0 && time.Since(s.lastMismatch) >= s.pollInterval {
		if s.disableResync {
			s.log.Error().
				Str("local", types.HexFelt(local)).
				Str("onchain", types.HexFelt(onchain)).
				Msg("root divergence confirmed, resync disabled")
			return
		}
		s.rebuild("root divergence")
		return
	}

	if s.mismatches == 0 {
		s.lastMismatch = time.Now()
	}
	s.mismatches++
	s.log.Warn().
		Str("local", types.HexFelt(local)).
		Str("onchain", types.HexFelt(onchain)).
		Int("observations", s.mismatches).
		Msg("root mismatch observed")
}

// rebuild discards all local state and resumes from genesis.
func (s *Syncer) rebuild(reason string) {
	s.log.Error().Str("reason", reason).Msg("rebuilding accumulator from genesis")
	s.tree.Reset()
	s.watermark = 0
	s.mismatches = 0
	if err := s.store.Save(State{LastSyncedBlock: 0}); err != nil {
		s.log.Error().Err(err).Msg("persist rewound watermark failed")
	}
}

// checkExternalReset re-reads the state file. A watermark rewound on disk is
// an operator request to resync without restarting the process.
func (s *Syncer) checkExternalReset() {
	st, err := s.store.Load()
	if err != nil {
		s.log.Warn().Err(err).Msg("re-read state file failed")
		return
	}
	if st.LastSyncedBlock < s.watermark {
		s.log.Info().
			Uint64("from", s.watermark).
			Uint64("to", st.LastSyncedBlock).
			Msg("state file rewound, resetting accumulator")
		s.tree.Reset()
		s.watermark = st.LastSyncedBlock
		s.mismatches = 0
	}
}
