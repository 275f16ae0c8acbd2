// Package scanner implements the BlockScanner component:
// fanning a [from, to] range out across the log, call,
// and block sub-scans, then collating their results into an
// ascending-by-number, no-duplicate list of BlockWithTriggers.
package scanner

import (
	"context"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"golang.org/x/sync/errgroup"

	"github.com/chainforge/subgraph-core/internal/blockstore"
	"github.com/chainforge/subgraph-core/internal/chainclient"
	"github.com/chainforge/subgraph-core/internal/chainerr"
	"github.com/chainforge/subgraph-core/internal/filter"
	"github.com/chainforge/subgraph-core/internal/logging"
	"github.com/chainforge/subgraph-core/internal/telemetry"
	"github.com/chainforge/subgraph-core/internal/trigger"
)

// BlockScanner is the component §4.D names: the seam between a compiled
// filter set and the ordered, deduplicated blocks that satisfy it.
type BlockScanner struct {
	chain   chainclient.ChainClient
	store   *blockstore.Store
	metrics *telemetry.Emitter
	log     logging.Logger
	chainID *big.Int
}

// New builds a BlockScanner. store may be nil, in which case every call
// fetches full blocks directly from chain with no read-through cache.
func New(chain chainclient.ChainClient, store *blockstore.Store, metrics *telemetry.Emitter, log logging.Logger, chainID *big.Int) *BlockScanner {
	return &BlockScanner{chain: chain, store: store, metrics: metrics, log: log, chainID: chainID}
}

// BlocksWithTriggers implements blocks_with_triggers via a
// five-step algorithm: fan out the sub-scans, await them atomically,
// collate into a number->triggers mapping, force-include the terminal
// block, then resolve every referenced hash to a full block.
func (s *BlockScanner) BlocksWithTriggers(
	ctx context.Context,
	from, to uint64,
	lf *filter.LogFilter,
	cf *filter.CallFilter,
	bf *filter.BlockFilter,
) ([]trigger.BlockWithTriggers, error) {
	if from > to {
		return nil, chainerr.InvalidRange(from, to)
	}

	var (
		logTriggers, callTriggers, blockTriggers []trigger.Trigger
		terminalHash                             common.Hash
	)

	g, gctx := errgroup.WithContext(ctx)

	if !lf.IsEmpty() {
		g.Go(func() error {
			logs, err := s.chain.LogsInRange(gctx, from, to, lf)
			if err != nil {
				return err
			}
			for _, lg := range logs {
				if lg.BlockNumber < from || lg.BlockNumber > to {
					return chainerr.UpstreamProtocol("logs_in_range returned a log outside the requested range")
				}
				logTriggers = append(logTriggers, trigger.NewLogTrigger(lg))
			}
			return nil
		})
	}

	if !cf.IsEmpty() {
		g.Go(func() error {
			for res := range s.chain.CallsInRange(gctx, from, to, cf) {
				if res.Err != nil {
					return res.Err
				}
				if res.Call.BlockNumber < from || res.Call.BlockNumber > to {
					return chainerr.UpstreamProtocol("calls_in_range returned a call outside the requested range")
				}
				callTriggers = append(callTriggers, trigger.NewCallTrigger(res.Call))
			}
			return nil
		})
	}

	switch {
	case bf.TriggerEveryBlock():
		g.Go(func() error {
			ptrs, err := s.chain.BlockRangeToPointers(gctx, from, to)
			if err != nil {
				return err
			}
			for _, ptr := range ptrs {
				blockTriggers = append(blockTriggers, trigger.NewBlockTrigger(ptr))
			}
			return nil
		})
	case len(bf.CallAddresses()) > 0:
		g.Go(func() error {
			derived := filter.CallFilterFromBlockFilter(bf)
			for res := range s.chain.CallsInRange(gctx, from, to, derived) {
				if res.Err != nil {
					return res.Err
				}
				if res.Call.BlockNumber < from || res.Call.BlockNumber > to {
					return chainerr.UpstreamProtocol("calls_in_range returned a call outside the requested range")
				}
				ptr := trigger.BlockPointer{Number: res.Call.BlockNumber, Hash: res.Call.BlockHash}
				blockTriggers = append(blockTriggers, trigger.NewBlockCallTrigger(ptr, res.Call.To))
			}
			return nil
		})
	}

	g.Go(func() error {
		hash, ok, err := s.chain.HashForNumber(gctx, to)
		if err != nil {
			return err
		}
		if !ok {
			return chainerr.UpstreamProtocol("terminal block is beyond the endpoint's head")
		}
		terminalHash = hash
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	mapping := make(map[uint64][]trigger.Trigger)
	hashes := make(map[common.Hash]struct{})
	collect := func(triggers []trigger.Trigger) {
		for _, t := range triggers {
			mapping[t.BlockNumber()] = append(mapping[t.BlockNumber()], t)
			hashes[t.BlockHash()] = struct{}{}
		}
	}
	collect(logTriggers)
	collect(callTriggers)
	collect(blockTriggers)

	hashes[terminalHash] = struct{}{}
	if _, ok := mapping[to]; !ok {
		mapping[to] = nil
	}

	hashList := make([]common.Hash, 0, len(hashes))
	for h := range hashes {
		hashList = append(hashList, h)
	}

	blocks, err := s.loadBlocks(ctx, hashList)
	if err != nil {
		return nil, err
	}

	results := make([]trigger.BlockWithTriggers, 0, len(blocks))
	for _, fb := range blocks {
		triggers, ok := mapping[fb.Number()]
		if !ok {
			continue
		}
		delete(mapping, fb.Number())
		results = append(results, trigger.BlockWithTriggers{Block: fb, Triggers: triggers, Finality: trigger.Final})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Number() < results[j].Number() })
	return results, nil
}

// loadBlocks resolves hashes to full blocks, checking the read-through
// cache first: the block store is shared and concurrency-safe, serving
// load_blocks as a read-through cache.
func (s *BlockScanner) loadBlocks(ctx context.Context, hashes []common.Hash) ([]trigger.FullBlock, error) {
	var misses []common.Hash
	found := make(map[common.Hash]trigger.FullBlock, len(hashes))

	if s.store != nil {
		for _, h := range hashes {
			fb, ok, err := s.store.Get(ctx, h)
			if err != nil {
				return nil, err
			}
			if ok {
				found[h] = fb
				continue
			}
			misses = append(misses, h)
		}
	} else {
		misses = hashes
	}

	if len(misses) > 0 {
		for res := range s.chain.LoadBlocks(ctx, misses) {
			if res.Err != nil {
				return nil, res.Err
			}
			found[res.Hash] = res.Block
			if s.store != nil {
				if err := s.store.Put(ctx, res.Block); err != nil {
					return nil, err
				}
			}
		}
	}

	out := make([]trigger.FullBlock, 0, len(hashes))
	for _, h := range hashes {
		fb, ok := found[h]
		if !ok {
			return nil, chainerr.BlockUnavailable(h)
		}
		out = append(out, fb)
	}
	return out, nil
}

// BlockByHash resolves a single full block through the same read-through
// cache loadBlocks uses, for callers (apiserver's triggers_in_block
// surface) that already know which block they want evaluated.
func (s *BlockScanner) BlockByHash(ctx context.Context, hash common.Hash) (trigger.FullBlock, error) {
	blocks, err := s.loadBlocks(ctx, []common.Hash{hash})
	if err != nil {
		return trigger.FullBlock{}, err
	}
	return blocks[0], nil
}

// TriggersInBlock implements triggers_in_block: the single-block variant
// that evaluates the filters directly against an already-fetched block's
// logs and calls, rather than issuing new getLogs/range requests — the
// block is already in hand, so nothing upstream needs to be asked again.
func (s *BlockScanner) TriggersInBlock(fb trigger.FullBlock, lf *filter.LogFilter, cf *filter.CallFilter, bf *filter.BlockFilter) trigger.BlockWithTriggers {
	var triggers []trigger.Trigger

	for _, receipt := range fb.Receipts {
		for _, lg := range receipt.Logs {
			if lg != nil && lf.Matches(*lg) {
				triggers = append(triggers, trigger.NewLogTrigger(*lg))
			}
		}
	}

	// Block-handler triggers follow the same priority BlocksWithTriggers'
	// switch uses: an unfiltered block handler wins over a call-filtered
	// one, never both, so a data source declaring both handler kinds
	// produces the same trigger set through either API.
	triggerEveryBlock := bf.TriggerEveryBlock()
	watchAddrs := bf.CallAddresses()

	signer := s.signerFor(fb.Block)
	for _, tx := range fb.Block.Transactions() {
		call, ok := s.callFromTransaction(signer, fb.Block, tx)
		if !ok {
			continue
		}
		if cf.Matches(filter.Call{To: call.To, Input: call.Input}) {
			triggers = append(triggers, trigger.NewCallTrigger(call))
		}
		if !triggerEveryBlock && len(watchAddrs) > 0 {
			if _, watched := watchAddrs[call.To]; watched {
				triggers = append(triggers, trigger.NewBlockCallTrigger(fb.Pointer(), call.To))
			}
		}
	}

	if triggerEveryBlock {
		triggers = append(triggers, trigger.NewBlockTrigger(fb.Pointer()))
	}

	return trigger.BlockWithTriggers{Block: fb, Triggers: triggers, Finality: trigger.Final}
}

func (s *BlockScanner) signerFor(block *types.Block) types.Signer {
	if s.chainID != nil {
		return types.LatestSignerForChainID(s.chainID)
	}
	return types.LatestSignerForChainID(block.Number())
}

func (s *BlockScanner) callFromTransaction(signer types.Signer, block *types.Block, tx *types.Transaction) (trigger.Call, bool) {
	if tx.To() == nil {
		return trigger.Call{}, false
	}
	from, err := types.Sender(signer, tx)
	if err != nil {
		from = common.Address{}
	}
	return trigger.Call{
		BlockNumber: block.NumberU64(),
		BlockHash:   block.Hash(),
		TxHash:      tx.Hash(),
		From:        from,
		To:          *tx.To(),
		Input:       tx.Data(),
	}, true
}
