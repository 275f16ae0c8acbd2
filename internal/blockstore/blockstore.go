// Package blockstore implements the content-addressed full-block cache:
// a redis hot tier in front of an
// optional postgres durable tier, keyed by block hash. A block is
// immutable once named by hash, so a cache entry never needs invalidation
// — only eviction, which the redis tier's own TTL handles.
package blockstore

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/chainforge/subgraph-core/internal/chainerr"
	"github.com/chainforge/subgraph-core/internal/trigger"
)

// Record is the durable-tier row: one content-addressed block, its
// receipts, and the RLP payload needed to reconstruct trigger.FullBlock
// without a second round trip to the chain endpoint.
type Record struct {
	Hash        string `gorm:"primaryKey;size:66"`
	Number      uint64 `gorm:"index"`
	BlockRLP    []byte
	ReceiptsRLP []byte
	CachedAt    time.Time
}

// TableName pins the table name so a renamed Go type doesn't migrate a new
// table.
func (Record) TableName() string { return "cached_blocks" }

// hotTTL is how long a block stays in the redis tier before it must be
// re-fetched from postgres (or the chain endpoint, on a total miss). Chosen
// generously since a hit here only ever saves a receipts round trip, never
// changes correctness.
const hotTTL = 30 * time.Minute

// Store is the ChainStore: redis fronting an optional gorm/postgres durable
// tier, keyed by block hash.
type Store struct {
	redis *redis.Client
	db    *gorm.DB
}

// New builds a Store. db may be nil, in which case the store is
// redis-only — a valid deployment for a scan that never needs to survive a
// process restart.
func New(redisClient *redis.Client, db *gorm.DB) *Store {
	return &Store{redis: redisClient, db: db}
}

// Migrate creates the durable tier's table. A no-op if the store has no db.
func (s *Store) Migrate() error {
	if s.db == nil {
		return nil
	}
	return s.db.AutoMigrate(&Record{})
}

// Get returns the cached full block for hash, or ok=false on a total miss.
func (s *Store) Get(ctx context.Context, hash common.Hash) (trigger.FullBlock, bool, error) {
	if s.redis != nil {
		if fb, ok, err := s.getRedis(ctx, hash); err != nil {
			return trigger.FullBlock{}, false, err
		} else if ok {
			return fb, true, nil
		}
	}

	if s.db == nil {
		return trigger.FullBlock{}, false, nil
	}

	var rec Record
	err := s.db.WithContext(ctx).First(&rec, "hash = ?", hash.Hex()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return trigger.FullBlock{}, false, nil
	}
	if err != nil {
		return trigger.FullBlock{}, false, chainerr.Wrap(chainerr.KindUpstreamProtocol, "read cached block", err)
	}

	fb, err := decodeRecord(rec)
	if err != nil {
		return trigger.FullBlock{}, false, err
	}

	if s.redis != nil {
		_ = s.putRedis(ctx, fb)
	}
	return fb, true, nil
}

// Put stores fb in both tiers (whichever are configured).
func (s *Store) Put(ctx context.Context, fb trigger.FullBlock) error {
	if s.redis != nil {
		if err := s.putRedis(ctx, fb); err != nil {
			return err
		}
	}
	if s.db == nil {
		return nil
	}
	rec, err := encodeRecord(fb)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return chainerr.Wrap(chainerr.KindUpstreamProtocol, "write cached block", err)
	}
	return nil
}

func redisKey(hash common.Hash) string { return "chainblock:" + hash.Hex() }

func (s *Store) getRedis(ctx context.Context, hash common.Hash) (trigger.FullBlock, bool, error) {
	raw, err := s.redis.Get(ctx, redisKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return trigger.FullBlock{}, false, nil
	}
	if err != nil {
		return trigger.FullBlock{}, false, chainerr.Wrap(chainerr.KindUpstreamProtocol, "read redis block cache", err)
	}
	var payload wirePayload
	if err := rlp.DecodeBytes(raw, &payload); err != nil {
		return trigger.FullBlock{}, false, chainerr.Wrap(chainerr.KindUpstreamProtocol, "decode cached block", err)
	}
	return payload.toFullBlock(), true, nil
}

func (s *Store) putRedis(ctx context.Context, fb trigger.FullBlock) error {
	payload := wirePayloadFrom(fb)
	raw, err := rlp.EncodeToBytes(payload)
	if err != nil {
		return chainerr.Wrap(chainerr.KindUpstreamProtocol, "encode block for cache", err)
	}
	if err := s.redis.Set(ctx, redisKey(fb.Hash()), raw, hotTTL).Err(); err != nil {
		return chainerr.Wrap(chainerr.KindUpstreamProtocol, "write redis block cache", err)
	}
	return nil
}

// wirePayload is the RLP shape stored for a block: the header, body, and
// receipts in their storage forms, following go-ethereum's own convention
// of converting types.Receipt to types.ReceiptForStorage before persisting
// it, since the consensus RLP encoding of a Receipt drops fields (gas used,
// contract address, logs) a cache needs back on read.
type wirePayload struct {
	Header   *types.Header
	Txs      []*types.Transaction
	Uncles   []*types.Header
	Receipts []*types.ReceiptForStorage
}

func wirePayloadFrom(fb trigger.FullBlock) wirePayload {
	receipts := make([]*types.ReceiptForStorage, len(fb.Receipts))
	for i, r := range fb.Receipts {
		receipts[i] = (*types.ReceiptForStorage)(r)
	}
	return wirePayload{
		Header:   fb.Block.Header(),
		Txs:      fb.Block.Transactions(),
		Uncles:   fb.Block.Uncles(),
		Receipts: receipts,
	}
}

func (p wirePayload) toFullBlock() trigger.FullBlock {
	block := types.NewBlockWithHeader(p.Header).WithBody(p.Txs, p.Uncles)
	receipts := make(types.Receipts, len(p.Receipts))
	for i, r := range p.Receipts {
		receipts[i] = (*types.Receipt)(r)
	}
	return trigger.FullBlock{Block: block, Receipts: receipts}
}

func encodeRecord(fb trigger.FullBlock) (Record, error) {
	payload := wirePayloadFrom(fb)
	blockRLP, err := rlp.EncodeToBytes(struct {
		Header *types.Header
		Txs    []*types.Transaction
		Uncles []*types.Header
	}{payload.Header, payload.Txs, payload.Uncles})
	if err != nil {
		return Record{}, chainerr.Wrap(chainerr.KindUpstreamProtocol, "encode block for storage", err)
	}
	receiptsRLP, err := rlp.EncodeToBytes(payload.Receipts)
	if err != nil {
		return Record{}, chainerr.Wrap(chainerr.KindUpstreamProtocol, "encode receipts for storage", err)
	}
	return Record{
		Hash:        fb.Hash().Hex(),
		Number:      fb.Number(),
		BlockRLP:    blockRLP,
		ReceiptsRLP: receiptsRLP,
		CachedAt:    time.Now(),
	}, nil
}

func decodeRecord(rec Record) (trigger.FullBlock, error) {
	var body struct {
		Header *types.Header
		Txs    []*types.Transaction
		Uncles []*types.Header
	}
	if err := rlp.DecodeBytes(rec.BlockRLP, &body); err != nil {
		return trigger.FullBlock{}, chainerr.Wrap(chainerr.KindUpstreamProtocol, "decode cached block", err)
	}
	var storageReceipts []*types.ReceiptForStorage
	if err := rlp.DecodeBytes(rec.ReceiptsRLP, &storageReceipts); err != nil {
		return trigger.FullBlock{}, chainerr.Wrap(chainerr.KindUpstreamProtocol, "decode cached receipts", err)
	}
	receipts := make(types.Receipts, len(storageReceipts))
	for i, r := range storageReceipts {
		receipts[i] = (*types.Receipt)(r)
	}
	block := types.NewBlockWithHeader(body.Header).WithBody(body.Txs, body.Uncles)
	return trigger.FullBlock{Block: block, Receipts: receipts}, nil
}
