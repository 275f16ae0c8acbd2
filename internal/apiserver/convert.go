package apiserver

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/chainforge/subgraph-core/internal/filter"
	"github.com/chainforge/subgraph-core/internal/manifest"
	"github.com/chainforge/subgraph-core/internal/publish"
	"github.com/chainforge/subgraph-core/internal/trigger"

	"github.com/chainforge/subgraph-core/internal/apiserver/scannerpb"
)

// filterRequest is the subset of fields BlockRangeRequest and
// BlockByHashRequest share: the raw, flat filter criteria a caller
// submits over the wire, with no notion of which data source they came
// from. compileFilters folds it into the same LogFilter/CallFilter/
// BlockFilter trio BlockScanner operates on, by synthesizing one
// manifest.DataSource per requested address (or an address-less wildcard
// data source when no addresses were named).
type filterRequest struct {
	LogAddresses       []string
	EventSignatures    []string
	CallAddresses      []string
	FunctionSignatures []string
	TriggerEveryBlock  bool
	BlockCallAddresses []string
}

func compileFilters(req filterRequest) (*filter.LogFilter, *filter.CallFilter, *filter.BlockFilter) {
	var sources []manifest.DataSource

	if len(req.EventSignatures) > 0 {
		if len(req.LogAddresses) == 0 {
			sources = append(sources, manifest.DataSource{EventSigs: req.EventSignatures})
		} else {
			for _, hex := range req.LogAddresses {
				addr := common.HexToAddress(hex)
				sources = append(sources, manifest.DataSource{Address: &addr, EventSigs: req.EventSignatures})
			}
		}
	}

	for _, hex := range req.CallAddresses {
		addr := common.HexToAddress(hex)
		sources = append(sources, manifest.DataSource{Address: &addr, StartBlock: 0, CallSigs: req.FunctionSignatures})
	}

	for _, hex := range req.BlockCallAddresses {
		addr := common.HexToAddress(hex)
		sources = append(sources, manifest.DataSource{
			Address:       &addr,
			BlockHandlers: []manifest.BlockHandler{{Filter: manifest.BlockHandlerCallFilter}},
		})
	}

	if req.TriggerEveryBlock {
		sources = append(sources, manifest.DataSource{
			Address:       addressOrNil(req.LogAddresses, req.CallAddresses),
			BlockHandlers: []manifest.BlockHandler{{Filter: manifest.BlockHandlerNoFilter}},
		})
	}

	lf := filter.LogFilterFromDataSources(sources)
	cf := filter.CallFilterFromDataSources(sources)
	bf := filter.BlockFilterFromDataSources(sources)
	return lf, cf, bf
}

// addressOrNil picks an address to anchor an unconditional block handler
// data source to; BlockFilterFromDataSources skips address-less data
// sources entirely, so trigger_every_block needs some concrete address
// attached even though which one is irrelevant to the result.
func addressOrNil(groups ...[]string) *common.Address {
	for _, g := range groups {
		if len(g) > 0 {
			addr := common.HexToAddress(g[0])
			return &addr
		}
	}
	zero := common.Address{}
	return &zero
}

func rangeRequestToFilters(req *scannerpb.BlockRangeRequest) (*filter.LogFilter, *filter.CallFilter, *filter.BlockFilter) {
	return compileFilters(filterRequest{
		LogAddresses:       req.LogAddresses,
		EventSignatures:    req.EventSignatures,
		CallAddresses:      req.CallAddresses,
		FunctionSignatures: req.FunctionSignatures,
		TriggerEveryBlock:  req.TriggerEveryBlock,
		BlockCallAddresses: req.BlockCallAddresses,
	})
}

func byHashRequestToFilters(req *scannerpb.BlockByHashRequest) (*filter.LogFilter, *filter.CallFilter, *filter.BlockFilter) {
	return compileFilters(filterRequest{
		LogAddresses:       req.LogAddresses,
		EventSignatures:    req.EventSignatures,
		CallAddresses:      req.CallAddresses,
		FunctionSignatures: req.FunctionSignatures,
		TriggerEveryBlock:  req.TriggerEveryBlock,
		BlockCallAddresses: req.BlockCallAddresses,
	})
}

func encodeBlockEnvelope(bwt trigger.BlockWithTriggers) scannerpb.BlockEnvelope {
	env := publish.EncodeEnvelope(bwt)
	out := scannerpb.BlockEnvelope{Number: env.Number, Hash: env.Hash, Finality: env.Finality}
	for _, t := range env.Triggers {
		out.Triggers = append(out.Triggers, scannerpb.TriggerEnvelope{
			Kind:        t.Kind,
			LogAddress:  t.LogAddress,
			LogTopics:   t.LogTopics,
			LogData:     t.LogData,
			LogIndex:    t.LogIndex,
			TxHash:      t.TxHash,
			CallFrom:    t.CallFrom,
			CallTo:      t.CallTo,
			CallData:    t.CallData,
			BlockCallTo: t.BlockCallTo,
		})
	}
	return out
}
