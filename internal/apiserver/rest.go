package apiserver

import (
	"context"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"github.com/chainforge/subgraph-core/internal/callcache"
	"github.com/chainforge/subgraph-core/internal/logging"
	"github.com/chainforge/subgraph-core/internal/publish"
	"github.com/chainforge/subgraph-core/internal/scanner"
	"github.com/chainforge/subgraph-core/internal/trigger"
)

// triggersTopic is the downstream topic/channel every resolved
// BlockWithTriggers is published to, regardless of which surface
// (REST or gRPC) resolved it.
const triggersTopic = "blocks_with_triggers"

// Server is the REST surface over a BlockScanner: a query endpoint for
// blocks_with_triggers, a contract_call proxy over an EthereumCallCache,
// and an unauthenticated health probe.
type Server struct {
	router    *mux.Router
	scan      *scanner.BlockScanner
	callCache *callcache.EthereumCallCache
	pub       publish.Publisher
	auth      *AuthMiddleware
	log       logging.Logger
}

// NewServer builds the REST Server and registers its routes. callCache and
// pub may both be nil: a nil callCache makes POST /contract-call respond
// 503, and a nil pub simply skips the downstream fan-out.
func NewServer(scan *scanner.BlockScanner, callCache *callcache.EthereumCallCache, pub publish.Publisher, auth *AuthMiddleware, log logging.Logger) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		scan:      scan,
		callCache: callCache,
		pub:       pub,
		auth:      auth,
		log:       log,
	}
	s.registerRoutes()
	return s
}

// publishResults fans every resolved block out to the configured downstream
// sink. A publish failure is logged, not surfaced to the caller: the
// blocks_with_triggers response already reflects the correct, current
// result regardless of whether the fan-out succeeds.
func (s *Server) publishResults(ctx context.Context, results []trigger.BlockWithTriggers) {
	publishTriggers(ctx, s.pub, s.log, results)
}

// publishTriggers is shared between the REST and gRPC surfaces: both resolve
// triggers through the same *scanner.BlockScanner and fan the result out to
// the same downstream sink.
func publishTriggers(ctx context.Context, pub publish.Publisher, log logging.Logger, results []trigger.BlockWithTriggers) {
	if pub == nil {
		return
	}
	for _, bwt := range results {
		if err := pub.Publish(ctx, triggersTopic, bwt); err != nil {
			log.Error("publish block %d: %v", bwt.Number(), err)
		}
	}
}

// Router returns the underlying *mux.Router, for http.ListenAndServe or a
// test httptest.Server.
func (s *Server) Router() *mux.Router { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.healthHandler).Methods(http.MethodGet)

	blocks := s.router.PathPrefix("/blocks").Subrouter()
	blocks.Use(s.auth.Middleware)
	blocks.HandleFunc("", s.blocksWithTriggersHandler).Methods(http.MethodGet)

	calls := s.router.PathPrefix("/contract-call").Subrouter()
	calls.Use(s.auth.Middleware)
	calls.HandleFunc("", s.contractCallHandler).Methods(http.MethodPost)
}

// blocksWithTriggersHandler handles GET /blocks?from=&to=&log_address=&
// event_signature=&call_address=&function_signature=&trigger_every_block=&
// block_call_address=, each repeatable query key folding into the filter
// criteria compileFilters turns into a LogFilter/CallFilter/BlockFilter.
func (s *Server) blocksWithTriggersHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	from, err := strconv.ParseUint(q.Get("from"), 10, 64)
	if err != nil {
		http.Error(w, "invalid or missing 'from'", http.StatusBadRequest)
		return
	}
	to, err := strconv.ParseUint(q.Get("to"), 10, 64)
	if err != nil {
		http.Error(w, "invalid or missing 'to'", http.StatusBadRequest)
		return
	}

	lf, cf, bf := compileFilters(filterRequest{
		LogAddresses:       q["log_address"],
		EventSignatures:    q["event_signature"],
		CallAddresses:      q["call_address"],
		FunctionSignatures: q["function_signature"],
		TriggerEveryBlock:  q.Get("trigger_every_block") == "true",
		BlockCallAddresses: q["block_call_address"],
	})

	results, err := s.scan.BlocksWithTriggers(r.Context(), from, to, lf, cf, bf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.publishResults(r.Context(), results)

	envelopes := make([]interface{}, 0, len(results))
	for _, bwt := range results {
		envelopes = append(envelopes, encodeBlockEnvelope(bwt))
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"blocks": envelopes}); err != nil {
		s.log.Error("encode blocks response: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
