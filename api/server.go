// Package api exposes the accumulators over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"
	"github.com/rs/zerolog"

	"github.com/SunsetLabs-Game/zylith-asp/merkle"
	"github.com/SunsetLabs-Game/zylith-asp/types"
)

// Server serves proofs from the deposit tree and accepts operator inserts
// into the associated set.
type Server struct {
	deposit    *merkle.Tree
	associated *merkle.Tree
	log        zerolog.Logger
}

// New creates a Server over the two trees.
func New(deposit, associated *merkle.Tree, log zerolog.Logger) *Server {
	return &Server{
		deposit:    deposit,
		associated: associated,
		log:        log.With().Str("component", "api").Logger(),
	}
}

// treeInfo is the /info response body.
type treeInfo struct {
	Root      string `json:"root"`
	LeafCount uint32 `json:"leaf_count"`
	Depth     int    `json:"depth"`
}

// insertRequest is the /associated/insert request body.
type insertRequest struct {
	Commitment string `json:"commitment"`
}

// insertResponse is the /associated/insert response body.
type insertResponse struct {
	LeafIndex uint32 `json:"leaf_index"`
	NewRoot   string `json:"new_root"`
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	router := routegroup.New(http.NewServeMux())
	router.Use(rest.RealIP, rest.Trace)

	deposit := router.Mount("/deposit")
	deposit.HandleFunc("GET /proof/{index}", s.handleProof(s.deposit))
	deposit.HandleFunc("GET /root", s.handleRoot(s.deposit))
	deposit.HandleFunc("GET /info", s.handleInfo(s.deposit))

	associated := router.Mount("/associated")
	associated.HandleFunc("GET /proof/{index}", s.handleProof(s.associated))
	associated.HandleFunc("GET /root", s.handleRoot(s.associated))
	associated.HandleFunc("GET /info", s.handleInfo(s.associated))
	associated.HandleFunc("POST /insert", s.handleInsert)

	// Legacy aliases kept for older clients.
	router.HandleFunc("GET /proof/{index}", s.handleProof(s.deposit))
	router.HandleFunc("GET /root", s.handleRoot(s.deposit))

	router.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		rest.RenderJSON(w, rest.JSON{"status": "ok"})
	})

	return router
}

func (s *Server) handleProof(t *merkle.Tree) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.ParseUint(r.PathValue("index"), 10, 32)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			rest.RenderJSON(w, rest.JSON{"error": "invalid leaf index"})
			return
		}

		proof, ok := t.Proof(uint32(index))
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			rest.RenderJSON(w, rest.JSON{"error": "leaf not found"})
			return
		}
		rest.RenderJSON(w, proof)
	}
}

func (s *Server) handleRoot(t *merkle.Tree) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		rest.RenderJSON(w, rest.JSON{"root": types.HexFelt(t.Root())})
	}
}

func (s *Server) handleInfo(t *merkle.Tree) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		rest.RenderJSON(w, treeInfo{
			Root:      types.HexFelt(t.Root()),
			LeafCount: t.LeafCount(),
			Depth:     t.Depth(),
		})
	}
}

// handleInsert appends a commitment to the associated set. Re-inserting a
// known commitment returns its existing slot.
func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": "invalid request body"})
		return
	}

	commitment, err := types.ParseFelt(req.Commitment)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		rest.RenderJSON(w, rest.JSON{"error": err.Error()})
		return
	}

	if index, ok := s.associated.FindIndex(commitment); ok {
		rest.RenderJSON(w, insertResponse{
			LeafIndex: index,
			NewRoot:   types.HexFelt(s.associated.Root()),
		})
		return
	}

	index, root, err := s.associated.Insert(commitment)
	if err != nil {
		var conflict *merkle.IndexConflictError
		if errors.As(err, &conflict) {
			w.WriteHeader(http.StatusConflict)
		} else {
			w.WriteHeader(http.StatusInternalServerError)
		}
		rest.RenderJSON(w, rest.JSON{"error": err.Error()})
		return
	}

	s.log.Info().
		Uint32("index", index).
		Str("commitment", types.HexFelt(commitment)).
		Msg("associated set insert")
	rest.RenderJSON(w, insertResponse{LeafIndex: index, NewRoot: types.HexFelt(root)})
}
