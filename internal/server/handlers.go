package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Mohsinsiddi/tsender/internal/airdrop"
	"github.com/Mohsinsiddi/tsender/internal/chain"
)

const maxRequestBodySize = 1 << 20 // 1MB, a few thousand recipients

type chainView struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	ChainID     int64  `json:"chain_id"`
	TSender     string `json:"tsender,omitempty"`
	Explorer    string `json:"explorer,omitempty"`
	Supported   bool   `json:"supported"`
	Active      bool   `json:"active"`
}

type airdropResponse struct {
	Record *airdrop.Record `json:"record,omitempty"`
	Error  string          `json:"error,omitempty"`
	Kind   string          `json:"kind,omitempty"`
}

// handleHealth returns a handler for liveness checks.
// GET /healthz
func handleHealth() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	})
}

// handleListChains lists every known network and its TSender deployment.
// GET /api/chains
func handleListChains(reg *chain.Registry, env airdrop.Env, active *chain.Chain) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chains := reg.All()
		out := make([]chainView, 0, len(chains))
		for _, c := range chains {
			tsender, ok := env.Contracts.Lookup(c.ChainID)
			out = append(out, chainView{
				Name:        c.Name,
				DisplayName: c.DisplayName,
				ChainID:     c.ChainID,
				TSender:     tsender,
				Explorer:    c.Explorer,
				Supported:   ok,
				Active:      active != nil && c.ChainID == active.ChainID,
			})
		}
		writeJSON(w, out, http.StatusOK)
	})
}

// handlePreview validates a request and reports what it would send.
// POST /api/preview
func handlePreview(wf *airdrop.Workflow, env airdrop.Env, expand RecipientExpander, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRequest(w, r, env, expand, logger)
		if !ok {
			return
		}
		p, err := wf.Preview(r.Context(), env, req)
		if err != nil {
			logger.Debug("preview failed", "token", req.Token, "error", err)
			writeError(w, err.Error(), statusFor(err))
			return
		}
		writeJSON(w, p, http.StatusOK)
	})
}

// handleAirdrop runs a submission to completion and returns its record.
// Submissions keep running if the client goes away.
// POST /api/airdrop
func handleAirdrop(wf *airdrop.Workflow, env airdrop.Env, expand RecipientExpander, records *recordStore, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeRequest(w, r, env, expand, logger)
		if !ok {
			return
		}

		rec, err := wf.Submit(context.WithoutCancel(r.Context()), env, req)
		if rec != nil {
			records.put(rec)
		}
		if err != nil {
			kind := airdrop.Kind(err)
			logger.Info("airdrop failed", "token", req.Token, "kind", kind, "error", err)
			writeJSON(w, airdropResponse{Record: rec, Error: err.Error(), Kind: string(kind)}, statusFor(err))
			return
		}

		logger.Info("airdrop confirmed", "id", rec.ID, "hash", rec.Hash, "recipients", rec.RecipientCount)
		writeJSON(w, airdropResponse{Record: rec}, http.StatusOK)
	})
}

// handleGetRecord returns a record from this server session.
// GET /api/airdrop/{id}
func handleGetRecord(records *recordStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		rec, ok := records.get(id)
		if !ok {
			writeError(w, "record not found", http.StatusNotFound)
			return
		}
		writeJSON(w, rec, http.StatusOK)
	})
}

func decodeRequest(w http.ResponseWriter, r *http.Request, env airdrop.Env, expand RecipientExpander, logger *slog.Logger) (airdrop.Request, bool) {
	var req airdrop.Request
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, "request body too large", http.StatusRequestEntityTooLarge)
		case errors.Is(err, io.EOF):
			writeError(w, "request body is empty", http.StatusBadRequest)
		default:
			writeError(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
		}
		return req, false
	}

	// Expansion reads the chain, so an unusable network fails first.
	if _, err := airdrop.ResolveTSender(env); err != nil {
		writeJSON(w, airdropResponse{Error: err.Error(), Kind: string(airdrop.Kind(err))}, statusFor(err))
		return req, false
	}

	if expand != nil {
		expanded, err := expand(r.Context(), req.Recipients)
		if err != nil {
			logger.Debug("recipient expansion failed", "error", err)
			status := http.StatusBadRequest
			if airdrop.Kind(err) == airdrop.KindConfig {
				status = http.StatusUnprocessableEntity
			}
			writeError(w, err.Error(), status)
			return req, false
		}
		req.Recipients = expanded
	}
	return req, true
}

// statusFor maps a workflow error to an HTTP status.
func statusFor(err error) int {
	switch airdrop.Kind(err) {
	case airdrop.KindValidation:
		return http.StatusBadRequest
	case airdrop.KindConfig:
		return http.StatusUnprocessableEntity
	case airdrop.KindBusy:
		return http.StatusConflict
	case airdrop.KindRemote:
		return http.StatusBadGateway
	}
	return http.StatusOK
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}
