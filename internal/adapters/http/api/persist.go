package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	repository "github.com/okian/pagekit/internal/adapters/repository"
	"github.com/okian/pagekit/internal/domain/types"
	"github.com/okian/pagekit/pkg/logger"
)

// dataParam carries the JSON payload of a persistence call.
const dataParam = "data"

// PersistHandler answers the GET /{method}?data=<json> calls made by the
// persistence client.
type PersistHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewPersistHandler creates a new persistence handler.
func NewPersistHandler(deps Dependencies, log logger.Logger) *PersistHandler {
	return &PersistHandler{deps: deps, logger: log}
}

// HandleGet handles GET /get requests.
func (h *PersistHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "api.get", h.deps.Get)
}

// HandleSet handles GET /set requests.
func (h *PersistHandler) HandleSet(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "api.set", h.deps.Set)
}

type persistFunc func(ctx context.Context, payload types.Payload) (types.Payload, error)

func (h *PersistHandler) serve(w http.ResponseWriter, r *http.Request, op string, fn persistFunc) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	payload, err := decodePayload(r.URL.Query().Get(dataParam))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	out, err := fn(ctx, payload)
	switch {
	case errors.Is(err, repository.ErrEmptyKey):
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	case err != nil:
		h.logger.Error(ctx, "persistence call failed",
			logger.String("op", op),
			logger.String("request_id", RequestIDFrom(ctx)),
			logger.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal_error", WrapKind(op, ErrStore, err))
		return
	}
	writeJSON(w, http.StatusOK, types.Envelope{Data: out})
}

// decodePayload parses the data parameter. A missing parameter or JSON
// null means an empty mapping; anything other than one JSON object is
// rejected.
func decodePayload(raw string) (types.Payload, error) {
	if strings.TrimSpace(raw) == "" {
		return types.Payload{}, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var payload types.Payload
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("invalid %s parameter: %w", dataParam, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("invalid %s parameter: trailing data", dataParam)
	}
	if payload == nil {
		payload = types.Payload{}
	}
	return payload, nil
}
