package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/liblearn/internal/deck"
	"github.com/starford/liblearn/internal/deckservice"
)

const cycleSuffix = "/cycle"

// Handler holds API route handlers.
type Handler struct {
	svc      *deckservice.Service
	defaults deck.Options
}

// NewHandler creates a new Handler. defaults apply to every query parameter
// a request leaves out.
func NewHandler(svc *deckservice.Service, defaults deck.Options) *Handler {
	return &Handler{svc: svc, defaults: defaults}
}

// wildcardPath extracts the target from the URL wildcard.
// Supports encoded slashes from OpenAPI clients (e.g. net%2Fhttp.Client).
func wildcardPath(r *http.Request) string {
	return unescapePath(rawWildcard(r))
}

func rawWildcard(r *http.Request) string {
	return strings.TrimPrefix(chi.URLParam(r, "*"), "/")
}

func unescapePath(raw string) string {
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func boolQuery(q url.Values, name string, def bool) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("query parameter %q must be a boolean", name)
	}
	return b, nil
}

// options overlays the deck query parameters on the defaults.
func (h *Handler) options(q url.Values) (deck.Options, error) {
	opts := h.defaults
	full, err := boolQuery(q, "full", !opts.Short)
	if err != nil {
		return opts, err
	}
	opts.Short = !full
	if opts.Shuffle, err = boolQuery(q, "shuffle", opts.Shuffle); err != nil {
		return opts, err
	}
	if opts.AllowPrivate, err = boolQuery(q, "private", opts.AllowPrivate); err != nil {
		return opts, err
	}
	if opts.AllowSpecial, err = boolQuery(q, "special", opts.AllowSpecial); err != nil {
		return opts, err
	}
	if v := q.Get("unresolved"); v != "" {
		policy, err := deck.ParseUnresolved(v)
		if err != nil {
			return opts, err
		}
		opts.Unresolved = policy
	}
	return opts, nil
}

// GetDeck handles GET /api/decks/*. A trailing /cycle segment is served by
// Cycle.
//
//	@Summary		Build the flash-card deck of a class or module
//	@Tags			decks
//	@Produce		json
//	@Param			path		path		string	true	"Dotted target path"
//	@Param			full		query		bool	false	"Keep the full documentation"
//	@Param			shuffle		query		bool	false	"Shuffle the cards"
//	@Param			private		query		bool	false	"Include private routines"
//	@Param			special		query		bool	false	"Include special routines"
//	@Param			unresolved	query		string	false	"Unresolved signature policy"	Enums(drop, placeholder)
//	@Param			If-None-Match	header	string	false	"Deck fingerprint from a previous response"
//	@Success		200			{object}	DeckDetail
//	@Success		304			"Deck unchanged"
//	@Failure		400			{object}	errResponse
//	@Failure		404			{object}	errResponse
//	@Failure		422			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{path} [get]
func (h *Handler) GetDeck(w http.ResponseWriter, r *http.Request) {
	// The suffix is matched before unescaping so that %2Fcycle stays part
	// of the target.
	raw := rawWildcard(r)
	if target, ok := strings.CutSuffix(raw, cycleSuffix); ok {
		h.cycle(w, r, unescapePath(target))
		return
	}
	path := unescapePath(raw)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	opts, err := h.options(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	d, err := h.svc.GetDeck(r.Context(), path, opts)
	if err != nil {
		writeServiceError(w, "get deck", err)
		return
	}

	etag := `"` + d.Fingerprint + `"`
	w.Header().Set("ETag", etag)
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Trim(match, `"`) == d.Fingerprint {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// cycle handles GET /api/decks/{path}/cycle.
//
//	@Summary		Draw prompts from a cycling presentation of a deck
//	@Tags			decks
//	@Produce		json
//	@Param			path	path		string	true	"Dotted target path"
//	@Param			n		query		int		false	"Number of prompts (default one pass)"
//	@Param			shuffle	query		bool	false	"Shuffle initially and between passes"
//	@Success		200		{object}	CycleResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/decks/{path}/cycle [get]
func (h *Handler) cycle(w http.ResponseWriter, r *http.Request, path string) {
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	q := r.URL.Query()
	opts, err := h.options(q)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	n := 0
	if v := q.Get("n"); v != "" {
		if n, err = strconv.Atoi(v); err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'n' must be a non-negative integer"))
			return
		}
	}

	prompts, err := h.svc.Draw(r.Context(), path, opts, n, opts.Shuffle)
	if err != nil {
		writeServiceError(w, "cycle deck", err)
		return
	}
	writeJSON(w, http.StatusOK, CycleResponse{Path: path, Prompts: prompts})
}

// Batch handles POST /api/batch.
//
//	@Summary		Score deck quality over many targets
//	@Tags			batch
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BatchRequest	true	"Targets and options"
//	@Success		200		{object}	RunResponse
//	@Failure		400		{object}	errResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/batch [post]
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if len(req.Paths) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("paths are required"))
		return
	}

	opts := h.defaults
	opts.Shuffle = false
	if req.Full != nil {
		opts.Short = !*req.Full
	}
	if req.Private != nil {
		opts.AllowPrivate = *req.Private
	}
	if req.Special != nil {
		opts.AllowSpecial = *req.Special
	}

	run, err := h.svc.RunBatch(r.Context(), req.Paths, opts, req.Ascending, req.Record)
	if err != nil {
		writeServiceError(w, "batch", err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse(*run))
}

// ListRuns handles GET /api/runs.
//
//	@Summary		List recorded batch runs
//	@Tags			batch
//	@Produce		json
//	@Param			limit	query		int	false	"Max runs"
//	@Success		200		{object}	RunListResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs [get]
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.svc.Runs(r.Context(), limit)
	if err != nil {
		writeServiceError(w, "list runs", err)
		return
	}
	out := RunListResponse{Runs: make([]RunResponse, 0, len(runs))}
	for _, run := range runs {
		out.Runs = append(out.Runs, runResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetRun handles GET /api/runs/{id}.
//
//	@Summary		Get one recorded batch run
//	@Tags			batch
//	@Produce		json
//	@Param			id	path		int	true	"Run ID"
//	@Success		200	{object}	RunResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/runs/{id} [get]
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid run id"))
		return
	}
	run, err := h.svc.Run(r.Context(), id)
	if err != nil {
		writeServiceError(w, "get run", err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse(*run))
}

// History handles GET /api/history/*.
//
//	@Summary		Recorded quality of one target across runs
//	@Tags			batch
//	@Produce		json
//	@Param			path	path		string	true	"Dotted target path"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	HistoryResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history/{path} [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.svc.History(r.Context(), path, limit)
	if err != nil {
		writeServiceError(w, "history", err)
		return
	}
	out := HistoryResponse{Path: path, Results: make([]HistoryItem, 0, len(rows))}
	for _, row := range rows {
		out.Results = append(out.Results, HistoryItem{
			RunID:      row.RunID,
			StartedAt:  row.StartedAt,
			ResultItem: resultItem(row.Result),
		})
	}
	writeJSON(w, http.StatusOK, out)
}
