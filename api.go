/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"

	"github.com/Seednode/nameher/names"
	"github.com/Seednode/nameher/scores"
)

const (
	defaultListLimit = 25
	maxListLimit     = 100
	maxBodyBytes     = 64 << 10
)

type errorResponse struct {
	Error string `json:"error"`
}

type validateRequest struct {
	Name     string   `json:"name"`
	Accepted []string `json:"accepted,omitempty"`
}

type validateResponse struct {
	Name   string `json:"name"`
	Valid  bool   `json:"valid"`
	Match  string `json:"match,omitempty"`
	Stage  string `json:"stage"`
	Reason string `json:"reason,omitempty"`
}

type submitResponse struct {
	ID     string `json:"id"`
	Colour string `json:"colour"`
}

type api struct {
	cfg     *Config
	lookups *lookups
	store   *scores.Store
}

func (a *api) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	startTime := time.Now()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	securityHeaders(a.cfg, w)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.cfg.log().Warn("writing response", zap.String("path", r.URL.Path), zap.Error(err))
		return
	}

	logf(a.cfg, "API: %s %s (%d) to %s in %s",
		r.Method,
		r.URL.Path,
		status,
		realIP(r),
		time.Since(startTime).Round(time.Microsecond),
	)
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		a.cfg.log().Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}

	a.writeJSON(w, r, status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, scores.ErrNotFound), errors.Is(err, names.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, scores.ErrDuplicateSubmission):
		return http.StatusConflict
	case errors.Is(err, scores.ErrInvalidUsername),
		errors.Is(err, scores.ErrInvalidMode),
		errors.Is(err, scores.ErrInvalidTime),
		errors.Is(err, scores.ErrNameCount),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, names.ErrNetwork), errors.Is(err, names.ErrUpstreamFormat):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errors.Join(errBadRequest, err)
	}

	return nil
}

func listLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		return defaultListLimit
	}

	return min(n, maxListLimit)
}

func (a *api) validate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req validateRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}

	resp := validateResponse{Name: req.Name}

	accepted := names.NewAcceptedSet()
	for _, n := range req.Accepted {
		accepted.Add(names.Normalize(n))
	}

	if names.IsDuplicate(req.Name, accepted) {
		resp.Stage = "dedup"
		resp.Reason = "duplicate"
		a.writeJSON(w, r, http.StatusOK, resp)
		return
	}

	res := a.lookups.pipeline.Classify(r.Context(), req.Name)

	resp.Valid = res.Outcome == names.Accepted
	resp.Match = res.Match
	resp.Stage = res.Stage
	if res.Reason != nil {
		resp.Reason = res.Reason.Error()
	}

	a.writeJSON(w, r, http.StatusOK, resp)
}

func (a *api) card(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	card, err := a.lookups.cards.Lookup(r.Context(), r.URL.Query().Get("name"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, r, http.StatusOK, card)
}

func (a *api) submitScore(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var sub scores.Submission
	if err := decodeBody(w, r, &sub); err != nil {
		a.writeError(w, r, err)
		return
	}

	sub.Fingerprint = getOrSetPlayerID(a.cfg, w, r)

	id, err := a.store.Submit(r.Context(), sub)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	logf(a.cfg, "SCORES: %s finished %d names in %.1fs", sub.Username, sub.Mode, sub.CompletionSeconds)

	a.writeJSON(w, r, http.StatusCreated, submitResponse{ID: id, Colour: scores.Colour(sub.Fingerprint)})
}

func (a *api) getScore(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	e, err := a.store.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, r, http.StatusOK, e)
}

func (a *api) leaderboard(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	mode, err := strconv.Atoi(ps.ByName("mode"))
	if err != nil {
		a.writeError(w, r, errors.Join(scores.ErrInvalidMode, err))
		return
	}

	entries, err := a.store.Leaderboard(r.Context(), mode, listLimit(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, r, http.StatusOK, entries)
}

func (a *api) recent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	entries, err := a.store.Recent(r.Context(), listLimit(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, r, http.StatusOK, entries)
}

func (a *api) byUser(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	entries, err := a.store.ByUser(r.Context(), ps.ByName("username"), listLimit(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, r, http.StatusOK, entries)
}

func (a *api) stats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := a.store.NameStats(r.Context(), listLimit(r))
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	a.writeJSON(w, r, http.StatusOK, stats)
}

func registerAPI(cfg *Config, mux *httprouter.Router, l *lookups, store *scores.Store) {
	a := &api{cfg: cfg, lookups: l, store: store}

	mux.POST(cfg.prefix+"/api/validate", a.validate)
	mux.GET(cfg.prefix+"/api/card", a.card)
	mux.POST(cfg.prefix+"/api/scores", a.submitScore)
	mux.GET(cfg.prefix+"/api/scores/:id", a.getScore)
	mux.GET(cfg.prefix+"/api/leaderboard/:mode", a.leaderboard)
	mux.GET(cfg.prefix+"/api/recent", a.recent)
	mux.GET(cfg.prefix+"/api/users/:username", a.byUser)
	mux.GET(cfg.prefix+"/api/stats", a.stats)
}
