package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"day.glimpse/internal/models"
)

// CallerHeader carries the authenticated profile identity, set by the wallet
// layer in front of this service.
const CallerHeader = "X-Profile"

type Engine interface {
	SetGlimpse(ctx context.Context, caller string, storageHash []byte, isPrivate bool) (*models.Glimpse, error)
	GetGlimpse(ctx context.Context, viewer, profile string) (*models.View, error)
	DeleteGlimpse(ctx context.Context, caller string) error
	MarkExpired(ctx context.Context, caller, profile string) error
	IsExpired(ctx context.Context, profile string) (bool, error)
	Mint(ctx context.Context, minter, profile string, force bool, data []byte) (models.TokenID, error)
	IsCloseFriend(ctx context.Context, viewer, profile string) (bool, error)
	CloseFriendsOf(ctx context.Context, viewer string) ([]models.Identity, error)
	AreMutualFollowers(ctx context.Context, a, b string) (bool, error)
	TokensHeldBy(ctx context.Context, holder string) (iter.Seq2[models.TokenRef, error], error)
	DataOf(ctx context.Context, id models.TokenID) (*models.TokenData, error)
	OwnerOf(ctx context.Context, id models.TokenID) (models.Identity, error)
	TokenIDFor(issuer, profile string, ts uint64) (models.TokenID, error)
}

type Handler struct {
	engine Engine
	logger *slog.Logger
}

func NewHandler(e Engine, logger *slog.Logger) *Handler {
	return &Handler{
		engine: e,
		logger: logger,
	}
}

type SetGlimpseRequest struct {
	StorageHash []byte `json:"storage_hash"`
	IsPrivate   bool   `json:"is_private"`
}

type GlimpseResponse struct {
	Profile     models.Identity `json:"profile"`
	StorageHash []byte          `json:"storage_hash"`
	IsPrivate   bool            `json:"is_private"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at,omitzero"`
	Fresh       *bool           `json:"fresh,omitempty"`
}

type MintRequest struct {
	Force bool   `json:"force"`
	Data  []byte `json:"data,omitempty"`
}

type MintResponse struct {
	TokenID models.TokenID  `json:"token_id"`
	Minter  models.Identity `json:"minter"`
	Profile models.Identity `json:"profile"`
}

type TokenResponse struct {
	TokenID     models.TokenID  `json:"token_id"`
	Owner       models.Identity `json:"owner"`
	Profile     models.Identity `json:"profile"`
	StorageHash []byte          `json:"storage_hash"`
	MintedAt    time.Time       `json:"minted_at"`
}

type HoldingsResponse struct {
	Holder models.Identity   `json:"holder"`
	Tokens []models.TokenRef `json:"tokens"`
}

type CloseFriendsResponse struct {
	Viewer   models.Identity   `json:"viewer"`
	Profiles []models.Identity `json:"profiles"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) SetGlimpse(w http.ResponseWriter, r *http.Request) {
	var req SetGlimpseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	g, err := h.engine.SetGlimpse(r.Context(), caller(r), req.StorageHash, req.IsPrivate)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}

	h.json(w, http.StatusCreated, glimpseResponse(g, nil))
}

func (h *Handler) DeleteGlimpse(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.DeleteGlimpse(r.Context(), caller(r)); err != nil {
		h.handleEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetGlimpse(w http.ResponseWriter, r *http.Request) {
	v, err := h.engine.GetGlimpse(r.Context(), caller(r), chi.URLParam(r, "profile"))
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}
	h.json(w, http.StatusOK, glimpseResponse(v.Glimpse, v))
}

func (h *Handler) IsExpired(w http.ResponseWriter, r *http.Request) {
	profile := chi.URLParam(r, "profile")
	expired, err := h.engine.IsExpired(r.Context(), profile)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}
	h.json(w, http.StatusOK, map[string]any{"profile": profile, "expired": expired})
}

func (h *Handler) MarkExpired(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.MarkExpired(r.Context(), caller(r), chi.URLParam(r, "profile")); err != nil {
		h.handleEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Mint(w http.ResponseWriter, r *http.Request) {
	var req MintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	minter := caller(r)
	profile := chi.URLParam(r, "profile")
	id, err := h.engine.Mint(r.Context(), minter, profile, req.Force, req.Data)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}

	owner, err := h.engine.OwnerOf(r.Context(), id)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}
	data, err := h.engine.DataOf(r.Context(), id)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}

	h.json(w, http.StatusCreated, MintResponse{TokenID: id, Minter: owner, Profile: data.Profile})
}

func (h *Handler) GetToken(w http.ResponseWriter, r *http.Request) {
	id, err := models.ParseTokenID(chi.URLParam(r, "id"))
	if err != nil {
		h.error(w, http.StatusBadRequest, "invalid token id")
		return
	}

	data, err := h.engine.DataOf(r.Context(), id)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}
	owner, err := h.engine.OwnerOf(r.Context(), id)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}

	h.json(w, http.StatusOK, TokenResponse{
		TokenID:     id,
		Owner:       owner,
		Profile:     data.Profile,
		StorageHash: data.StorageHash,
		MintedAt:    data.MintedAt,
	})
}

func (h *Handler) TokenIDFor(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ts, err := strconv.ParseUint(q.Get("timestamp"), 10, 64)
	if err != nil {
		h.error(w, http.StatusBadRequest, "timestamp must be unix seconds")
		return
	}

	id, err := h.engine.TokenIDFor(q.Get("issuer"), q.Get("profile"), ts)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}
	h.json(w, http.StatusOK, map[string]models.TokenID{"token_id": id})
}

func (h *Handler) HolderTokens(w http.ResponseWriter, r *http.Request) {
	holder := chi.URLParam(r, "identity")
	seq, err := h.engine.TokensHeldBy(r.Context(), holder)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}

	resp := HoldingsResponse{Holder: models.Identity(holder), Tokens: []models.TokenRef{}}
	for ref, err := range seq {
		if err != nil {
			h.handleEngineError(w, r, err)
			return
		}
		resp.Tokens = append(resp.Tokens, ref)
	}
	h.json(w, http.StatusOK, resp)
}

func (h *Handler) CloseFriendsOf(w http.ResponseWriter, r *http.Request) {
	viewer := chi.URLParam(r, "identity")
	profiles, err := h.engine.CloseFriendsOf(r.Context(), viewer)
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}
	if profiles == nil {
		profiles = []models.Identity{}
	}
	h.json(w, http.StatusOK, CloseFriendsResponse{Viewer: models.Identity(viewer), Profiles: profiles})
}

func (h *Handler) IsCloseFriend(w http.ResponseWriter, r *http.Request) {
	ok, err := h.engine.IsCloseFriend(r.Context(), chi.URLParam(r, "viewer"), chi.URLParam(r, "profile"))
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}
	h.json(w, http.StatusOK, map[string]bool{"close_friend": ok})
}

func (h *Handler) AreMutualFollowers(w http.ResponseWriter, r *http.Request) {
	ok, err := h.engine.AreMutualFollowers(r.Context(), chi.URLParam(r, "a"), chi.URLParam(r, "b"))
	if err != nil {
		h.handleEngineError(w, r, err)
		return
	}
	h.json(w, http.StatusOK, map[string]bool{"mutual": ok})
}

func (h *Handler) json(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) error(w http.ResponseWriter, status int, message string) {
	h.json(w, status, ErrorResponse{Error: message})
}

func (h *Handler) handleEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		h.error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrNotFound):
		h.error(w, http.StatusNotFound, "no active data for this profile")
	case errors.Is(err, models.ErrExpired):
		h.error(w, http.StatusGone, "content has expired")
	case errors.Is(err, models.ErrNotExpiredYet):
		h.error(w, http.StatusConflict, "content is not expired yet")
	case errors.Is(err, models.ErrDuplicateToken):
		h.error(w, http.StatusConflict, "token already minted")
	case errors.Is(err, models.ErrUnauthorized):
		h.error(w, http.StatusForbidden, "unauthorized")
	case errors.Is(err, models.ErrRestrictedToCloseFriends):
		h.error(w, http.StatusForbidden, "content is restricted to close friends")
	case errors.Is(err, models.ErrMustBeMutualFollowers):
		h.error(w, http.StatusForbidden, "must be mutual followers to mint")
	case errors.Is(err, models.ErrPrivateContent):
		h.error(w, http.StatusUnprocessableEntity, "cannot mint from private glimpse")
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		h.error(w, http.StatusInternalServerError, "internal error")
	}
}

func caller(r *http.Request) string {
	return r.Header.Get(CallerHeader)
}

func glimpseResponse(g *models.Glimpse, v *models.View) GlimpseResponse {
	resp := GlimpseResponse{
		Profile:     g.Profile,
		StorageHash: g.StorageHash,
		IsPrivate:   g.IsPrivate,
		IsActive:    g.IsActive,
		CreatedAt:   g.CreatedAt,
	}
	if v != nil {
		resp.ExpiresAt = v.ExpiresAt
		fresh := v.Fresh
		resp.Fresh = &fresh
	}
	return resp
}
