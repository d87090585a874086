package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/airlockhq/identity/internal/identity/service"
	"github.com/airlockhq/identity/internal/identity/store"
	"github.com/airlockhq/identity/pkg/httpx"
	"github.com/airlockhq/identity/pkg/slogx"
)

// APIKeyAdminHandler serves the admin CRUD surface under /v1/apikeys. Every
// route is gated on the admin role by the router.
type APIKeyAdminHandler struct {
	APIKeyService *service.APIKeyService
}

type createAPIKeyRequest struct {
	Scopes        []string `json:"scopes"`
	Permissions   []string `json:"permissions"`
	ExpiresInDays int      `json:"expires_in_days"`
}

func (h *APIKeyAdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createAPIKeyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.ExpiresInDays < 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "expires_in_days must not be negative")
		return
	}

	key, plaintext, err := h.APIKeyService.Create(ctx, actorSubject(r), service.CreateParams{
		Scopes:        req.Scopes,
		Permissions:   req.Permissions,
		ExpiresInDays: req.ExpiresInDays,
	})
	if err != nil {
		slogx.FromContext(ctx).Error("api key creation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusCreated, CreatedAPIKeyResponse{
		APIKeyResponse: newAPIKeyResponse(key),
		APIKey:         plaintext,
	})
}

func (h *APIKeyAdminHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	keys, total, err := h.APIKeyService.List(ctx, offset, limit)
	if err != nil {
		slogx.FromContext(ctx).Error("api key listing failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	resp := APIKeyListResponse{
		Keys:   make([]APIKeyResponse, 0, len(keys)),
		Total:  total,
		Offset: offset,
		Limit:  limit,
	}
	for _, key := range keys {
		resp.Keys = append(resp.Keys, newAPIKeyResponse(key))
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

func (h *APIKeyAdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	key, err := h.APIKeyService.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "no such API key")
			return
		}
		slogx.FromContext(ctx).Error("api key lookup failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, newAPIKeyResponse(key))
}

func (h *APIKeyAdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.APIKeyService.Revoke(ctx, actorSubject(r), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "no such API key")
			return
		}
		slogx.FromContext(ctx).Error("api key revocation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type rotateAPIKeyRequest struct {
	Scopes        []string `json:"scopes"`
	Permissions   []string `json:"permissions"`
	ExpiresInDays int      `json:"expires_in_days"`
}

func (h *APIKeyAdminHandler) Rotate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req rotateAPIKeyRequest
	var override *service.CreateParams
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err == nil {
		override = &service.CreateParams{
			Scopes:        req.Scopes,
			Permissions:   req.Permissions,
			ExpiresInDays: req.ExpiresInDays,
		}
	} else if !errors.Is(err, io.EOF) {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	key, plaintext, err := h.APIKeyService.Rotate(ctx, actorSubject(r), id, override)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "no such API key")
			return
		}
		slogx.FromContext(ctx).Error("api key rotation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "")
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, CreatedAPIKeyResponse{
		APIKeyResponse: newAPIKeyResponse(key),
		APIKey:         plaintext,
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func actorSubject(r *http.Request) string {
	if p, ok := httpx.PrincipalFromContext(r.Context()); ok {
		return p.Subject
	}
	return "unknown"
}
