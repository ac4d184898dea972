package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"task-manager/internal/model"
	"task-manager/internal/service"
)

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input service.RegisterInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.Register(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.metrics.UserRegistered()
	writeJSON(w, r, http.StatusCreated, user)
}

// handleToken accepts OAuth2 password-style form fields or a JSON body.
func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if isForm(r) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			writeError(w, r, model.ErrValidation.WithDetails("invalid form body"))
			return
		}
		req.Username = r.PostFormValue("username")
		req.Password = r.PostFormValue("password")
	} else if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, model.ErrValidation.WithDetails("username and password are required"))
		return
	}

	token, expires, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, model.ErrInvalidCredentials) {
			h.metrics.LoginFailed()
			w.Header().Set("WWW-Authenticate", "Bearer")
		}
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", ExpiresAt: expires})
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token, expires, err := h.auth.Refresh(userFrom(r.Context()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer", ExpiresAt: expires})
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, r, http.StatusOK, users)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, userFrom(r.Context()))
}

func (h *Handler) handleDeleteMe(w http.ResponseWriter, r *http.Request) {
	if err := h.users.Delete(r.Context(), userFrom(r.Context()).ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.selfID(w, r)
	if !ok {
		return
	}
	var patch service.UserPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.users.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, user)
}

func (h *Handler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	id, ok := h.selfID(w, r)
	if !ok {
		return
	}
	categories, err := h.users.ListCategories(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, categories)
}

func (h *Handler) handleUpsertCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.selfID(w, r)
	if !ok {
		return
	}
	var category model.Category
	if err := decodeJSON(w, r, &category); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := h.users.UpsertCategory(r.Context(), id, category)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, saved)
}

func (h *Handler) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.selfID(w, r)
	if !ok {
		return
	}
	removed, err := h.users.DeleteCategory(r.Context(), id, r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, removed)
}

func (h *Handler) handleListTags(w http.ResponseWriter, r *http.Request) {
	id, ok := h.selfID(w, r)
	if !ok {
		return
	}
	tags, err := h.users.ListTags(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, tags)
}

func (h *Handler) handleUpsertTag(w http.ResponseWriter, r *http.Request) {
	id, ok := h.selfID(w, r)
	if !ok {
		return
	}
	var tag model.Tag
	if err := decodeJSON(w, r, &tag); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := h.users.UpsertTag(r.Context(), id, tag)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, saved)
}

func (h *Handler) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	id, ok := h.selfID(w, r)
	if !ok {
		return
	}
	removed, err := h.users.DeleteTag(r.Context(), id, r.PathValue("name"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, removed)
}

// selfID parses {user_id} and checks it is the caller. It writes the error response itself.
func (h *Handler) selfID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := pathID(r, "user_id")
	if err == nil {
		err = requireSelf(r, id)
	}
	if err != nil {
		writeError(w, r, err)
		return 0, false
	}
	return id, true
}
