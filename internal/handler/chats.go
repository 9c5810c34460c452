// Package handler provides HTTP handlers for the API. Handlers play the
// view-layer role: they mediate between the store and the dispatcher, which
// never call each other.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/playground-ai/chat-playground/internal/middleware"
	"github.com/playground-ai/chat-playground/internal/model"
	"github.com/playground-ai/chat-playground/internal/store"
	"github.com/playground-ai/chat-playground/pkg/logger"
	"github.com/playground-ai/chat-playground/pkg/metrics"
)

// ChatHandler handles chat thread endpoints.
type ChatHandler struct {
	store  *store.Store
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(st *store.Store, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		store:  st,
		logger: log,
	}
}

// Create handles POST /api/v1/chats
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	id := h.store.CreateChat()
	chat, _ := h.store.Chat(id)

	metrics.ChatsTotal.Inc()
	writeJSON(w, http.StatusCreated, chat)
}

// List handles GET /api/v1/chats
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chats":         h.store.Chats(),
		"currentChatId": h.store.CurrentChatID(),
	})
}

// Get handles GET /api/v1/chats/:id
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	chat, ok := h.store.Chat(chatID)
	if !ok {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	writeJSON(w, http.StatusOK, chat)
}

// Update handles PUT /api/v1/chats/:id
func (h *ChatHandler) Update(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req model.UpdateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, ok := h.store.Chat(chatID); !ok {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	h.store.UpdateChatTitle(chatID, req.Title)

	chat, _ := h.store.Chat(chatID)
	writeJSON(w, http.StatusOK, chat)
}

// Delete handles DELETE /api/v1/chats/:id
// Deleting the active chat promotes another chat, or clears the pointer.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.store.DeleteChat(chatID)
	w.WriteHeader(http.StatusNoContent)
}

// Select handles PUT /api/v1/chats/current
// The pointer is not validated; readers tolerate a dangling id.
func (h *ChatHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req model.SelectChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.store.SetCurrentChat(req.ChatID)
	writeJSON(w, http.StatusOK, map[string]string{
		"currentChatId": h.store.CurrentChatID(),
	})
}
