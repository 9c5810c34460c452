package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/playground-ai/chat-playground/internal/llm"
	"github.com/playground-ai/chat-playground/internal/middleware"
	"github.com/playground-ai/chat-playground/internal/model"
	"github.com/playground-ai/chat-playground/internal/store"
	"github.com/playground-ai/chat-playground/internal/upload"
	"github.com/playground-ai/chat-playground/pkg/logger"
	"github.com/playground-ai/chat-playground/pkg/metrics"
)

// MessageHandler handles message endpoints, driving the store/dispatcher
// exchange for each send.
type MessageHandler struct {
	store      *store.Store
	dispatcher *llm.Dispatcher
	uploads    *upload.Registry
	logger     *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(st *store.Store, d *llm.Dispatcher, uploads *upload.Registry, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		store:      st,
		dispatcher: d,
		uploads:    uploads,
		logger:     log,
	}
}

// List handles GET /api/v1/chats/:id/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages": chat.Messages,
	})
}

// Send handles POST /api/v1/chats/:id/messages
// Appends the user message, dispatches a completion built from store state,
// and appends the assistant reply (or its in-band error text) as a new
// message. With ?stream=true tokens are delivered over SSE as they arrive.
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")
	if err := middleware.ValidateChatID(chatID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, ok := h.store.Chat(chatID); !ok {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}

	var req model.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content, len(req.AttachmentIDs) > 0); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Sends are always user turns; assistant messages only come from the
	// dispatcher path below.
	req.Role = model.RoleUser

	files := h.uploads.Claim(req.AttachmentIDs)
	attachments := make([]model.Attachment, 0, len(files))
	refs := make([]llm.AttachmentRef, 0, len(files))
	for _, f := range files {
		attachments = append(attachments, model.Attachment{
			Name:    f.Name,
			Type:    f.Type,
			Size:    f.Size,
			URL:     "/api/v1/files/" + f.ID,
			Preview: f.Preview,
			Content: f.Content,
		})
		refs = append(refs, llm.AttachmentRef{Name: f.Name, Type: f.Type, Content: f.Content})
	}

	userMsg := h.store.AddMessageWithAttachments(chatID, req, attachments)
	if userMsg == nil {
		writeError(w, http.StatusNotFound, "chat not found")
		return
	}
	metrics.MessagesTotal.WithLabelValues(string(model.RoleUser)).Inc()

	completionReq := h.buildCompletionRequest(chatID, refs)

	h.store.SetLoading(true)
	h.store.SetError("")
	defer h.store.SetLoading(false)

	if r.URL.Query().Get("stream") == "true" {
		h.streamCompletion(w, r, chatID, userMsg, completionReq)
		return
	}

	resp, err := h.dispatcher.Dispatch(r.Context(), completionReq)
	if err != nil {
		// Routing failures surface as an error state, not a message bubble.
		h.store.SetError(err.Error())
		if errors.Is(err, llm.ErrUnsupportedModel) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("completion dispatch failed", zap.Error(err), zap.String("chat_id", chatID))
		writeError(w, http.StatusInternalServerError, "failed to get a response from the AI model")
		return
	}

	assistantMsg := h.store.AddMessage(chatID, model.CreateMessageRequest{
		Role:    model.RoleAssistant,
		Content: resp.Content,
	})
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()

	writeJSON(w, http.StatusCreated, model.SendMessageResponse{
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	})
}

// buildCompletionRequest assembles the provider-neutral request from current
// store state: full chat history, selected model and tuning parameters.
func (h *MessageHandler) buildCompletionRequest(chatID string, refs []llm.AttachmentRef) *llm.CompletionRequest {
	chat, _ := h.store.Chat(chatID)
	params := h.store.Parameters()

	history := make([]llm.ChatMessage, len(chat.Messages))
	for i, msg := range chat.Messages {
		history[i] = llm.ChatMessage{Role: msg.Role, Content: msg.Content}
	}

	return &llm.CompletionRequest{
		Model:            h.store.SelectedModelID(),
		Messages:         history,
		Attachments:      refs,
		MaxTokens:        params.MaxTokens,
		Temperature:      params.Temperature,
		TopP:             params.TopP,
		FrequencyPenalty: params.FrequencyPenalty,
		PresencePenalty:  params.PresencePenalty,
	}
}

// streamCompletion delivers the exchange over SSE: the stored user message,
// then one event per token, then the stored assistant message.
func (h *MessageHandler) streamCompletion(w http.ResponseWriter, r *http.Request, chatID string, userMsg *model.Message, req *llm.CompletionRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sendSSEEvent(w, flusher, "message", userMsg)

	resp, err := h.dispatcher.DispatchStream(r.Context(), req, func(token string, index int) error {
		if ctxErr := r.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		sendSSEEvent(w, flusher, "token", map[string]interface{}{
			"token": token,
			"index": index,
		})
		return nil
	})
	if err != nil {
		h.store.SetError(err.Error())
		sendSSEEvent(w, flusher, "error", map[string]string{"error": err.Error()})
		return
	}

	assistantMsg := h.store.AddMessage(chatID, model.CreateMessageRequest{
		Role:    model.RoleAssistant,
		Content: resp.Content,
	})
	metrics.MessagesTotal.WithLabelValues(string(model.RoleAssistant)).Inc()

	sendSSEEvent(w, flusher, "done", assistantMsg)
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	flusher.Flush()
}
