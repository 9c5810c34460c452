package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playground-ai/chat-playground/internal/llm"
	"github.com/playground-ai/chat-playground/internal/model"
	"github.com/playground-ai/chat-playground/internal/store"
	"github.com/playground-ai/chat-playground/internal/upload"
	"github.com/playground-ai/chat-playground/pkg/logger"
)

type stubClient struct {
	reply string
}

func (c *stubClient) Name() string { return "stub" }

func (c *stubClient) Complete(ctx context.Context, req *llm.CompletionRequest) *llm.CompletionResponse {
	return &llm.CompletionResponse{Role: model.RoleAssistant, Content: c.reply, Model: req.Model}
}

func (c *stubClient) CompleteStream(ctx context.Context, req *llm.CompletionRequest, cb llm.StreamCallback) *llm.CompletionResponse {
	for i, w := range strings.Fields(c.reply) {
		if err := cb(w, i); err != nil {
			break
		}
	}
	return c.Complete(ctx, req)
}

func newTestRouter(t *testing.T, reply string) (*chi.Mux, *store.Store) {
	t.Helper()

	st := store.New(nil, nil)
	st.Load()
	t.Cleanup(func() { st.Close() })

	stub := &stubClient{reply: reply}
	dispatcher := llm.NewDispatcher(map[model.Provider]llm.Client{
		model.ProviderOpenAI:    stub,
		model.ProviderAnthropic: stub,
		model.ProviderAmazon:    stub,
	}, time.Second, logger.Global())

	uploads := upload.NewRegistry(time.Minute)

	chatHandler := NewChatHandler(st, logger.Global())
	messageHandler := NewMessageHandler(st, dispatcher, uploads, logger.Global())
	settingsHandler := NewSettingsHandler(st, logger.Global())

	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/chats", func(r chi.Router) {
			r.Post("/", chatHandler.Create)
			r.Get("/", chatHandler.List)
			r.Put("/current", chatHandler.Select)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", chatHandler.Get)
				r.Put("/", chatHandler.Update)
				r.Delete("/", chatHandler.Delete)
				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Send)
			})
		})
		r.Get("/models", settingsHandler.Models)
		r.Put("/models/selected", settingsHandler.SelectModel)
		r.Get("/parameters", settingsHandler.Parameters)
		r.Put("/parameters", settingsHandler.UpdateParameters)
		r.Post("/parameters/preset", settingsHandler.ApplyPreset)
	})
	return r, st
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestChatLifecycle(t *testing.T) {
	r, _ := newTestRouter(t, "ok")

	rec := doJSON(t, r, http.MethodPost, "/api/v1/chats", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var chat model.Chat
	if err := json.Unmarshal(rec.Body.Bytes(), &chat); err != nil {
		t.Fatal(err)
	}
	if chat.ID == "" || chat.Title != "New Chat" {
		t.Fatalf("unexpected chat %+v", chat)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/chats", nil)
	var list struct {
		Chats         []model.Chat `json:"chats"`
		CurrentChatID string       `json:"currentChatId"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	// The welcome chat plus the new one; the new chat is first and current.
	if len(list.Chats) != 2 || list.Chats[0].ID != chat.ID || list.CurrentChatID != chat.ID {
		t.Fatalf("unexpected list %+v", list)
	}

	rec = doJSON(t, r, http.MethodPut, "/api/v1/chats/"+chat.ID, model.UpdateChatRequest{Title: "Renamed"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodDelete, "/api/v1/chats/"+chat.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = doJSON(t, r, http.MethodGet, "/api/v1/chats/"+chat.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}

func TestChatIDValidation(t *testing.T) {
	r, _ := newTestRouter(t, "ok")

	rec := doJSON(t, r, http.MethodGet, "/api/v1/chats/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSendMessage(t *testing.T) {
	r, st := newTestRouter(t, "hello from the model")
	chatID := st.CreateChat()

	rec := doJSON(t, r, http.MethodPost, "/api/v1/chats/"+chatID+"/messages",
		model.CreateMessageRequest{Content: "hi there"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp model.SendMessageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.UserMessage.Role != model.RoleUser || resp.UserMessage.Content != "hi there" {
		t.Errorf("user message = %+v", resp.UserMessage)
	}
	if resp.AssistantMessage.Role != model.RoleAssistant || resp.AssistantMessage.Content != "hello from the model" {
		t.Errorf("assistant message = %+v", resp.AssistantMessage)
	}

	chat, _ := st.Chat(chatID)
	if len(chat.Messages) != 2 {
		t.Fatalf("message count = %d, want 2", len(chat.Messages))
	}
	if chat.Title != "hi there" {
		t.Errorf("auto title = %q", chat.Title)
	}
	if st.IsLoading() {
		t.Error("loading flag still set after send")
	}
}

func TestSendMessageEmptyContent(t *testing.T) {
	r, st := newTestRouter(t, "ok")
	chatID := st.CreateChat()

	rec := doJSON(t, r, http.MethodPost, "/api/v1/chats/"+chatID+"/messages",
		model.CreateMessageRequest{Content: ""})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestSendMessageUnsupportedModel(t *testing.T) {
	r, st := newTestRouter(t, "ok")
	chatID := st.CreateChat()
	st.SetSelectedModel("mystery-9000")

	rec := doJSON(t, r, http.MethodPost, "/api/v1/chats/"+chatID+"/messages",
		model.CreateMessageRequest{Content: "hi"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
	if st.Snapshot().Error == "" {
		t.Error("store error state not set on routing failure")
	}
}

func TestSendMessageStreaming(t *testing.T) {
	r, st := newTestRouter(t, "alpha beta gamma")
	chatID := st.CreateChat()

	rec := doJSON(t, r, http.MethodPost, "/api/v1/chats/"+chatID+"/messages?stream=true",
		model.CreateMessageRequest{Content: "stream please"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	for _, event := range []string{"event: message", "event: token", "event: done"} {
		if !strings.Contains(body, event) {
			t.Errorf("stream missing %q:\n%s", event, body)
		}
	}
	if strings.Count(body, "event: token") != 3 {
		t.Errorf("token events = %d, want 3", strings.Count(body, "event: token"))
	}

	chat, _ := st.Chat(chatID)
	last := chat.Messages[len(chat.Messages)-1]
	if last.Role != model.RoleAssistant || last.Content != "alpha beta gamma" {
		t.Errorf("persisted assistant message = %+v", last)
	}
}

func TestSelectModelResetsParameters(t *testing.T) {
	r, st := newTestRouter(t, "ok")
	st.SetMaxTokens(1)

	rec := doJSON(t, r, http.MethodPut, "/api/v1/models/selected",
		map[string]string{"model_id": "gpt-3.5-turbo"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	params := st.Parameters()
	if params.MaxTokens != 2048 {
		t.Errorf("maxTokens = %d, want catalog default 2048", params.MaxTokens)
	}
	if st.SelectedModelID() != "gpt-3.5-turbo" {
		t.Errorf("selected = %q", st.SelectedModelID())
	}
}

func TestUpdateParametersPartial(t *testing.T) {
	r, st := newTestRouter(t, "ok")

	temp := 0.3
	rec := doJSON(t, r, http.MethodPut, "/api/v1/parameters",
		map[string]interface{}{"temperature": temp})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	params := st.Parameters()
	if params.Temperature != temp {
		t.Errorf("temperature = %v", params.Temperature)
	}
	if params.TopP != 0.95 {
		t.Errorf("topP changed unexpectedly: %v", params.TopP)
	}
}

func TestApplyPreset(t *testing.T) {
	r, st := newTestRouter(t, "ok")

	rec := doJSON(t, r, http.MethodPost, "/api/v1/parameters/preset",
		map[string]string{"name": "Creative"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	params := st.Parameters()
	if params.Temperature != 0.9 || params.TopP != 1.0 ||
		params.FrequencyPenalty != 0.3 || params.PresencePenalty != 0.2 {
		t.Errorf("params after preset = %+v", params)
	}

	rec = doJSON(t, r, http.MethodPost, "/api/v1/parameters/preset",
		map[string]string{"name": "Nonexistent"})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown preset status = %d", rec.Code)
	}
}
