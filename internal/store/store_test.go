package store

import (
	"os"
	"strings"
	"testing"

	"github.com/playground-ai/chat-playground/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := New(nil, nil)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateChat(t *testing.T) {
	s := newTestStore(t)

	id := s.CreateChat()
	if id == "" {
		t.Fatal("expected non-empty chat id")
	}

	chat, ok := s.Chat(id)
	if !ok {
		t.Fatal("created chat not found")
	}
	if chat.Title != "New Chat" {
		t.Errorf("Title = %q, want %q", chat.Title, "New Chat")
	}
	if chat.ModelID != model.DefaultModelID {
		t.Errorf("ModelID = %q, want %q", chat.ModelID, model.DefaultModelID)
	}
	if len(chat.Messages) != 0 {
		t.Errorf("expected empty message list, got %d", len(chat.Messages))
	}
	if s.CurrentChatID() != id {
		t.Errorf("CurrentChatID = %q, want %q", s.CurrentChatID(), id)
	}

	// New chats are prepended.
	second := s.CreateChat()
	chats := s.Chats()
	if len(chats) != 2 || chats[0].ID != second {
		t.Errorf("expected newest chat first, got %+v", chats)
	}
}

func TestDeleteChatPromotesCurrent(t *testing.T) {
	s := newTestStore(t)

	first := s.CreateChat()
	second := s.CreateChat() // current, at the head

	s.DeleteChat(second)
	if got := s.CurrentChatID(); got != first {
		t.Errorf("CurrentChatID = %q, want promoted %q", got, first)
	}

	s.DeleteChat(first)
	if len(s.Chats()) != 0 {
		t.Error("expected empty chat collection")
	}
	if got := s.CurrentChatID(); got != "" {
		t.Errorf("CurrentChatID = %q, want empty", got)
	}
}

func TestDeleteChatKeepsUnrelatedCurrent(t *testing.T) {
	s := newTestStore(t)

	first := s.CreateChat()
	second := s.CreateChat()
	s.SetCurrentChat(second)

	s.DeleteChat(first)
	if got := s.CurrentChatID(); got != second {
		t.Errorf("CurrentChatID = %q, want %q", got, second)
	}

	// Unknown id is a silent no-op.
	s.DeleteChat("no-such-chat")
	if len(s.Chats()) != 1 {
		t.Error("no-op delete changed the collection")
	}
}

func TestActiveChatPointerInvariant(t *testing.T) {
	s := newTestStore(t)

	ids := []string{s.CreateChat(), s.CreateChat(), s.CreateChat()}
	for _, id := range ids {
		s.DeleteChat(id)

		current := s.CurrentChatID()
		if current == "" {
			continue
		}
		found := false
		for _, c := range s.Chats() {
			if c.ID == current {
				found = true
			}
		}
		if !found {
			t.Fatalf("active pointer %q references no existing chat", current)
		}
	}
}

func TestAddMessageAppendOnly(t *testing.T) {
	s := newTestStore(t)
	id := s.CreateChat()

	var prior []model.Message
	for i, content := range []string{"one", "two", "three"} {
		msg := s.AddMessage(id, model.CreateMessageRequest{Role: model.RoleUser, Content: content})
		if msg == nil {
			t.Fatal("AddMessage returned nil for existing chat")
		}

		chat, _ := s.Chat(id)
		if len(chat.Messages) != i+1 {
			t.Fatalf("message count = %d, want %d", len(chat.Messages), i+1)
		}
		for j, p := range prior {
			got := chat.Messages[j]
			if got.ID != p.ID || got.Content != p.Content || got.Role != p.Role {
				t.Errorf("prior message %d mutated: %+v != %+v", j, got, p)
			}
		}
		prior = chat.Messages
	}
}

func TestAddMessageUnknownChat(t *testing.T) {
	s := newTestStore(t)
	if msg := s.AddMessage("missing", model.CreateMessageRequest{Role: model.RoleUser, Content: "hi"}); msg != nil {
		t.Error("expected nil message for unknown chat")
	}
}

func TestAddMessageStampsAssistantModel(t *testing.T) {
	s := newTestStore(t)
	id := s.CreateChat()
	s.SetSelectedModel("gpt-4-turbo")

	user := s.AddMessage(id, model.CreateMessageRequest{Role: model.RoleUser, Content: "hi"})
	if user.ModelID != "" {
		t.Errorf("user message stamped with model %q", user.ModelID)
	}

	asst := s.AddMessage(id, model.CreateMessageRequest{Role: model.RoleAssistant, Content: "hello"})
	if asst.ModelID != "gpt-4-turbo" {
		t.Errorf("assistant ModelID = %q, want gpt-4-turbo", asst.ModelID)
	}
}

func TestAutoTitleDerivation(t *testing.T) {
	long := strings.Repeat("a", 45)

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"short content verbatim", "Hello there", "Hello there"},
		{"exactly thirty", strings.Repeat("b", 30), strings.Repeat("b", 30)},
		{"long content truncated", long, long[:30] + "..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			id := s.CreateChat()
			s.AddMessage(id, model.CreateMessageRequest{Role: model.RoleUser, Content: tt.content})
			chat, _ := s.Chat(id)
			if chat.Title != tt.want {
				t.Errorf("Title = %q, want %q", chat.Title, tt.want)
			}
		})
	}
}

func TestAutoTitleOnlyForFirstUserMessage(t *testing.T) {
	s := newTestStore(t)
	id := s.CreateChat()

	// Assistant-authored first message leaves the title alone.
	s.AddMessage(id, model.CreateMessageRequest{Role: model.RoleAssistant, Content: "greetings"})
	chat, _ := s.Chat(id)
	if chat.Title != "New Chat" {
		t.Errorf("Title = %q, want unchanged", chat.Title)
	}

	// A later user message must not retitle either.
	s.AddMessage(id, model.CreateMessageRequest{Role: model.RoleUser, Content: "second message"})
	chat, _ = s.Chat(id)
	if chat.Title != "New Chat" {
		t.Errorf("Title = %q, want unchanged", chat.Title)
	}
}

func TestUpdateChatTitle(t *testing.T) {
	s := newTestStore(t)
	id := s.CreateChat()

	s.UpdateChatTitle(id, "Renamed")
	chat, _ := s.Chat(id)
	if chat.Title != "Renamed" {
		t.Errorf("Title = %q, want Renamed", chat.Title)
	}

	s.UpdateChatTitle("missing", "x") // no-op
}

func TestAttachments(t *testing.T) {
	s := newTestStore(t)
	id := s.CreateChat()
	msg := s.AddMessage(id, model.CreateMessageRequest{Role: model.RoleUser, Content: "see attached"})

	attID := s.AddAttachment(msg.ID, model.Attachment{
		Name: "notes.txt",
		Type: model.FileTypeText,
		Size: 42,
		URL:  "/api/v1/files/abc",
	})
	if attID == "" {
		t.Fatal("expected attachment id")
	}

	chat, _ := s.Chat(id)
	if len(chat.Messages[0].Attachments) != 1 {
		t.Fatalf("attachment count = %d, want 1", len(chat.Messages[0].Attachments))
	}

	s.RemoveAttachment(msg.ID, attID)
	chat, _ = s.Chat(id)
	if len(chat.Messages[0].Attachments) != 0 {
		t.Error("attachment not removed")
	}

	if got := s.AddAttachment("missing", model.Attachment{Name: "x"}); got != "" {
		t.Errorf("AddAttachment on unknown message = %q, want empty", got)
	}
	s.RemoveAttachment("missing", "also-missing") // no-op
}

func TestSetSelectedModelResetsDefaults(t *testing.T) {
	s := newTestStore(t)

	s.SetMaxTokens(99)
	s.SetTemperature(1.9)

	s.SetSelectedModel("amazon-nova-micro")
	params := s.Parameters()
	if params.MaxTokens != 1024 {
		t.Errorf("MaxTokens = %d, want 1024", params.MaxTokens)
	}
	if params.Temperature != 0.7 {
		t.Errorf("Temperature = %v, want 0.7", params.Temperature)
	}

	// Off-catalog ids switch the selection but leave parameters alone.
	s.SetMaxTokens(77)
	s.SetSelectedModel("experimental-model")
	if s.SelectedModelID() != "experimental-model" {
		t.Errorf("SelectedModelID = %q", s.SelectedModelID())
	}
	if got := s.Parameters().MaxTokens; got != 77 {
		t.Errorf("MaxTokens = %d, want 77", got)
	}
}

func TestApplyParameterPresetAtomic(t *testing.T) {
	s := newTestStore(t)
	s.SetMaxTokens(2048)

	preset, ok := model.PresetByName("Very Creative")
	if !ok {
		t.Fatal("preset not found")
	}
	s.ApplyParameterPreset(preset)

	params := s.Parameters()
	if params.Temperature != 1.0 || params.TopP != 1.0 ||
		params.FrequencyPenalty != 0.5 || params.PresencePenalty != 0.5 {
		t.Errorf("parameters = %+v, want preset tuple", params)
	}
	if params.MaxTokens != 2048 {
		t.Errorf("MaxTokens = %d, preset must not touch it", params.MaxTokens)
	}
}

func TestClearState(t *testing.T) {
	s := newTestStore(t)
	id := s.CreateChat()
	s.AddMessage(id, model.CreateMessageRequest{Role: model.RoleUser, Content: "hi"})
	s.SetError("boom")
	s.SetLoading(true)

	s.ClearState()

	if len(s.Chats()) != 0 {
		t.Error("chats survived clear")
	}
	if s.CurrentChatID() != "" {
		t.Error("current pointer survived clear")
	}
	if s.IsLoading() {
		t.Error("loading flag survived clear")
	}
	if got := s.SelectedModelID(); got != model.DefaultModelID {
		t.Errorf("SelectedModelID = %q, want default", got)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFilePersister(dir)
	if err != nil {
		t.Fatalf("NewFilePersister: %v", err)
	}

	s := New(p, nil)
	chatID := s.CreateChat()
	msg := s.AddMessage(chatID, model.CreateMessageRequest{Role: model.RoleUser, Content: "persist me"})
	s.AddAttachment(msg.ID, model.Attachment{Name: "data.csv", Type: model.FileTypeCSV, Size: 10})
	s.SetSelectedModel("gpt-3.5-turbo")
	want := s.Snapshot()
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	restored := New(p, nil)
	defer restored.Close()
	restored.Load()
	got := restored.Snapshot()

	if len(got.Chats) != len(want.Chats) {
		t.Fatalf("chat count = %d, want %d", len(got.Chats), len(want.Chats))
	}
	for i := range want.Chats {
		wc, gc := want.Chats[i], got.Chats[i]
		if gc.ID != wc.ID || gc.Title != wc.Title || len(gc.Messages) != len(wc.Messages) {
			t.Errorf("chat %d mismatch: %+v != %+v", i, gc, wc)
		}
		for j := range wc.Messages {
			wm, gm := wc.Messages[j], gc.Messages[j]
			if gm.ID != wm.ID || gm.Content != wm.Content || gm.Role != wm.Role {
				t.Errorf("message %d/%d mismatch", i, j)
			}
			if len(gm.Attachments) != len(wm.Attachments) {
				t.Errorf("attachment count mismatch at %d/%d", i, j)
			}
		}
	}
	if got.CurrentChatID != want.CurrentChatID {
		t.Errorf("CurrentChatID = %q, want %q", got.CurrentChatID, want.CurrentChatID)
	}
	if got.SelectedModelID != want.SelectedModelID {
		t.Errorf("SelectedModelID = %q, want %q", got.SelectedModelID, want.SelectedModelID)
	}
}

func TestLoadSeedsWelcomeChat(t *testing.T) {
	s := newTestStore(t)
	s.Load()

	chats := s.Chats()
	if len(chats) != 1 {
		t.Fatalf("chat count = %d, want seeded welcome chat", len(chats))
	}
	if chats[0].Title != "Welcome Chat" {
		t.Errorf("Title = %q, want Welcome Chat", chats[0].Title)
	}
	if len(chats[0].Messages) != 1 || chats[0].Messages[0].Role != model.RoleAssistant {
		t.Fatalf("expected one assistant welcome message, got %+v", chats[0].Messages)
	}
	if s.CurrentChatID() != chats[0].ID {
		t.Error("welcome chat not current")
	}
}

func TestLoadFallsBackOnCorruptState(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFilePersister(dir)
	if err != nil {
		t.Fatalf("NewFilePersister: %v", err)
	}
	if err := os.WriteFile(p.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt state: %v", err)
	}

	s := New(p, nil)
	defer s.Close()
	s.Load()

	// Corrupt slot falls back to initial state plus the welcome seed.
	if got := s.SelectedModelID(); got != model.DefaultModelID {
		t.Errorf("SelectedModelID = %q, want default", got)
	}
	if len(s.Chats()) != 1 {
		t.Errorf("chat count = %d, want 1", len(s.Chats()))
	}
}

func TestLoadDropsTransientFlags(t *testing.T) {
	dir := t.TempDir()
	p, err := NewFilePersister(dir)
	if err != nil {
		t.Fatalf("NewFilePersister: %v", err)
	}

	state := initialState()
	state.Chats = []model.Chat{{ID: "c1", Title: "T", Messages: []model.Message{}}}
	state.IsLoading = true
	state.Error = "stale"
	if err := p.Save(&state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s := New(p, nil)
	defer s.Close()
	s.Load()

	snap := s.Snapshot()
	if snap.IsLoading || snap.Error != "" {
		t.Errorf("transient flags survived restart: loading=%v error=%q", snap.IsLoading, snap.Error)
	}
}
