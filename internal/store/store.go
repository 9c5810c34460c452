// Package store holds the authoritative chat state and its persistence.
package store

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/playground-ai/chat-playground/internal/model"
	"github.com/playground-ai/chat-playground/pkg/logger"
)

// State is the full persisted state tree. It is serialized wholesale to a
// single storage slot; there is no field-level persistence.
type State struct {
	Chats            []model.Chat     `json:"chats"`
	CurrentChatID    string           `json:"currentChatId"`
	Models           []model.LLMModel `json:"models"`
	SelectedModelID  string           `json:"selectedModelId"`
	MaxTokens        int              `json:"maxTokens"`
	Temperature      float64          `json:"temperature"`
	TopP             float64          `json:"topP"`
	FrequencyPenalty float64          `json:"frequencyPenalty"`
	PresencePenalty  float64          `json:"presencePenalty"`
	IsLoading        bool             `json:"isLoading"`
	Error            string           `json:"error,omitempty"`
}

// initialState returns the empty default configuration.
func initialState() State {
	return State{
		Chats:           []model.Chat{},
		Models:          model.Catalog(),
		SelectedModelID: model.DefaultModelID,
		MaxTokens:       4096,
		Temperature:     0.7,
		TopP:            0.95,
	}
}

const welcomeMessage = "Welcome to Chat Playground! Type a message to start."

// Store is the single source of truth for all chat state. Every mutation
// updates the in-memory tree synchronously and mirrors the whole tree to the
// persister asynchronously.
type Store struct {
	mu        sync.RWMutex
	state     State
	persister Persister
	logger    *logger.Logger

	saveCh chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a store backed by the given persister. Pass a nil persister
// for a purely in-memory store (used in tests).
func New(p Persister, log *logger.Logger) *Store {
	if log == nil {
		log = logger.Global()
	}
	s := &Store{
		state:     initialState(),
		persister: p,
		logger:    log,
		saveCh:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.flushLoop()
	return s
}

// Load rehydrates state from the persister, falling back to the initial
// state when the slot is absent or unparsable. If rehydration yields no
// chats, a welcome chat is seeded.
func (s *Store) Load() {
	if s.persister != nil {
		if state, err := s.persister.Load(); err != nil {
			s.logger.Warn("failed to restore state, starting fresh", zap.Error(err))
		} else if state != nil {
			s.mu.Lock()
			s.state = *state
			// Transient flags never survive a restart.
			s.state.IsLoading = false
			s.state.Error = ""
			// The catalog is configuration, not user data.
			s.state.Models = model.Catalog()
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.state.Chats) == 0 {
		now := model.Now()
		chat := model.Chat{
			ID:    uuid.New().String(),
			Title: "Welcome Chat",
			Messages: []model.Message{{
				ID:        uuid.New().String(),
				Role:      model.RoleAssistant,
				Content:   welcomeMessage,
				Timestamp: now,
				ModelID:   s.state.SelectedModelID,
			}},
			ModelID:   s.state.SelectedModelID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.state.Chats = []model.Chat{chat}
		s.state.CurrentChatID = chat.ID
		s.scheduleSave()
	}
}

// Save writes the current state to the persister synchronously.
func (s *Store) Save() error {
	if s.persister == nil {
		return nil
	}
	snap := s.Snapshot()
	return s.persister.Save(&snap)
}

// Close flushes pending writes and stops the background flusher.
func (s *Store) Close() error {
	close(s.done)
	s.wg.Wait()
	return s.Save()
}

func (s *Store) flushLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case <-s.saveCh:
			if err := s.Save(); err != nil {
				s.logger.Error("failed to persist state", zap.Error(err))
			}
		}
	}
}

// scheduleSave requests an asynchronous mirror of the state tree. Coalesces
// with any already-pending request. Callers must hold s.mu.
func (s *Store) scheduleSave() {
	if s.persister == nil {
		return
	}
	select {
	case s.saveCh <- struct{}{}:
	default:
	}
}

// CreateChat creates a new chat bound to the selected model, prepends it to
// the collection, makes it current and returns its id. Always succeeds.
func (s *Store) CreateChat() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := model.Now()
	chat := model.Chat{
		ID:        uuid.New().String(),
		Title:     "New Chat",
		Messages:  []model.Message{},
		ModelID:   s.state.SelectedModelID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.state.Chats = append([]model.Chat{chat}, s.state.Chats...)
	s.state.CurrentChatID = chat.ID
	s.scheduleSave()
	return chat.ID
}

// DeleteChat removes a chat. Deleting the current chat promotes the first
// remaining chat, or clears the pointer when none remain. Unknown ids are a
// no-op.
func (s *Store) DeleteChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.state.Chats[:0]
	removed := false
	for _, c := range s.state.Chats {
		if c.ID == chatID {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	if !removed {
		return
	}
	s.state.Chats = kept
	if s.state.CurrentChatID == chatID {
		if len(kept) > 0 {
			s.state.CurrentChatID = kept[0].ID
		} else {
			s.state.CurrentChatID = ""
		}
	}
	s.scheduleSave()
}

// SetCurrentChat moves the active pointer. Existence is not validated;
// readers treat a dangling pointer as "no active chat".
func (s *Store) SetCurrentChat(chatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentChatID = chatID
	s.scheduleSave()
}

// UpdateChatTitle renames a chat and bumps its updated timestamp. Unknown
// ids are a no-op.
func (s *Store) UpdateChatTitle(chatID, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.state.Chats {
		if s.state.Chats[i].ID == chatID {
			s.state.Chats[i].Title = title
			s.state.Chats[i].UpdatedAt = model.Now()
			s.scheduleSave()
			return
		}
	}
}

// titleLimit caps auto-derived chat titles.
const titleLimit = 30

func deriveTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= titleLimit {
		return content
	}
	return string(runes[:titleLimit]) + "..."
}

// AddMessage generates an id and timestamp, stamps assistant messages with
// the selected model, appends the message and bumps the chat's updated
// timestamp. The first user message of a fresh chat derives the title.
// Returns nil when the chat does not exist.
func (s *Store) AddMessage(chatID string, req model.CreateMessageRequest) *model.Message {
	return s.addMessage(chatID, req, nil)
}

// AddMessageWithAttachments is AddMessage with attachments claimed onto the
// new message at creation. Attachment ids are generated here.
func (s *Store) AddMessageWithAttachments(chatID string, req model.CreateMessageRequest, attachments []model.Attachment) *model.Message {
	return s.addMessage(chatID, req, attachments)
}

func (s *Store) addMessage(chatID string, req model.CreateMessageRequest, attachments []model.Attachment) *model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Chats {
		chat := &s.state.Chats[i]
		if chat.ID != chatID {
			continue
		}

		msg := model.Message{
			ID:        uuid.New().String(),
			Role:      req.Role,
			Content:   req.Content,
			Timestamp: model.Now(),
		}
		if req.Role == model.RoleAssistant {
			msg.ModelID = s.state.SelectedModelID
		}
		for _, att := range attachments {
			if att.ID == "" {
				att.ID = uuid.New().String()
			}
			msg.Attachments = append(msg.Attachments, att)
		}

		if len(chat.Messages) == 0 && req.Role == model.RoleUser {
			chat.Title = deriveTitle(req.Content)
		}
		chat.Messages = append(chat.Messages, msg)
		chat.UpdatedAt = msg.Timestamp

		s.scheduleSave()
		out := cloneMessage(msg)
		return &out
	}
	return nil
}

// AddAttachment attaches a file descriptor to the message with the given id,
// searching across all chats. Returns the generated attachment id, or ""
// when the message is not found.
func (s *Store) AddAttachment(messageID string, att model.Attachment) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Chats {
		chat := &s.state.Chats[i]
		for j := range chat.Messages {
			if chat.Messages[j].ID != messageID {
				continue
			}
			att.ID = uuid.New().String()
			chat.Messages[j].Attachments = append(chat.Messages[j].Attachments, att)
			chat.UpdatedAt = model.Now()
			s.scheduleSave()
			return att.ID
		}
	}
	return ""
}

// RemoveAttachment detaches an attachment from the message with the given
// id. Unknown message or attachment ids are a no-op.
func (s *Store) RemoveAttachment(messageID, attachmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Chats {
		chat := &s.state.Chats[i]
		for j := range chat.Messages {
			if chat.Messages[j].ID != messageID {
				continue
			}
			atts := chat.Messages[j].Attachments
			for k := range atts {
				if atts[k].ID == attachmentID {
					chat.Messages[j].Attachments = append(atts[:k], atts[k+1:]...)
					chat.UpdatedAt = model.Now()
					s.scheduleSave()
					return
				}
			}
			return
		}
	}
}

// SetSelectedModel changes the model selection. Selecting a catalog model
// also resets maxTokens and temperature to that model's defaults so
// out-of-range values never carry across models.
func (s *Store) SetSelectedModel(modelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SelectedModelID = modelID
	if m, ok := model.CatalogModel(modelID); ok {
		s.state.MaxTokens = m.DefaultTokens
		s.state.Temperature = m.DefaultTemperature
	}
	s.scheduleSave()
}

// SetMaxTokens sets the max-output-tokens parameter. Range validation is an
// input-control concern, not enforced here.
func (s *Store) SetMaxTokens(tokens int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MaxTokens = tokens
	s.scheduleSave()
}

// SetTemperature sets the sampling temperature.
func (s *Store) SetTemperature(temp float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Temperature = temp
	s.scheduleSave()
}

// SetTopP sets the nucleus-sampling parameter.
func (s *Store) SetTopP(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TopP = v
	s.scheduleSave()
}

// SetFrequencyPenalty sets the frequency penalty.
func (s *Store) SetFrequencyPenalty(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.FrequencyPenalty = v
	s.scheduleSave()
}

// SetPresencePenalty sets the presence penalty.
func (s *Store) SetPresencePenalty(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.PresencePenalty = v
	s.scheduleSave()
}

// ApplyParameterPreset overwrites temperature, topP and both penalties
// atomically from a preset tuple. MaxTokens is untouched.
func (s *Store) ApplyParameterPreset(preset model.ParameterPreset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Temperature = preset.Temperature
	s.state.TopP = preset.TopP
	s.state.FrequencyPenalty = preset.FrequencyPenalty
	s.state.PresencePenalty = preset.PresencePenalty
	s.scheduleSave()
}

// SetLoading sets the transient in-flight flag.
func (s *Store) SetLoading(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = loading
	s.scheduleSave()
}

// SetError sets or clears the transient error banner text.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Error = msg
	s.scheduleSave()
}

// ClearState resets everything to the initial empty configuration.
func (s *Store) ClearState() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = initialState()
	s.scheduleSave()
}

// Snapshot returns a deep copy of the full state tree.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneState(s.state)
}

// Chats returns all chats, newest first.
func (s *Store) Chats() []model.Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Chat, len(s.state.Chats))
	for i, c := range s.state.Chats {
		out[i] = cloneChat(c)
	}
	return out
}

// Chat returns a copy of the chat with the given id.
func (s *Store) Chat(chatID string) (model.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.state.Chats {
		if c.ID == chatID {
			return cloneChat(c), true
		}
	}
	return model.Chat{}, false
}

// CurrentChat returns the active chat. A dangling or empty pointer reads as
// "no active chat".
func (s *Store) CurrentChat() (model.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state.CurrentChatID == "" {
		return model.Chat{}, false
	}
	for _, c := range s.state.Chats {
		if c.ID == s.state.CurrentChatID {
			return cloneChat(c), true
		}
	}
	return model.Chat{}, false
}

// CurrentChatID returns the raw active pointer, which may be empty or
// dangling.
func (s *Store) CurrentChatID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentChatID
}

// SelectedModelID returns the active model selection.
func (s *Store) SelectedModelID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SelectedModelID
}

// Parameters returns the current generation parameters.
func (s *Store) Parameters() model.GenerationParameters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.GenerationParameters{
		MaxTokens:        s.state.MaxTokens,
		Temperature:      s.state.Temperature,
		TopP:             s.state.TopP,
		FrequencyPenalty: s.state.FrequencyPenalty,
		PresencePenalty:  s.state.PresencePenalty,
	}
}

// IsLoading reports whether a completion is in flight.
func (s *Store) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.IsLoading
}

func cloneState(st State) State {
	out := st
	out.Chats = make([]model.Chat, len(st.Chats))
	for i, c := range st.Chats {
		out.Chats[i] = cloneChat(c)
	}
	out.Models = make([]model.LLMModel, len(st.Models))
	copy(out.Models, st.Models)
	return out
}

func cloneChat(c model.Chat) model.Chat {
	out := c
	out.Messages = make([]model.Message, len(c.Messages))
	for i, m := range c.Messages {
		out.Messages[i] = cloneMessage(m)
	}
	return out
}

func cloneMessage(m model.Message) model.Message {
	out := m
	if m.Attachments != nil {
		out.Attachments = make([]model.Attachment, len(m.Attachments))
		copy(out.Attachments, m.Attachments)
	}
	return out
}
