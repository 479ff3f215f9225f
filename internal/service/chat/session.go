package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zhouzirui/profile-assistant/backend/internal/model/chat"
	"github.com/zhouzirui/profile-assistant/backend/internal/model/profile"
	"github.com/zhouzirui/profile-assistant/backend/internal/service/history"
	"github.com/zhouzirui/profile-assistant/backend/internal/service/responder"
	"github.com/zhouzirui/profile-assistant/backend/internal/service/speech"
	"github.com/zhouzirui/profile-assistant/backend/internal/storage"
	"github.com/zhouzirui/profile-assistant/backend/pkg/safego"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSessionID = errors.New("invalid session id")
	ErrEmptyInput       = errors.New("message text is empty")
	ErrAwaitingResponse = errors.New("a response is still pending")
	ErrNoBotMessage     = errors.New("no bot message to rate")
	ErrInvalidSettings  = errors.New("invalid settings")
	ErrInvalidFeedback  = errors.New("invalid feedback type")
	ErrSessionClosed    = errors.New("session closed")
)

const (
	noticeCopied          = "Chat copied to clipboard! 📋"
	noticeSpeechMissing   = "Speech recognition is not supported in your browser. Please type your message."
	noticeSpeechMisheard  = "Sorry, I couldn't catch that. Could you type it instead?"
	speakTimeout          = 30 * time.Second
	defaultSubscriberSize = 16
)

// State is the conversational state of a session.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingResponse State = "awaiting-response"
)

// Generator produces bot replies.
type Generator interface {
	Generate(ctx context.Context, input string, personality chat.Personality, kb profile.Profile) (responder.Response, error)
}

// HistoryStore persists history and feedback for one session.
type HistoryStore interface {
	Save(ctx context.Context, entries []chat.HistoryEntry) error
	Load(ctx context.Context) []chat.HistoryEntry
	ClearHistory(ctx context.Context) error
	AppendFeedback(ctx context.Context, record chat.FeedbackRecord) error
	LoadFeedback(ctx context.Context) []chat.FeedbackRecord
}

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d without blocking the caller.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Timing controls the artificial thinking delay.
type Timing struct {
	BaseDelay   time.Duration
	SpeedFactor time.Duration
}

// DefaultTiming matches the original one second plus half a second per speed step.
func DefaultTiming() Timing {
	return Timing{BaseDelay: time.Second, SpeedFactor: 500 * time.Millisecond}
}

// Delay returns BaseDelay + (4 - speed) * SpeedFactor. Faster speeds always
// wait strictly less.
func (t Timing) Delay(speed int) time.Duration {
	factor := t.SpeedFactor
	if factor <= 0 {
		factor = time.Millisecond
	}
	base := t.BaseDelay
	if base < 0 {
		base = 0
	}
	return base + time.Duration(4-speed)*factor
}

// EventType 会话推送事件类型
type EventType string

const (
	EventSnapshot EventType = "snapshot"
	EventSpeak    EventType = "speak"
)

// Event is pushed to subscribers whenever the session changes or speaks.
type Event struct {
	Type     EventType `json:"type"`
	Snapshot *Snapshot `json:"snapshot,omitempty"`
	Text     string    `json:"text,omitempty"`
}

// Snapshot is a read-only copy of the session for rendering.
type Snapshot struct {
	ID        string              `json:"id"`
	State     State               `json:"state"`
	Typing    bool                `json:"typing"`
	Minimized bool                `json:"minimized"`
	Settings  chat.Settings       `json:"settings"`
	Messages  []chat.Message      `json:"messages"`
	History   []chat.HistoryEntry `json:"history"`
}

// ExportDocument is the downloadable chat export.
type ExportDocument struct {
	Timestamp string         `json:"timestamp"`
	Portfolio string         `json:"portfolio"`
	Messages  []chat.Message `json:"messages"`
}

// Options wires a Session. Only Profile is required; everything else has a
// working default.
type Options struct {
	ID          string
	Profile     profile.Profile
	Generator   Generator
	History     HistoryStore
	Synthesizer speech.Synthesizer
	Scheduler   Scheduler
	Timing      Timing
	Settings    *chat.Settings
	Logger      *zap.Logger
	Now         func() time.Time
}

// Session owns one conversation: the message log, the history log, the
// pending response and the settings. All mutations go through mu.
type Session struct {
	id          string
	profile     profile.Profile
	generator   Generator
	history     HistoryStore
	synthesizer speech.Synthesizer
	scheduler   Scheduler
	timing      Timing
	logger      *zap.Logger
	now         func() time.Time

	mu          sync.Mutex
	settings    chat.Settings
	state       State
	minimized   bool
	messages    []chat.Message
	entries     []chat.HistoryEntry
	nextID      int
	epoch       uint64
	pending     Timer
	closed      bool
	subscribers map[int]chan Event
	nextSubID   int
}

// NewSession builds a session, seeds the greeting and reloads persisted history.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	settings := chat.DefaultSettings()
	if opts.Settings != nil {
		settings = *opts.Settings
	}
	settings, err := normalizeSettings(settings)
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:          opts.ID,
		profile:     opts.Profile,
		generator:   opts.Generator,
		history:     opts.History,
		synthesizer: opts.Synthesizer,
		scheduler:   opts.Scheduler,
		timing:      opts.Timing,
		logger:      opts.Logger,
		now:         opts.Now,
		settings:    settings,
		state:       StateIdle,
		nextID:      1,
		subscribers: make(map[int]chan Event),
	}
	if s.generator == nil {
		s.generator = responder.NewGenerator(responder.NewTemplateStore())
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.String("component", "session"), zap.String("session_id", s.id))
	if s.history == nil {
		s.history = history.NewBridge(storage.NewMemoryStore(), s.id, s.logger)
	}
	if s.scheduler == nil {
		s.scheduler = realScheduler{}
	}
	if s.timing == (Timing{}) {
		s.timing = DefaultTiming()
	}
	if s.now == nil {
		s.now = time.Now
	}

	s.messages = []chat.Message{s.greetingLocked()}
	s.entries = s.history.Load(ctx)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Submit appends the user message, records a pending history entry and
// schedules the reply. Blank input returns ErrEmptyInput without touching
// the log; a pending reply returns ErrAwaitingResponse.
func (s *Session) Submit(ctx context.Context, text string) (chat.Message, error) {
	if strings.TrimSpace(text) == "" {
		return chat.Message{}, ErrEmptyInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return chat.Message{}, ErrSessionClosed
	}
	if s.state != StateIdle {
		return chat.Message{}, ErrAwaitingResponse
	}

	msg := s.appendLocked(chat.SenderUser, text, "")
	s.entries = append(s.entries, chat.HistoryEntry{
		Question:  text,
		Timestamp: chat.FormatISO(s.now()),
	})
	s.persistLocked(ctx)

	s.state = StateAwaitingResponse
	epoch := s.epoch
	slot := len(s.entries) - 1
	settings := s.settings
	delay := s.timing.Delay(settings.ResponseSpeed)
	s.pending = s.scheduler.AfterFunc(delay, func() {
		s.produce(epoch, slot, text, settings)
	})

	s.logger.Debug("message submitted",
		zap.Int("message_id", msg.ID),
		zap.Duration("delay", delay),
		zap.String("personality", string(settings.Personality)),
	)
	s.publishLocked()
	return msg, nil
}

// produce runs once per Submit after the thinking delay. A Clear in between
// bumps the epoch and turns this into a no-op.
func (s *Session) produce(epoch uint64, slot int, input string, settings chat.Settings) {
	ctx := context.Background()

	s.mu.Lock()
	if s.closed || s.epoch != epoch || s.state != StateAwaitingResponse {
		s.mu.Unlock()
		s.logger.Debug("dropping stale response", zap.Uint64("epoch", epoch))
		return
	}

	resp, err := s.generator.Generate(ctx, input, settings.Personality, s.profile)
	if err != nil {
		s.logger.Warn("response generation degraded", zap.Error(err))
	}

	emoji := resp.Emoji
	if !settings.EmojiMode {
		emoji = ""
	}
	s.appendLocked(chat.SenderBot, resp.Text, emoji)
	if slot < len(s.entries) {
		s.entries[slot].Response = resp.Text
	}
	s.persistLocked(ctx)

	s.state = StateIdle
	s.pending = nil
	s.publishLocked()

	speak := settings.VoiceEnabled && resp.Text != ""
	if speak {
		s.broadcastLocked(Event{Type: EventSpeak, Text: speech.CleanForSpeech(resp.Text)})
	}
	s.mu.Unlock()

	s.logger.Info("response produced", zap.String("intent", string(resp.Intent)))
	if speak {
		s.speak(resp.Text)
	}
}

func (s *Session) speak(text string) {
	if s.synthesizer == nil {
		return
	}
	cleaned := speech.CleanForSpeech(text)
	safego.Go(s.logger, "speak", func() {
		ctx, cancel := context.WithTimeout(context.Background(), speakTimeout)
		defer cancel()
		if err := s.synthesizer.Speak(ctx, cleaned); err != nil {
			s.logger.Debug("speech output skipped", zap.Error(err))
		}
	})
}

// Clear resets the log to the greeting, drops history (also in storage) and
// invalidates any pending reply.
func (s *Session) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	s.state = StateIdle
	s.messages = []chat.Message{s.greetingLocked()}
	s.entries = []chat.HistoryEntry{}
	if err := s.history.ClearHistory(ctx); err != nil {
		s.logger.Warn("clear persisted history failed", zap.Error(err))
	}
	s.publishLocked()
}

// Rate records feedback on the latest bot message. It never changes the
// conversational state.
func (s *Session) Rate(ctx context.Context, kind chat.FeedbackType) (chat.FeedbackRecord, error) {
	if !kind.Valid() {
		return chat.FeedbackRecord{}, fmt.Errorf("%w: %q", ErrInvalidFeedback, kind)
	}

	s.mu.Lock()
	botIdx := -1
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Sender == chat.SenderBot {
			botIdx = i
			break
		}
	}
	if botIdx < 0 {
		s.mu.Unlock()
		return chat.FeedbackRecord{}, ErrNoBotMessage
	}

	var question string
	for i := botIdx - 1; i >= 0; i-- {
		if s.messages[i].Sender == chat.SenderUser {
			question = s.messages[i].Text
			break
		}
	}
	record := chat.FeedbackRecord{
		Type:      kind,
		Message:   question,
		Response:  s.messages[botIdx].Text,
		Timestamp: chat.FormatISO(s.now()),
	}
	s.mu.Unlock()

	if err := s.history.AppendFeedback(ctx, record); err != nil {
		s.logger.Warn("persist feedback failed", zap.Error(err))
	}
	return record, nil
}

// Feedback lists every stored rating for this session.
func (s *Session) Feedback(ctx context.Context) []chat.FeedbackRecord {
	return s.history.LoadFeedback(ctx)
}

// Listen asks rec for a transcript and submits it. Recognition failures turn
// into a bot notice asking the user to type instead.
func (s *Session) Listen(ctx context.Context, rec speech.Recognizer) error {
	if rec == nil {
		rec = speech.Unsupported{}
	}
	text, err := rec.Listen(ctx)
	if err == nil && strings.TrimSpace(text) == "" {
		err = speech.ErrRecognition
	}
	if err != nil {
		notice := noticeSpeechMisheard
		if errors.Is(err, speech.ErrNotSupported) {
			notice = noticeSpeechMissing
		}
		s.logger.Info("speech input unavailable", zap.Error(err))
		s.mu.Lock()
		s.appendLocked(chat.SenderBot, notice, "")
		s.publishLocked()
		s.mu.Unlock()
		return nil
	}
	_, err = s.Submit(ctx, text)
	return err
}

// UpdateSettings replaces the settings. Changes apply to the next Submit.
func (s *Session) UpdateSettings(settings chat.Settings) (chat.Settings, error) {
	normalized, err := normalizeSettings(settings)
	if err != nil {
		return chat.Settings{}, err
	}
	s.mu.Lock()
	s.settings = normalized
	s.publishLocked()
	s.mu.Unlock()
	return normalized, nil
}

// Settings returns the current settings.
func (s *Session) Settings() chat.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// SetMinimized toggles the view flag; it never touches the conversation.
func (s *Session) SetMinimized(minimized bool) {
	s.mu.Lock()
	s.minimized = minimized
	s.publishLocked()
	s.mu.Unlock()
}

// State returns the conversational state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a copy of the message log.
func (s *Session) Messages() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages...)
}

// History returns a copy of the history log.
func (s *Session) History() []chat.HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.HistoryEntry{}, s.entries...)
}

// Snapshot copies the full renderable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Transcript renders the log as "You:"/"Assistant:" lines.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcriptLocked()
}

// CopyTranscript returns the transcript and then appends the copied notice.
func (s *Session) CopyTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	text := s.transcriptLocked()
	s.appendLocked(chat.SenderBot, noticeCopied, s.emojiLocked("📋"))
	s.publishLocked()
	return text
}

// Export serializes the message log for download.
func (s *Session) Export() ([]byte, error) {
	s.mu.Lock()
	doc := ExportDocument{
		Timestamp: chat.FormatISO(s.now()),
		Portfolio: s.profile.Name,
		Messages:  append([]chat.Message(nil), s.messages...),
	}
	s.mu.Unlock()
	return json.MarshalIndent(doc, "", "  ")
}

// ExportFileName is the suggested download name for Export.
func (s *Session) ExportFileName() string {
	return fmt.Sprintf("chat-with-%s-%s.json", s.profile.FirstName(), s.now().UTC().Format("2006-01-02"))
}

// Subscribe registers a listener for session events. The returned cancel
// func unregisters it and closes the channel. Slow listeners miss events
// rather than blocking the session.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, defaultSubscriberSize)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(sub)
			}
		})
	}
}

// Close cancels any pending reply and disconnects subscribers.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.epoch++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
}

func (s *Session) greetingLocked() chat.Message {
	name := s.profile.FirstName()
	if name == "" {
		name = "the owner"
	}
	text := fmt.Sprintf("Hello! I'm %s's AI assistant. 👋 I can tell you about skills, experience, and projects. What would you like to know?", name)
	return s.newMessageLocked(chat.SenderBot, text, s.emojiLocked("👋"))
}

// emojiLocked 在关闭 emoji 模式时返回空串
func (s *Session) emojiLocked(emoji string) string {
	if !s.settings.EmojiMode {
		return ""
	}
	return emoji
}

func (s *Session) appendLocked(sender chat.Sender, text, emoji string) chat.Message {
	msg := s.newMessageLocked(sender, text, emoji)
	s.messages = append(s.messages, msg)
	return msg
}

func (s *Session) newMessageLocked(sender chat.Sender, text, emoji string) chat.Message {
	now := s.now()
	msg := chat.Message{
		ID:        s.nextID,
		Sender:    sender,
		Text:      text,
		Time:      now.Format(chat.DisplayTimeLayout),
		Type:      "text",
		Emoji:     emoji,
		CreatedAt: now,
	}
	s.nextID++
	return msg
}

func (s *Session) persistLocked(ctx context.Context) {
	if err := s.history.Save(ctx, append([]chat.HistoryEntry{}, s.entries...)); err != nil {
		s.logger.Warn("persist history failed", zap.Error(err))
	}
}

func (s *Session) transcriptLocked() string {
	lines := make([]string, 0, len(s.messages))
	for _, msg := range s.messages {
		who := "Assistant"
		if msg.Sender == chat.SenderUser {
			who = "You"
		}
		lines = append(lines, who+": "+msg.Text)
	}
	return strings.Join(lines, "\n\n")
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:        s.id,
		State:     s.state,
		Typing:    s.state == StateAwaitingResponse,
		Minimized: s.minimized,
		Settings:  s.settings,
		Messages:  append([]chat.Message(nil), s.messages...),
		History:   append([]chat.HistoryEntry{}, s.entries...),
	}
}

func (s *Session) publishLocked() {
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.snapshotLocked()
	s.broadcastLocked(Event{Type: EventSnapshot, Snapshot: &snap})
}

func (s *Session) broadcastLocked(evt Event) {
	for _, ch := range s.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

func normalizeSettings(settings chat.Settings) (chat.Settings, error) {
	p, err := chat.ParsePersonality(string(settings.Personality))
	if err != nil {
		return chat.Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	settings.Personality = p
	if settings.ResponseSpeed == 0 {
		settings.ResponseSpeed = chat.SpeedNormal
	}
	if err := settings.Validate(); err != nil {
		return chat.Settings{}, fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	if settings.Language == "" {
		settings.Language = "english"
	}
	return settings, nil
}
