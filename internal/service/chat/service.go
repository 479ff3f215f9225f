package chat

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/profile-assistant/backend/internal/model/chat"
	"github.com/zhouzirui/profile-assistant/backend/internal/model/profile"
	"github.com/zhouzirui/profile-assistant/backend/internal/service/history"
	"github.com/zhouzirui/profile-assistant/backend/internal/service/speech"
	"github.com/zhouzirui/profile-assistant/backend/internal/storage"
)

// Config holds service wide session defaults.
type Config struct {
	Timing   Timing
	Settings chat.Settings
	// KeyPrefix namespaces persisted keys, e.g. "portfolio:" -> "portfolio:<id>:chatbot_history".
	KeyPrefix string
}

// Service keeps the live sessions keyed by id.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	profiles    profile.Store
	generator   Generator
	store       storage.Store
	synthesizer speech.Synthesizer
	scheduler   Scheduler
	cfg         Config
	logger      *zap.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithSynthesizer plays bot replies on the host when voice is enabled.
func WithSynthesizer(synth speech.Synthesizer) ServiceOption {
	return func(s *Service) { s.synthesizer = synth }
}

// WithScheduler swaps the reply timer, mostly for tests.
func WithScheduler(scheduler Scheduler) ServiceOption {
	return func(s *Service) { s.scheduler = scheduler }
}

// NewService bootstraps the session registry. A nil store keeps everything in memory.
func NewService(profiles profile.Store, generator Generator, store storage.Store, cfg Config, logger *zap.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if store == nil {
		store = storage.NewMemoryStore()
	}
	if cfg.Settings == (chat.Settings{}) {
		cfg.Settings = chat.DefaultSettings()
	}
	s := &Service{
		sessions:  make(map[string]*Session),
		profiles:  profiles,
		generator: generator,
		store:     store,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "chat")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession opens a session. An empty id allocates a fresh one; a known
// id returns the live session; an unknown but valid id resumes the history
// persisted under it.
func (s *Service) CreateSession(ctx context.Context, id string, settings *chat.Settings) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, ErrInvalidSessionID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.sessions[id]; ok {
		if settings != nil {
			if _, err := existing.UpdateSettings(*settings); err != nil {
				return nil, err
			}
		}
		return existing, nil
	}

	if settings == nil {
		defaults := s.cfg.Settings
		settings = &defaults
	}

	session, err := NewSession(ctx, Options{
		ID:          id,
		Profile:     s.profiles.Get(),
		Generator:   s.generator,
		History:     history.NewBridge(s.store, s.cfg.KeyPrefix+id, s.logger),
		Synthesizer: s.synthesizer,
		Scheduler:   s.scheduler,
		Timing:      s.cfg.Timing,
		Settings:    settings,
		Logger:      s.logger,
	})
	if err != nil {
		return nil, err
	}

	s.sessions[id] = session
	s.logger.Info("session created", zap.String("session_id", id), zap.Int("resumed_entries", len(session.History())))
	return session, nil
}

// GetSession retrieves a live session by identifier.
func (s *Service) GetSession(_ context.Context, id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// CloseSession drops a live session. Persisted history stays in storage.
func (s *Service) CloseSession(_ context.Context, id string) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	session.Close()
	return nil
}

// Shutdown closes every live session.
func (s *Service) Shutdown() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()
	for _, session := range sessions {
		session.Close()
	}
}

// Profile returns the knowledge base sessions answer from.
func (s *Service) Profile() profile.Profile {
	return s.profiles.Get()
}
