// Package gateway is the conversational facade: it owns session
// resolution, consent checks, retrieval augmentation, and transcript
// archiving around the orchestrator's completion loop.
package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/chat"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/orchestrator"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/permission"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/retrieval"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/session"
	"github.com/Arash-Rostami/AI-Agent-sub000/pkg/tools"
)

// DefaultFallbackText is what callers see when orchestration fails
// unrecoverably. Never an error trace.
const DefaultFallbackText = "I'm having trouble answering right now. Please try again in a moment."

// DefaultEmptyPromptText answers an empty message without a provider call.
const DefaultEmptyPromptText = "I didn't catch that. What would you like to ask?"

// Reply is one answer to the caller.
type Reply struct {
	SessionID string         `json:"session_id"`
	Text      string         `json:"text"`
	Sources   []tools.Source `json:"sources,omitempty"`
}

// AskParams is one conversational request.
type AskParams struct {
	Identity    string
	SessionID   string
	Message     string
	Attachments []orchestrator.Attachment
	Mode        permission.Mode
}

// Config wires a Service.
type Config struct {
	Orchestrator *orchestrator.Orchestrator
	Sessions     *session.Store
	Archiver     *session.Archiver // nil disables archiving
	Consent      *permission.ConsentScanner
	Index        *retrieval.Index // nil disables augmentation
	TopK         int              // augmentation hits per query, 0 means retrieval.DefaultTopK

	FallbackText    string
	EmptyPromptText string
	GreetingPrompt  string
}

// Service is the gateway facade.
type Service struct {
	cfg Config
}

// New creates a Service.
func New(cfg Config) (*Service, error) {
	if cfg.Orchestrator == nil || cfg.Sessions == nil {
		return nil, fmt.Errorf("orchestrator and session store are required")
	}
	if cfg.FallbackText == "" {
		cfg.FallbackText = DefaultFallbackText
	}
	if cfg.EmptyPromptText == "" {
		cfg.EmptyPromptText = DefaultEmptyPromptText
	}
	if cfg.GreetingPrompt == "" {
		cfg.GreetingPrompt = "Greet the user warmly in one or two sentences and offer your help."
	}
	if cfg.TopK <= 0 {
		cfg.TopK = retrieval.DefaultTopK
	}
	return &Service{cfg: cfg}, nil
}

// Greet produces the zero-input opening message for a fresh conversation.
func (s *Service) Greet(ctx context.Context, identity string, mode permission.Mode) (Reply, error) {
	sessionID := s.cfg.Sessions.Resolve(identity)

	text, err := s.cfg.Orchestrator.Single(ctx, identity,
		[]chat.Message{chat.NewUserMessage(s.cfg.GreetingPrompt)}, mode)
	if err != nil {
		log.Error().Err(err).Str("identity", identity).Msg("Greeting generation failed")
		return Reply{SessionID: sessionID, Text: s.cfg.FallbackText}, nil
	}

	return Reply{SessionID: sessionID, Text: text}, nil
}

// Ask runs one conversation turn end to end.
func (s *Service) Ask(ctx context.Context, params AskParams) (Reply, error) {
	sessionID := params.SessionID
	if sessionID == "" {
		sessionID = s.cfg.Sessions.Resolve(params.Identity)
	} else if err := s.cfg.Sessions.Bind(params.Identity, sessionID); err != nil {
		return Reply{}, err
	}

	if strings.TrimSpace(params.Message) == "" {
		return Reply{SessionID: sessionID, Text: s.cfg.EmptyPromptText}, nil
	}

	history := s.cfg.Sessions.History(sessionID)
	userMsg := chat.NewUserMessage(params.Message)

	mode := params.Mode
	if mode.Restricted && s.cfg.Consent != nil {
		// The current message may itself be the affirmation.
		if s.cfg.Consent.ShouldLiftRestriction(append(chat.CloneHistory(history), userMsg)) {
			log.Info().Str("session_id", sessionID).Msg("Restriction lifted by informed consent for this turn")
			mode.Restricted = false
		}
	}

	turn := append(chat.CloneHistory(history), userMsg)
	if block := s.augment(ctx, params.Message); block != "" {
		turn = append(turn[:len(turn)-1], chat.NewUserMessage(block), userMsg)
	}

	result, err := s.cfg.Orchestrator.Run(ctx, orchestrator.RunParams{
		Identity:    params.Identity,
		History:     turn,
		Attachments: params.Attachments,
		Mode:        mode,
	})
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Orchestration failed")
		return Reply{SessionID: sessionID, Text: s.cfg.FallbackText}, nil
	}

	persisted := append([]chat.Message{userMsg}, result.ToolTrace...)
	persisted = append(persisted, chat.NewAssistantMessage(result.Text))
	if err := s.cfg.Sessions.Append(sessionID, persisted...); err != nil {
		log.Error().Err(err).Str("session_id", sessionID).Msg("Failed to persist turn")
	}

	if s.cfg.Archiver != nil {
		s.cfg.Archiver.Upsert(sessionID, params.Identity, s.cfg.Sessions.History(sessionID))
	}

	return Reply{SessionID: sessionID, Text: result.Text, Sources: result.Sources}, nil
}

// SyncRetrievalIndex rebuilds the knowledge base from its document source.
func (s *Service) SyncRetrievalIndex(ctx context.Context) (retrieval.Stats, error) {
	if s.cfg.Index == nil {
		return retrieval.Stats{}, fmt.Errorf("retrieval index is not configured")
	}
	return s.cfg.Index.Rebuild(ctx)
}

// NewSession mints a fresh session for identity, dropping any prior binding.
func (s *Service) NewSession(identity string) string {
	id := session.NewSessionID()
	if err := s.cfg.Sessions.Bind(identity, id); err != nil {
		// Only possible with a malformed generated ID.
		return s.cfg.Sessions.Resolve(identity)
	}
	return id
}

// ClearSession drops a session's history.
func (s *Service) ClearSession(sessionID string) {
	s.cfg.Sessions.Clear(sessionID)
}

// augment searches the knowledge base and formats hits as a context block
// inserted before the user's message. Search failures degrade to no
// augmentation.
func (s *Service) augment(ctx context.Context, query string) string {
	if s.cfg.Index == nil {
		return ""
	}

	hits, err := s.cfg.Index.Search(ctx, query, s.cfg.TopK)
	if err != nil {
		log.Warn().Err(err).Msg("Knowledge base search failed, continuing without context")
		return ""
	}
	if len(hits) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Relevant reference material:\n")
	for _, hit := range hits {
		fmt.Fprintf(&b, "\n[%s]\n%s\n", hit.Chunk.Document, hit.Chunk.Text)
	}
	return b.String()
}
