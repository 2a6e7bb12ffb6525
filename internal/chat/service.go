package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"garagist/internal/ai"
	"garagist/internal/complaints"
)

// Service wires the aggregator, composer and relay behind the two
// triggers the HTTP layer exposes: create-conversation and send-message.
// It assumes the caller enforces at most one in-flight relay per session.
type Service struct {
	repo       Repo
	agg        *Aggregator
	relay      *Relay
	complaints ComplaintReader
	vehicles   VehicleReader
	log        *zap.SugaredLogger
}

func NewService(repo Repo, agg *Aggregator, relay *Relay,
	cr ComplaintReader, vr VehicleReader, log *zap.SugaredLogger) *Service {
	return &Service{
		repo:       repo,
		agg:        agg,
		relay:      relay,
		complaints: cr,
		vehicles:   vr,
		log:        log,
	}
}

// CreateSession opens a conversation about a complaint and appends the AI
// greeting as its first turn. The greeting is single-shot only and is
// always persisted, canned or not.
func (s *Service) CreateSession(ctx context.Context, complaintID int64, title string) (*Session, *Turn, error) {
	complaint, err := s.complaints.Get(ctx, complaintID)
	if err != nil {
		return nil, nil, fmt.Errorf("load complaint: %w", err)
	}

	if title == "" {
		title = "Chat about " + complaint.Category.Display()
	}

	sess := &Session{
		PublicID:    uuid.New(),
		ComplaintID: complaintID,
		Title:       title,
		Active:      true,
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	greeting := s.generateGreeting(ctx, sess, complaint)
	turn, err := s.repo.AppendTurn(ctx, sess.ID, ai.RoleAssistant, greeting)
	if err != nil {
		return nil, nil, fmt.Errorf("store greeting: %w", err)
	}

	s.log.Infow("chat session created", "session_id", sess.ID, "complaint_id", complaintID)
	return sess, turn, nil
}

// generateGreeting never fails and never returns an empty string: model
// problems degrade to a canned greeting naming the vehicle and category.
func (s *Service) generateGreeting(ctx context.Context, sess *Session, complaint *complaints.Complaint) string {
	bundle, err := s.agg.Build(ctx, sess, 0)
	if err != nil {
		s.log.Errorw("context build failed for greeting", "session_id", sess.ID, "err", err)
		return s.cannedGreeting(ctx, complaint)
	}

	reply := s.relay.Respond(ctx, ComposeGreeting(bundle))
	if reply.Outcome == OutcomeSucceeded && strings.TrimSpace(reply.Text) != "" {
		return reply.Text
	}
	return s.cannedGreeting(ctx, complaint)
}

func (s *Service) cannedGreeting(ctx context.Context, complaint *complaints.Complaint) string {
	displayName := "vehicle"
	if summary, err := s.vehicles.Summary(ctx, complaint.CarID); err == nil {
		displayName = summary.DisplayName
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hello! I'm your AI automotive mechanic assistant.\n\n")
	fmt.Fprintf(&b, "I've reviewed your complaint about your %s.\n\n", displayName)
	fmt.Fprintf(&b, "Based on the information provided, your issue has been classified as: %s (Confidence: %.1f%%)\n",
		complaint.Category.Display(), complaint.Confidence*100)
	if complaint.Critical() {
		b.WriteString("\nSAFETY ALERT: This complaint involves a crash or fire. " +
			"Please prioritize a professional inspection immediately.\n")
	}
	b.WriteString("\nI'm here to help you understand what might be causing this problem " +
		"and guide you on the next steps. Please feel free to provide more details " +
		"or ask any questions about your vehicle's issue.")
	return b.String()
}

// SendMessage appends the user turn and streams the assistant reply into
// sink. Closed sessions are rejected before any model call and before any
// turn is created.
func (s *Service) SendMessage(ctx context.Context, sessionID int64, text string, sink Sink) (Reply, error) {
	sess, prior, err := s.prepare(ctx, sessionID, text)
	if err != nil {
		return Reply{}, err
	}

	bundle, err := s.agg.Build(ctx, sess, 0)
	if err != nil {
		return Reply{}, err
	}

	return s.relay.Stream(ctx, sess.ID, ComposeMessages(bundle, prior, text), sink)
}

// SendMessageOnce is the single-shot variant. Only a succeeded reply is
// persisted as an assistant turn; unavailable and failed replies are
// returned to the caller without creating a turn.
func (s *Service) SendMessageOnce(ctx context.Context, sessionID int64, text string) (Reply, error) {
	sess, prior, err := s.prepare(ctx, sessionID, text)
	if err != nil {
		return Reply{}, err
	}

	bundle, err := s.agg.Build(ctx, sess, 0)
	if err != nil {
		return Reply{}, err
	}

	reply := s.relay.Respond(ctx, ComposeMessages(bundle, prior, text))
	if reply.Outcome == OutcomeSucceeded {
		if _, err := s.repo.AppendTurn(ctx, sess.ID, ai.RoleAssistant, reply.Text); err != nil {
			return Reply{}, fmt.Errorf("persist assistant turn: %w", err)
		}
	}
	return reply, nil
}

// prepare validates the session, captures the replay window from before
// the new message, then appends the user turn.
func (s *Service) prepare(ctx context.Context, sessionID int64, text string) (*Session, []Turn, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if !sess.Active {
		return nil, nil, ErrSessionClosed
	}

	prior, err := s.repo.ListTurns(ctx, sess.ID, replayTurnLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("load prior turns: %w", err)
	}

	if _, err := s.repo.AppendTurn(ctx, sess.ID, ai.RoleUser, text); err != nil {
		return nil, nil, fmt.Errorf("store user turn: %w", err)
	}
	return sess, prior, nil
}

// Close marks a session closed. Closed sessions reject new messages.
func (s *Service) Close(ctx context.Context, sessionID int64) (*Session, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !sess.Active {
		return nil, ErrSessionClosed
	}
	if err := s.repo.SetSessionActive(ctx, sessionID, false); err != nil {
		return nil, err
	}
	return s.repo.GetSession(ctx, sessionID)
}

// Reopen reactivates a closed session.
func (s *Service) Reopen(ctx context.Context, sessionID int64) (*Session, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Active {
		return nil, ErrSessionActive
	}
	if err := s.repo.SetSessionActive(ctx, sessionID, true); err != nil {
		return nil, err
	}
	return s.repo.GetSession(ctx, sessionID)
}

// History returns the full turn list, oldest-first.
func (s *Service) History(ctx context.Context, sessionID int64) (*Session, []Turn, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	turns, err := s.repo.ListTurns(ctx, sessionID, 0)
	if err != nil {
		return nil, nil, err
	}
	return sess, turns, nil
}

// VehicleHistoryText exposes the standalone history rendering.
func (s *Service) VehicleHistoryText(ctx context.Context, carID int64) (string, error) {
	return s.agg.VehicleHistoryText(ctx, carID)
}

// Get returns one session.
func (s *Service) Get(ctx context.Context, sessionID int64) (*Session, error) {
	return s.repo.GetSession(ctx, sessionID)
}

// List returns sessions matching the filter.
func (s *Service) List(ctx context.Context, f SessionFilter) ([]Session, error) {
	return s.repo.ListSessions(ctx, f)
}
