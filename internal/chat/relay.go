package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"garagist/internal/ai"
)

// Outcome classifies one relay invocation. Callers branch on it instead
// of inspecting the reply text.
type Outcome int

const (
	OutcomeUnavailable Outcome = iota
	OutcomeFailed
	OutcomeSucceeded
)

// Reply is the result of one model invocation. Text is user-visible in
// every outcome; Err is set only for OutcomeFailed.
type Reply struct {
	Outcome Outcome
	Text    string
	Err     error
}

// Sink receives response chunks in arrival order. A sink error means the
// caller is gone; the relay stops and discards its buffer.
type Sink func(chunk string) error

const unavailableNotice = "I apologize, but the AI mechanic service is currently unavailable. " +
	"Please make sure an API credential is configured and try again later."

func failureApology(err error) string {
	return fmt.Sprintf("I apologize, but I encountered an error while processing your message: %v. "+
		"Please try again in a moment.", err)
}

// Relay invokes the external model and forwards/persists its output. The
// assistant turn appended here is the only entity the pipeline creates.
type Relay struct {
	model ai.ModelClient
	repo  Repo
	log   *zap.SugaredLogger
}

func NewRelay(model ai.ModelClient, repo Repo, log *zap.SugaredLogger) *Relay {
	return &Relay{model: model, repo: repo, log: log}
}

// Respond is the single-shot mode. It never persists; callers decide what
// to do with each outcome.
func (r *Relay) Respond(ctx context.Context, msgs []ai.Message) Reply {
	if !r.model.Available() {
		return Reply{Outcome: OutcomeUnavailable, Text: unavailableNotice}
	}

	text, err := r.model.Complete(ctx, msgs)
	if err != nil {
		r.log.Errorw("model completion failed", "err", err)
		return Reply{Outcome: OutcomeFailed, Text: failureApology(err), Err: err}
	}
	return Reply{Outcome: OutcomeSucceeded, Text: text}
}

// Stream is the streaming mode. Chunks are forwarded to the sink in
// arrival order while being accumulated; once the model signals
// completion the accumulated text is persisted as a new assistant turn.
// Persistence happens strictly after the last chunk, so a caller that
// re-reads history mid-stream may not see the turn yet.
//
// Cancellation (context done or sink error) discards the buffer: no
// partial assistant turn is ever stored. A mid-stream model failure
// forwards an apology chunk and then persists, so the concatenation of
// forwarded chunks always equals the stored text for completed streams.
func (r *Relay) Stream(ctx context.Context, sessionID int64, msgs []ai.Message, sink Sink) (Reply, error) {
	if !r.model.Available() {
		return r.finishStream(ctx, sessionID, sink, unavailableNotice,
			Reply{Outcome: OutcomeUnavailable, Text: unavailableNotice})
	}

	stream, err := r.model.Stream(ctx, msgs)
	if err != nil {
		r.log.Errorw("model stream failed to start", "err", err)
		apology := failureApology(err)
		return r.finishStream(ctx, sessionID, sink, apology,
			Reply{Outcome: OutcomeFailed, Text: apology, Err: err})
	}
	defer stream.Close()

	var buf strings.Builder
	outcome := OutcomeSucceeded
	var modelErr error

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				// caller gone; treat as "no completion signal received"
				return Reply{}, ctx.Err()
			}
			r.log.Errorw("model stream failed mid-response", "err", err)
			apology := failureApology(err)
			if serr := sink(apology); serr != nil {
				return Reply{}, serr
			}
			buf.WriteString(apology)
			outcome, modelErr = OutcomeFailed, err
			break
		}
		if chunk == "" {
			continue
		}
		if serr := sink(chunk); serr != nil {
			return Reply{}, serr
		}
		buf.WriteString(chunk)
	}

	full := buf.String()
	if _, err := r.repo.AppendTurn(ctx, sessionID, ai.RoleAssistant, full); err != nil {
		return Reply{}, fmt.Errorf("persist assistant turn: %w", err)
	}
	return Reply{Outcome: outcome, Text: full, Err: modelErr}, nil
}

// finishStream delivers a degraded single-chunk response and persists it,
// keeping the chunks==stored invariant for the caller.
func (r *Relay) finishStream(ctx context.Context, sessionID int64, sink Sink, text string, reply Reply) (Reply, error) {
	if err := sink(text); err != nil {
		return Reply{}, err
	}
	if _, err := r.repo.AppendTurn(ctx, sessionID, ai.RoleAssistant, text); err != nil {
		return Reply{}, fmt.Errorf("persist assistant turn: %w", err)
	}
	return reply, nil
}
