package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"garagist/internal/ai"
)

// fakeModel scripts one completion or one chunk sequence.
type fakeModel struct {
	available bool
	text      string
	err       error

	chunks    []string
	streamErr error
	called    bool
}

func (f *fakeModel) Available() bool { return f.available }

func (f *fakeModel) Complete(_ context.Context, _ []ai.Message) (string, error) {
	f.called = true
	return f.text, f.err
}

func (f *fakeModel) Stream(_ context.Context, _ []ai.Message) (ai.TokenStream, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	return &fakeStream{chunks: f.chunks, failWith: f.streamErr}, nil
}

type fakeStream struct {
	chunks   []string
	failWith error
	pos      int
}

func (s *fakeStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		if s.failWith != nil {
			return "", s.failWith
		}
		return "", io.EOF
	}
	chunk := s.chunks[s.pos]
	s.pos++
	return chunk, nil
}

func (s *fakeStream) Close() error { return nil }

func newTestRelay(model ai.ModelClient, store *memStore) *Relay {
	return NewRelay(model, store, zap.NewNop().Sugar())
}

func collectSink(chunks *[]string) Sink {
	return func(chunk string) error {
		*chunks = append(*chunks, chunk)
		return nil
	}
}

func TestStreamForwardsAndPersists(t *testing.T) {
	store := newMemStore()
	model := &fakeModel{available: true, chunks: []string{"Hello", ", ", "world"}}
	relay := newTestRelay(model, store)

	var got []string
	reply, err := relay.Stream(context.Background(), 1, nil, collectSink(&got))
	require.NoError(t, err)

	assert.Equal(t, OutcomeSucceeded, reply.Outcome)
	assert.Equal(t, []string{"Hello", ", ", "world"}, got)
	assert.Equal(t, "Hello, world", reply.Text)

	turns, _ := store.ListTurns(context.Background(), 1, 0)
	require.Len(t, turns, 1)
	assert.Equal(t, ai.RoleAssistant, turns[0].Role)
	assert.Equal(t, strings.Join(got, ""), turns[0].Text)
}

func TestStreamUnavailable(t *testing.T) {
	store := newMemStore()
	relay := newTestRelay(&fakeModel{available: false}, store)

	var got []string
	reply, err := relay.Stream(context.Background(), 1, nil, collectSink(&got))
	require.NoError(t, err)

	assert.Equal(t, OutcomeUnavailable, reply.Outcome)
	require.Len(t, got, 1)
	assert.Equal(t, unavailableNotice, got[0])

	turns, _ := store.ListTurns(context.Background(), 1, 0)
	require.Len(t, turns, 1)
	assert.Equal(t, unavailableNotice, turns[0].Text)
}

func TestStreamMidwayFailure(t *testing.T) {
	store := newMemStore()
	boom := errors.New("connection reset")
	model := &fakeModel{available: true, chunks: []string{"Partial "}, streamErr: boom}
	relay := newTestRelay(model, store)

	var got []string
	reply, err := relay.Stream(context.Background(), 1, nil, collectSink(&got))
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, reply.Outcome)
	assert.ErrorIs(t, reply.Err, boom)
	require.Len(t, got, 2)
	assert.Equal(t, "Partial ", got[0])
	assert.Contains(t, got[1], "I apologize")

	// persisted text equals the concatenation of forwarded chunks
	turns, _ := store.ListTurns(context.Background(), 1, 0)
	require.Len(t, turns, 1)
	assert.Equal(t, strings.Join(got, ""), turns[0].Text)
}

func TestStreamCancellationDiscards(t *testing.T) {
	store := newMemStore()
	model := &fakeModel{available: true, chunks: []string{"Partial "}, streamErr: context.Canceled}
	relay := newTestRelay(model, store)

	ctx, cancel := context.WithCancel(context.Background())
	sink := func(chunk string) error {
		cancel()
		return nil
	}

	_, err := relay.Stream(ctx, 1, nil, sink)
	assert.ErrorIs(t, err, context.Canceled)

	turns, _ := store.ListTurns(context.Background(), 1, 0)
	assert.Empty(t, turns)
}

func TestStreamSinkErrorDiscards(t *testing.T) {
	store := newMemStore()
	model := &fakeModel{available: true, chunks: []string{"Hello", "world"}}
	relay := newTestRelay(model, store)

	gone := errors.New("client went away")
	sink := func(chunk string) error { return gone }

	_, err := relay.Stream(context.Background(), 1, nil, sink)
	assert.ErrorIs(t, err, gone)

	turns, _ := store.ListTurns(context.Background(), 1, 0)
	assert.Empty(t, turns)
}

func TestStreamStartFailure(t *testing.T) {
	store := newMemStore()
	boom := errors.New("dial tcp: refused")
	relay := newTestRelay(&fakeModel{available: true, err: boom}, store)

	var got []string
	reply, err := relay.Stream(context.Background(), 1, nil, collectSink(&got))
	require.NoError(t, err)

	assert.Equal(t, OutcomeFailed, reply.Outcome)
	require.Len(t, got, 1)
	assert.Contains(t, got[0], "I apologize")

	turns, _ := store.ListTurns(context.Background(), 1, 0)
	require.Len(t, turns, 1)
	assert.Equal(t, got[0], turns[0].Text)
}

func TestRespondNeverPersists(t *testing.T) {
	store := newMemStore()
	relay := newTestRelay(&fakeModel{available: true, text: "diagnosis"}, store)

	reply := relay.Respond(context.Background(), nil)
	assert.Equal(t, OutcomeSucceeded, reply.Outcome)
	assert.Equal(t, "diagnosis", reply.Text)

	turns, _ := store.ListTurns(context.Background(), 1, 0)
	assert.Empty(t, turns)
}

func TestRespondFailure(t *testing.T) {
	store := newMemStore()
	boom := errors.New("rate limited")
	relay := newTestRelay(&fakeModel{available: true, err: boom}, store)

	reply := relay.Respond(context.Background(), nil)
	assert.Equal(t, OutcomeFailed, reply.Outcome)
	assert.ErrorIs(t, reply.Err, boom)
	assert.Contains(t, reply.Text, "I apologize")
}

func TestRespondUnavailable(t *testing.T) {
	store := newMemStore()
	model := &fakeModel{available: false}
	relay := newTestRelay(model, store)

	reply := relay.Respond(context.Background(), nil)
	assert.Equal(t, OutcomeUnavailable, reply.Outcome)
	assert.Equal(t, unavailableNotice, reply.Text)
	assert.False(t, model.called)
}
