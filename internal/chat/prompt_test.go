package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garagist/internal/ai"
	"garagist/internal/cars"
)

func promptBundle() *ContextBundle {
	return &ContextBundle{
		Vehicle: cars.Summary{DisplayName: "2015 Honda Civic", LicensePlate: "XY987Z"},
		Current: ComplaintSnapshot{Category: "Engine", Status: "New", Text: "rattling on cold start"},
	}
}

func TestComposeMessagesOrdering(t *testing.T) {
	prior := []Turn{
		{Role: ai.RoleAssistant, Text: "greeting"},
		{Role: ai.RoleUser, Text: "first question"},
		{Role: ai.RoleAssistant, Text: "first answer"},
	}

	msgs := ComposeMessages(promptBundle(), prior, "follow-up")
	require.Len(t, msgs, 6)

	assert.Equal(t, ai.RoleSystem, msgs[0].Role)
	assert.Equal(t, mechanicPersona, msgs[0].Text)
	assert.Equal(t, ai.RoleSystem, msgs[1].Role)
	assert.Contains(t, msgs[1].Text, "2015 Honda Civic")

	assert.Equal(t, ai.RoleAssistant, msgs[2].Role)
	assert.Equal(t, "greeting", msgs[2].Text)
	assert.Equal(t, ai.RoleUser, msgs[3].Role)
	assert.Equal(t, ai.RoleAssistant, msgs[4].Role)

	last := msgs[len(msgs)-1]
	assert.Equal(t, ai.RoleUser, last.Role)
	assert.Equal(t, "follow-up", last.Text)
}

func TestComposeMessagesSkipsSystemTurns(t *testing.T) {
	prior := []Turn{
		{Role: ai.RoleSystem, Text: "operational note"},
		{Role: ai.RoleUser, Text: "question"},
	}

	msgs := ComposeMessages(promptBundle(), prior, "another")
	for _, m := range msgs[2:] {
		assert.NotEqual(t, "operational note", m.Text)
	}
	// persona, context, one replayed user turn, new message
	assert.Len(t, msgs, 4)
}

func TestComposeMessagesFirstExchange(t *testing.T) {
	msgs := ComposeMessages(promptBundle(), nil, "hello")
	require.Len(t, msgs, 3)
	assert.Equal(t, mechanicPersona, msgs[0].Text)
	assert.Contains(t, msgs[1].Text, "CURRENT COMPLAINT")
	assert.Equal(t, "hello", msgs[2].Text)
}

func TestComposeGreeting(t *testing.T) {
	msgs := ComposeGreeting(promptBundle())
	require.Len(t, msgs, 3)
	assert.Equal(t, ai.RoleSystem, msgs[0].Role)
	assert.Equal(t, ai.RoleSystem, msgs[1].Role)
	assert.Equal(t, ai.RoleUser, msgs[2].Role)
	assert.Equal(t, greetingInstruction, msgs[2].Text)
}
