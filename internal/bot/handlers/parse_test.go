package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		cmd  string
		args string
	}{
		{"/start", "start", ""},
		{"/Resumen@hotel_bot", "resumen", ""},
		{"/estado ord_1 approved", "estado", "ord_1 approved"},
		{"/responder@hotel_bot tok_1_a  Sí, hay cuna ", "responder", "tok_1_a  Sí, hay cuna"},
		{"hola", "", ""},
	}
	for _, tt := range tests {
		cmd, args := ParseCommand(tt.text)
		assert.Equal(t, tt.cmd, cmd, tt.text)
		assert.Equal(t, tt.args, args, tt.text)
	}
}

func TestParseStatusText(t *testing.T) {
	id, status, ok := ParseStatusText("ord_abc123 Approved")
	assert.True(t, ok)
	assert.Equal(t, "ord_abc123", id)
	assert.Equal(t, "approved", status)

	_, _, ok = ParseStatusText("hola que tal")
	assert.False(t, ok)

	_, _, ok = ParseStatusText("ord_1 approved ahora")
	assert.False(t, ok)
}

func TestParseStatusArgs(t *testing.T) {
	id, status, ok := ParseStatusArgs(" ord_1   CANCELED ")
	assert.True(t, ok)
	assert.Equal(t, "ord_1", id)
	assert.Equal(t, "canceled", status)

	_, _, ok = ParseStatusArgs("ord_1")
	assert.False(t, ok)
}

func TestParseResponderArgs(t *testing.T) {
	token, answer, ok := ParseResponderArgs("tok_1700000000000_ab12 Sí, hay cochera")
	assert.True(t, ok)
	assert.Equal(t, "tok_1700000000000_ab12", token)
	assert.Equal(t, "Sí, hay cochera", answer)

	_, _, ok = ParseResponderArgs("tok_1")
	assert.False(t, ok)
	_, _, ok = ParseResponderArgs("ord_1 hola")
	assert.False(t, ok)
}

func TestTokenFromPrompt(t *testing.T) {
	assert.Equal(t, "tok_17_ab", TokenFromPrompt(ReplyPrompt+"\nToken: tok_17_ab"))
	assert.Equal(t, "", TokenFromPrompt("otro mensaje"))
}

func TestParseCallbacks(t *testing.T) {
	id, status, ok := ParseStatusCallback("status:ord_1:confirmada")
	assert.True(t, ok)
	assert.Equal(t, "ord_1", id)
	assert.Equal(t, "confirmada", status)

	_, _, ok = ParseStatusCallback("status:ord_1")
	assert.False(t, ok)

	token, ok := ParseReplyCallback("reply:tok_17_ab")
	assert.True(t, ok)
	assert.Equal(t, "tok_17_ab", token)

	_, ok = ParseReplyCallback("reply:<script>")
	assert.False(t, ok)
}
