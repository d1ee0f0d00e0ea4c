package smtp

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMailer_Message(t *testing.T) {
	m := NewMailer("localhost", 25, "", "", "noreply@openquake.org")

	var buf bytes.Buffer
	_, err := m.message("owner@example.org", "A new hazard map is available", "hello").WriteTo(&buf)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "From: \"OpenQuake Platform\" <noreply@openquake.org>")
	assert.Contains(t, out, "To: owner@example.org")
	assert.Contains(t, out, "Subject: A new hazard map is available")
	assert.Contains(t, out, "Content-Type: text/plain; charset=UTF-8")
	assert.Contains(t, out, "hello")
}
