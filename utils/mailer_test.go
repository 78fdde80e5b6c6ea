package utils

import (
	"strings"
	"testing"

	"github.com/lvt17/planex-be/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeMail(t *testing.T) {
	msg, err := ComposeMail("Planex", "noreply@planex.local", "bob@example.com", "Reset your password", "Open the link to continue.")
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "Subject: Reset your password")
	assert.Contains(t, s, "bob@example.com")
	assert.Contains(t, s, "noreply@planex.local")
	assert.Contains(t, strings.ToLower(s), "message-id:")
	assert.Contains(t, s, "text/plain")
	assert.Contains(t, s, "Open the link to continue.")
}

func TestSendMail_Disabled(t *testing.T) {
	config.Set(nil)
	assert.Error(t, SendMail("bob@example.com", "hi", "body"))
	// no-op rather than a goroutine when mail is off
	SendMailAsync("bob@example.com", "hi", "body")
}
