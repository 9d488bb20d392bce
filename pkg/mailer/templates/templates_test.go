package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_VerificationRequest(t *testing.T) {
	data := NewVerificationRequestData("pulse", "ops@example.com", "Ivan <Petrov>", "", 123456789,
		WithTime(time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)))

	subject, text, html, err := Render(VerificationRequest, data)
	require.NoError(t, err)
	assert.Contains(t, subject, "[pulse]")
	assert.Contains(t, text, "ID: 123456789")
	assert.Contains(t, text, "нет username")
	assert.Contains(t, text, "01 March 2024, 10:30")
	assert.Contains(t, html, "Ivan &lt;Petrov&gt;", "html output is escaped")
}

func TestRender_VerificationDecided(t *testing.T) {
	data := NewVerificationDecidedData("pulse", "ops@example.com", "Ivan", "ivan", 42, "rejected", "@boss")

	subject, text, _, err := Render(VerificationDecided, data)
	require.NoError(t, err)
	assert.Contains(t, subject, "отклонена")
	assert.Contains(t, text, "Администратор: @boss")
	assert.Contains(t, text, "Время: —")
}

func TestRender_UnknownTemplate(t *testing.T) {
	_, _, _, err := Render("nope", map[string]any{})
	assert.Error(t, err)
}
