package alert_test

import (
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/projectamerika/mayflower/internal/bot/guilds"
	"github.com/projectamerika/mayflower/internal/bot/views/alert"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModalID(t *testing.T) {
	t.Parallel()

	id := alert.ModalID{RoleID: 555, IssuedAt: time.Unix(1700000000, 0)}
	assert.Equal(t, "salert:modal:555:1700000000", id.String())

	parsed, err := alert.ParseModalID(id.String())
	require.NoError(t, err)
	assert.Equal(t, snowflake.ID(555), parsed.RoleID)
	assert.True(t, parsed.IssuedAt.Equal(id.IssuedAt))

	assert.False(t, parsed.Expired(id.IssuedAt.Add(4*time.Minute), 5*time.Minute))
	assert.True(t, parsed.Expired(id.IssuedAt.Add(6*time.Minute), 5*time.Minute))

	for _, bad := range []string{"salert:modal:555", "manage:modal:555:1", "salert:modal:x:1", "salert:modal:555:y"} {
		_, err := alert.ParseModalID(bad)
		require.ErrorIs(t, err, alert.ErrInvalidModalID, bad)
	}
}

func TestNewModal(t *testing.T) {
	t.Parallel()

	id := alert.ModalID{RoleID: 555, IssuedAt: time.Unix(1700000000, 0)}
	modal := alert.NewModal(id)

	assert.Equal(t, id.String(), modal.CustomID)
	assert.Equal(t, "Alert Command", modal.Title)
	assert.Len(t, modal.Components, 2)
}

func TestMessages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Started DMing operation, this may take approximately 2 minutes...",
		alert.StartedMessage(2*time.Minute))

	assert.Equal(t, "Successfully sent the alert to 3 members.",
		alert.ResultMessage(&guilds.Result{Succeeded: []snowflake.ID{1, 2, 3}}))
	assert.Equal(t, "Successfully sent the alert to 1 members. Could not reach 2 members.",
		alert.ResultMessage(&guilds.Result{Succeeded: []snowflake.ID{1}, Failed: []snowflake.ID{2, 3}}))
}
