package moderation_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/projectamerika/mayflower/internal/ledger"
	"github.com/projectamerika/mayflower/internal/moderation"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	t.Parallel()

	t.Run("clean record", func(t *testing.T) {
		t.Parallel()

		summary := moderation.Render(moderation.View{
			UserID:   42,
			Username: "Foo",
			Warnings: ledger.WarningList{},
		})

		assert.Equal(t, "Manage Foo", summary.Title)
		assert.Equal(t, "No", summary.Banned)
		assert.Equal(t, "0 warning(s)\n\n```None.```", summary.Warnings)
		assert.Empty(t, summary.Removable)

		actions := make(map[moderation.Action]moderation.ActionOption)
		for _, option := range summary.Actions {
			actions[option.Action] = option
		}

		assert.Contains(t, actions, moderation.ActionBan)
		assert.NotContains(t, actions, moderation.ActionUnban)
		assert.True(t, actions[moderation.ActionRemoveWarning].Disabled)
	})

	t.Run("banned with warnings", func(t *testing.T) {
		t.Parallel()

		summary := moderation.Render(moderation.View{
			UserID:   42,
			Username: "Foo",
			Ban:      &ledger.BanRecord{Reason: "Exploiting"},
			Warnings: ledger.WarningList{"a", "b"},
		})

		assert.Equal(t, "Yes - Exploiting", summary.Banned)
		assert.Equal(t, "2 warning(s)\n\n```1. a\n2. b```", summary.Warnings)
		assert.Equal(t, []moderation.WarningOption{
			{Index: 0, Label: "1.", Reason: "a"},
			{Index: 1, Label: "2.", Reason: "b"},
		}, summary.Removable)

		var hasUnban bool
		for _, option := range summary.Actions {
			if option.Action == moderation.ActionUnban {
				hasUnban = true
			}

			if option.Action == moderation.ActionRemoveWarning {
				assert.False(t, option.Disabled)
			}
		}

		assert.True(t, hasUnban)
	})
}

func TestActionNeedsReason(t *testing.T) {
	t.Parallel()

	assert.True(t, moderation.ActionKick.NeedsReason())
	assert.True(t, moderation.ActionBan.NeedsReason())
	assert.True(t, moderation.ActionAddWarning.NeedsReason())
	assert.False(t, moderation.ActionUnban.NeedsReason())
	assert.False(t, moderation.ActionRemoveWarning.NeedsReason())
	assert.False(t, moderation.ActionCancel.NeedsReason())
}

func TestRenderFlattensWarnings(t *testing.T) {
	t.Parallel()

	summary := moderation.Render(moderation.View{
		UserID:   42,
		Username: "Foo",
		Warnings: ledger.WarningList{"spam\n\nin   chat", strings.Repeat("y", 300)},
	})

	assert.Equal(t, "2 warning(s)\n\n```1. spam in chat\n2. "+strings.Repeat("y", 194)+"...```", summary.Warnings)
	assert.Equal(t, "spam\n\nin   chat", summary.Removable[0].Reason)
}

func TestRenderCapsWarningsField(t *testing.T) {
	t.Parallel()

	warnings := make(ledger.WarningList, 20)
	for i := range warnings {
		warnings[i] = strings.Repeat("é", 150)
	}

	summary := moderation.Render(moderation.View{UserID: 42, Username: "Foo", Warnings: warnings})

	assert.Equal(t, moderation.MaxFieldLength, utf8.RuneCountInString(summary.Warnings))
	assert.True(t, strings.HasSuffix(summary.Warnings, "...```"))
	assert.Len(t, summary.Removable, 20)
}
