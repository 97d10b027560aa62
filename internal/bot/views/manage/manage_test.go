package manage_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/projectamerika/mayflower/internal/bot/utils"
	"github.com/projectamerika/mayflower/internal/bot/views/manage"
	"github.com/projectamerika/mayflower/internal/ledger"
	"github.com/projectamerika/mayflower/internal/moderation"
	"github.com/projectamerika/mayflower/internal/opencloud"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionCustomID(t *testing.T) {
	t.Parallel()

	customID := manage.ActionCustomID(moderation.ActionRemoveWarning, 7)
	assert.Equal(t, "manage:remove-warning:7", customID)

	action, operatorID, ok := manage.ParseActionCustomID(customID)
	require.True(t, ok)
	assert.Equal(t, moderation.ActionRemoveWarning, action)
	assert.Equal(t, snowflake.ID(7), operatorID)

	for _, bad := range []string{"manage:kick", "ultra-ban:kick:7", "manage:kick:x"} {
		_, _, ok := manage.ParseActionCustomID(bad)
		assert.False(t, ok, bad)
	}
}

func TestBuilderEmbed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		view      moderation.View
		banned    string
		warnings  string
		thumbnail string
	}{
		{
			name:     "clean user",
			view:     moderation.View{UserID: 42, Username: "Foo", Warnings: ledger.WarningList{}},
			banned:   "No",
			warnings: "0 warning(s)\n\n```None.```",
		},
		{
			name: "banned and warned",
			view: moderation.View{
				UserID:       42,
				Username:     "Foo",
				ThumbnailURL: "https://tr.rbxcdn.com/foo.png",
				Ban:          &ledger.BanRecord{Reason: "Exploiting"},
				Warnings:     ledger.WarningList{"a", "b"},
			},
			banned:    "Yes - Exploiting",
			warnings:  "2 warning(s)\n\n```1. a\n2. b```",
			thumbnail: "https://tr.rbxcdn.com/foo.png",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			embed := manage.NewBuilder(tt.view, 7).Embed()

			assert.Equal(t, "Manage Foo", embed.Title)
			require.Len(t, embed.Fields, 2)
			assert.Equal(t, "Banned", embed.Fields[0].Name)
			assert.Equal(t, tt.banned, embed.Fields[0].Value)
			assert.Equal(t, "Warnings", embed.Fields[1].Name)
			assert.Equal(t, tt.warnings, embed.Fields[1].Value)

			if tt.thumbnail == "" {
				assert.Nil(t, embed.Thumbnail)
			} else {
				require.NotNil(t, embed.Thumbnail)
				assert.Equal(t, tt.thumbnail, embed.Thumbnail.URL)
			}
		})
	}
}

func TestBuilderEmbedLongWarnings(t *testing.T) {
	t.Parallel()

	reason := strings.Repeat("x", 512)
	view := moderation.View{
		UserID:   42,
		Username: "Foo",
		Warnings: ledger.WarningList{reason, reason, reason},
	}

	embed := manage.NewBuilder(view, 7).Embed()

	require.Len(t, embed.Fields, 2)
	field := embed.Fields[1]
	assert.LessOrEqual(t, len(field.Value), 1024)
	assert.True(t, strings.HasPrefix(field.Value, "3 warning(s)\n\n```1. xxx"))
	assert.True(t, strings.HasSuffix(field.Value, "```"))
	assert.Contains(t, field.Value, "\n3. ")
}

func TestBuilderBuild(t *testing.T) {
	t.Parallel()

	view := moderation.View{UserID: 42, Username: "Foo", Warnings: ledger.WarningList{"a"}}
	update := manage.NewBuilder(view, 7).Build().Build()

	require.NotNil(t, update.Embeds)
	assert.Len(t, *update.Embeds, 1)
	require.NotNil(t, update.Components)
	assert.Len(t, *update.Components, 3)
}

func TestNewReasonModal(t *testing.T) {
	t.Parallel()

	prompt := utils.PromptID{
		Command:   "manage",
		Action:    string(moderation.ActionBan),
		MessageID: 99,
		IssuedAt:  time.Unix(1700000000, 0),
	}

	modal := manage.NewReasonModal(prompt, moderation.ActionBan, 512)
	assert.Equal(t, "Ban User", modal.Title)
	assert.Equal(t, prompt.String(), modal.CustomID)
	assert.Len(t, modal.Components, 1)

	assert.Equal(t, "Warn User", manage.NewReasonModal(prompt, moderation.ActionAddWarning, 512).Title)
	assert.Equal(t, "Kick User", manage.NewReasonModal(prompt, moderation.ActionKick, 512).Title)
}

func TestResultMessage(t *testing.T) {
	t.Parallel()

	view := moderation.View{UserID: 42, Username: "Foo"}
	storeErr := errors.New("service unavailable")

	tests := []struct {
		name    string
		result  moderation.Result
		surface bool
		want    string
	}{
		{
			name:   "kick",
			result: moderation.Result{Action: moderation.ActionKick, Outcome: moderation.OutcomeApplied, View: view},
			want:   "Successfully kicked Foo from the server.",
		},
		{
			name: "kick too large to deliver",
			result: moderation.Result{
				Action: moderation.ActionKick, Outcome: moderation.OutcomeApplied, View: view,
				PublishErr: fmt.Errorf("publish: %w", opencloud.ErrMessageTooLarge),
			},
			want: "The kick could not be sent to game servers. Please use a shorter reason.",
		},
		{
			name: "kick publish outage is not reported",
			result: moderation.Result{
				Action: moderation.ActionKick, Outcome: moderation.OutcomeApplied, View: view, PublishErr: storeErr,
			},
			want: "Successfully kicked Foo from the server.",
		},
		{
			name:   "ban",
			result: moderation.Result{Action: moderation.ActionBan, Outcome: moderation.OutcomeApplied, View: view},
			want:   "Successfully banned Foo from the game.",
		},
		{
			name:   "unban",
			result: moderation.Result{Action: moderation.ActionUnban, Outcome: moderation.OutcomeApplied, View: view},
			want:   "Successfully unbanned Foo from the game.",
		},
		{
			name:   "warn",
			result: moderation.Result{Action: moderation.ActionAddWarning, Outcome: moderation.OutcomeApplied, View: view},
			want:   "Successfully warned Foo.",
		},
		{
			name:   "remove warning",
			result: moderation.Result{Action: moderation.ActionRemoveWarning, Outcome: moderation.OutcomeApplied, View: view},
			want:   "Successfully removed the warning.",
		},
		{
			name: "store failure is silent by default",
			result: moderation.Result{
				Action: moderation.ActionBan, Outcome: moderation.OutcomeStoreFailed, View: view, Err: storeErr,
			},
			want: "",
		},
		{
			name: "store failure surfaced",
			result: moderation.Result{
				Action: moderation.ActionBan, Outcome: moderation.OutcomeStoreFailed, View: view, Err: storeErr,
			},
			surface: true,
			want:    "The change could not be saved. Please try again.",
		},
		{
			name: "invalid reason",
			result: moderation.Result{
				Action: moderation.ActionBan, Outcome: moderation.OutcomeRejected, View: view, Err: moderation.ErrInvalidReason,
			},
			want: "Reasons must be between 1 and 512 characters.",
		},
		{
			name: "stale warning index",
			result: moderation.Result{
				Action: moderation.ActionRemoveWarning, Outcome: moderation.OutcomeRejected, View: view, Err: ledger.ErrInvalidIndex,
			},
			want: "That warning no longer exists.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, manage.ResultMessage(&tt.result, tt.surface, 512))
		})
	}
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Only the person who opened this prompt can use it.",
		manage.ErrorMessage(moderation.ErrNotSessionOwner))
	assert.Equal(t, "This prompt has ended. Run the command again to continue.",
		manage.ErrorMessage(moderation.ErrSessionClosed))
	assert.Equal(t, "I couldn't find a Roblox user with that username.",
		manage.ErrorMessage(moderation.ErrUserNotFound))
	assert.Equal(t, "Internal error. Please report this to an administrator.",
		manage.ErrorMessage(errors.New("boom")))
}
