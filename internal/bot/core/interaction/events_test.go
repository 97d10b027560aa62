package interaction_test

import (
	"testing"

	"github.com/disgoorg/disgo/discord"
	"github.com/projectamerika/mayflower/internal/bot/core/interaction"
	"github.com/stretchr/testify/assert"
)

func TestIsAdministrator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		member *discord.ResolvedMember
		want   bool
	}{
		{name: "outside guild", member: nil, want: false},
		{name: "administrator", member: &discord.ResolvedMember{Permissions: discord.PermissionAdministrator}, want: true},
		{
			name:   "administrator among others",
			member: &discord.ResolvedMember{Permissions: discord.PermissionBanMembers | discord.PermissionAdministrator},
			want:   true,
		},
		{name: "moderator", member: &discord.ResolvedMember{Permissions: discord.PermissionBanMembers}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, interaction.IsAdministrator(tt.member))
		})
	}
}
