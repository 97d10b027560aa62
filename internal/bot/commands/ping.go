package commands

import (
	"context"
	"strconv"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/projectamerika/mayflower/internal/bot/constants"
	"github.com/projectamerika/mayflower/internal/bot/core/interaction"
	"github.com/projectamerika/mayflower/internal/bot/utils"
)

// Ping reports gateway latency and uptime.
type Ping struct {
	respond   *interaction.Respond
	startedAt time.Time
}

// NewPing creates the ping command. Uptime is measured from this call.
func NewPing(respond *interaction.Respond) *Ping {
	return &Ping{
		respond:   respond,
		startedAt: time.Now(),
	}
}

// Definition implements Command.
func (p *Ping) Definition() discord.SlashCommandCreate {
	return discord.SlashCommandCreate{
		Name:        constants.PingCommandName,
		Description: "Check the gateway and API latency.",
	}
}

// AdminOnly implements Command.
func (p *Ping) AdminOnly() bool { return false }

// Ephemeral implements Command.
func (p *Ping) Ephemeral() bool { return false }

// HandleCommand implements Command.
func (p *Ping) HandleCommand(_ context.Context, event *events.ApplicationCommandInteractionCreate) {
	gatewayPing := "unknown"
	if gw := event.Client().Gateway(); gw != nil {
		gatewayPing = strconv.FormatInt(gw.Latency().Milliseconds(), 10) + "ms"
	}

	// Time taken for the deferred response to reach Discord
	apiPing := time.Since(event.ID().Time()).Milliseconds()

	embed := discord.NewEmbedBuilder().
		SetTitle("Connection Statistics").
		SetColor(constants.InfoEmbedColor).
		SetTimestamp(time.Now()).
		AddField("Ping", gatewayPing, true).
		AddField("API", strconv.FormatInt(apiPing, 10)+"ms", true).
		AddField("Uptime", utils.FormatDuration(time.Since(p.startedAt)), false).
		Build()

	_, _ = p.respond.Update(event, discord.NewMessageUpdateBuilder().SetEmbeds(embed).Build())
}
