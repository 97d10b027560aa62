package guilds

import (
	"context"
	"fmt"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/snowflake/v2"
	"github.com/go-playground/validator/v10"
	"github.com/projectamerika/mayflower/internal/metrics"
	"go.uber.org/zap"
)

// MemberPageSize is the largest page the list guild members endpoint returns.
const MemberPageSize = 1000

// Alert is the embed sent to every member of a role.
type Alert struct {
	Title string `validate:"required,max=256"`
	Body  string `validate:"required,max=4000"`
}

var alertValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the alert against Discord's embed limits.
func (a *Alert) Validate() error {
	if err := alertValidator.Struct(a); err != nil {
		return fmt.Errorf("invalid alert: %w", err)
	}
	return nil
}

// Message builds the direct message carrying the alert.
func (a *Alert) Message(color int) discord.MessageCreate {
	return discord.NewMessageCreateBuilder().
		SetEmbeds(discord.NewEmbedBuilder().
			SetTitle(a.Title).
			SetDescription(a.Body).
			SetColor(color).
			SetTimestamp(time.Now()).
			Build()).
		Build()
}

// Messenger sends a direct message to a single user.
type Messenger interface {
	SendDirect(ctx context.Context, userID snowflake.ID, message discord.MessageCreate) error
}

// MemberLister lists the members of a guild holding a role.
type MemberLister interface {
	MembersWithRole(ctx context.Context, guildID, roleID snowflake.ID) ([]snowflake.ID, error)
}

// RestMessenger sends direct messages and lists members through the Discord
// REST API.
type RestMessenger struct {
	client rest.Rest
}

// NewRestMessenger creates a RestMessenger.
func NewRestMessenger(client rest.Rest) *RestMessenger {
	return &RestMessenger{client: client}
}

// SendDirect implements Messenger.
func (m *RestMessenger) SendDirect(ctx context.Context, userID snowflake.ID, message discord.MessageCreate) error {
	channel, err := m.client.CreateDMChannel(userID, rest.WithCtx(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel: %w", err)
	}

	if _, err := m.client.CreateMessage(channel.ID(), message, rest.WithCtx(ctx)); err != nil {
		return fmt.Errorf("failed to send DM: %w", err)
	}

	return nil
}

// MembersWithRole implements MemberLister. Bots are skipped since they
// cannot receive direct messages.
func (m *RestMessenger) MembersWithRole(ctx context.Context, guildID, roleID snowflake.ID) ([]snowflake.ID, error) {
	var (
		ids   []snowflake.ID
		after snowflake.ID
	)

	for {
		members, err := m.client.GetMembers(guildID, MemberPageSize, after, rest.WithCtx(ctx))
		if err != nil {
			return nil, fmt.Errorf("failed to list members of %d: %w", guildID, err)
		}

		for _, member := range members {
			if member.User.Bot {
				continue
			}

			for _, id := range member.RoleIDs {
				if id == roleID {
					ids = append(ids, member.User.ID)
					break
				}
			}
		}

		if len(members) < MemberPageSize {
			return ids, nil
		}

		after = members[len(members)-1].User.ID
	}
}

// Broadcaster sends one message to many users with a bounded number of
// workers, pausing after every message.
type Broadcaster struct {
	messenger Messenger
	workers   int
	spacing   time.Duration
	logger    *zap.Logger
}

// NewBroadcaster creates a Broadcaster.
func NewBroadcaster(messenger Messenger, workers int, spacing time.Duration, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		messenger: messenger,
		workers:   max(workers, 1),
		spacing:   spacing,
		logger:    logger.Named("broadcaster"),
	}
}

// Estimate is roughly how long sending to count users takes.
func (b *Broadcaster) Estimate(count int) time.Duration {
	return time.Duration(count) * b.spacing / time.Duration(b.workers)
}

// Send delivers message to every user. Users with closed DMs count as failed.
func (b *Broadcaster) Send(ctx context.Context, userIDs []snowflake.ID, message discord.MessageCreate) *Result {
	result := fanOut(ctx, userIDs, b.workers, b.spacing, func(ctx context.Context, userID snowflake.ID) error {
		if err := b.messenger.SendDirect(ctx, userID, message); err != nil {
			metrics.AlertMessages.WithLabelValues(metrics.ResultError).Inc()
			b.logger.Debug("Alert DM failed",
				zap.Uint64("userID", uint64(userID)),
				zap.Error(err))

			return err
		}

		metrics.AlertMessages.WithLabelValues(metrics.ResultOK).Inc()

		return nil
	})

	b.logger.Info("Alert finished",
		zap.Int("succeeded", len(result.Succeeded)),
		zap.Int("failed", len(result.Failed)))

	return result
}
