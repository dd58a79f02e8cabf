// The chat transport layer: turns inbound Discord messages into resolved,
// dispatched reminders and replies with the consolidated outcome.
package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"chime/dispatch"
	"chime/state"
	"chime/store"
	"chime/timeparse"
	"chime/timezone"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

type Handler struct {
	Resolver   *timeparse.Resolver
	Dispatcher *dispatch.Dispatcher
	Recipients store.Recipients
	Logger     *zap.SugaredLogger
}

// Setup registers the message handler on the shared session.
func (h *Handler) Setup() {
	state.Discord.AddHandler(h.onMessageCreate)
}

func (h *Handler) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	content := strings.TrimSpace(stripMention(m.Content, s.State.User.ID))

	if content == "" {
		return
	}

	// Guild channels require a mention or a command; DMs take anything
	if m.GuildID != "" && !strings.HasPrefix(content, "!") && !mentionsBot(m, s.State.User.ID) {
		return
	}

	if strings.HasPrefix(content, "!") {
		h.handleCommand(s, m, content)
		return
	}

	h.handleReminder(s, m, content)
}

func (h *Handler) handleReminder(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	ctx := state.Context
	ownerID := m.Author.ID

	offset := timezone.OffsetHours(userLocation(ctx, ownerID))

	task, res, err := h.Resolver.Resolve(ctx, content, time.Now(), offset)

	if err != nil {
		if errors.Is(err, timeparse.ErrUnresolvable) {
			h.reply(s, m, "I couldn't work out when to remind you. Try something like `buy milk tomorrow 5pm` or `stretch in 30 minutes`.")
			return
		}

		h.Logger.Error("Resolution failed: ", err)
		h.reply(s, m, "Something went wrong resolving that reminder.")

		return
	}

	task.OriginRef = messageLink(m)

	recipients, err := h.Recipients.ListEnabled(ctx, ownerID)

	if err != nil {
		h.Logger.Error("Error listing recipients: ", err)
		h.reply(s, m, "Something went wrong looking up your recipients.")

		return
	}

	result, err := h.Dispatcher.CreateAndDispatch(ctx, ownerID, m.ChannelID, *task, recipients)

	if err != nil {
		if errors.Is(err, dispatch.ErrNoRecipients) {
			h.reply(s, m, "You have no task recipients configured. Link one with `!link todoist <token>` or `!link trello <key:token> <list_id>`.")
			return
		}

		h.Logger.Error("Dispatch failed: ", err)
		h.reply(s, m, "Something went wrong creating that reminder.")

		return
	}

	var b strings.Builder

	local := task.DueTime.Add(time.Duration(offset) * time.Hour)

	b.WriteString("Got it — **" + task.Title + "** at " + local.Format("Mon Jan 2 15:04") + " your time.")

	if res.Defaulted {
		b.WriteString("\nThat time had already passed, so I set it for tomorrow 09:00 instead.")
	}

	b.WriteString("\n" + result.Message)

	h.reply(s, m, b.String())
}

func (h *Handler) reply(s *discordgo.Session, m *discordgo.MessageCreate, text string) {
	_, err := s.ChannelMessageSendReply(m.ChannelID, text, m.Reference())

	if err != nil {
		h.Logger.With("channel", m.ChannelID).Error("Error sending reply: ", err)
	}
}

func stripMention(content, botID string) string {
	content = strings.ReplaceAll(content, "<@"+botID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botID+">", "")

	return strings.TrimSpace(content)
}

func mentionsBot(m *discordgo.MessageCreate, botID string) bool {
	for _, user := range m.Mentions {
		if user.ID == botID {
			return true
		}
	}

	return false
}

func messageLink(m *discordgo.MessageCreate) string {
	guild := m.GuildID

	if guild == "" {
		guild = "@me"
	}

	return "https://discord.com/channels/" + guild + "/" + m.ChannelID + "/" + m.ID
}

// userLocation returns the user's free-text location, if they set one with
// !tz. Empty means UTC downstream.
func userLocation(ctx context.Context, ownerID string) string {
	location, err := state.Redis.Get(ctx, "usertz:"+ownerID).Result()

	if err != nil {
		return ""
	}

	return location
}
