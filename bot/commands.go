package bot

import (
	"fmt"
	"strconv"
	"strings"

	"chime/state"
	"chime/timezone"
	"chime/types"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/exp/slices"
)

var linkablePlatforms = []string{types.PlatformTodoist, types.PlatformTrello}

func (h *Handler) handleCommand(s *discordgo.Session, m *discordgo.MessageCreate, content string) {
	args := strings.Fields(content)

	switch args[0] {
	case "!help":
		h.reply(s, m, helpText)
	case "!tz":
		h.cmdTimezone(s, m, args[1:])
	case "!recipients":
		h.cmdRecipients(s, m)
	case "!link":
		h.cmdLink(s, m, args[1:])
	case "!unlink":
		h.cmdUnlink(s, m, args[1:])
	}
}

const helpText = "Send me a reminder in plain words, e.g. `buy milk tomorrow 5pm`.\n" +
	"Commands:\n" +
	"`!tz <location>` — set your location for timezone handling\n" +
	"`!recipients` — list your linked task platforms\n" +
	"`!link todoist <api_token> [project_id]`\n" +
	"`!link trello <key:token> <list_id>`\n" +
	"`!unlink <id>` — remove a linked platform"

func (h *Handler) cmdTimezone(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		h.reply(s, m, "Usage: `!tz <location>`, e.g. `!tz Lisbon`")
		return
	}

	location := strings.Join(args, " ")

	err := state.Redis.Set(state.Context, "usertz:"+m.Author.ID, location, 0).Err()

	if err != nil {
		h.Logger.Error("Error saving user location: ", err)
		h.reply(s, m, "Something went wrong saving that.")

		return
	}

	offset := timezone.OffsetHours(location)

	h.reply(s, m, fmt.Sprintf("Location set to **%s** (UTC%+d right now).", location, offset))
}

func (h *Handler) cmdRecipients(s *discordgo.Session, m *discordgo.MessageCreate) {
	recipients, err := h.Recipients.List(state.Context, m.Author.ID)

	if err != nil {
		h.Logger.Error("Error listing recipients: ", err)
		h.reply(s, m, "Something went wrong listing your recipients.")

		return
	}

	if len(recipients) == 0 {
		h.reply(s, m, "You have no linked platforms yet. Use `!link` to add one.")
		return
	}

	var b strings.Builder

	b.WriteString("Your linked platforms (first one is the primary):")

	for _, r := range recipients {
		status := "enabled"

		if !r.Enabled {
			status = "disabled"
		}

		fmt.Fprintf(&b, "\n• #%d %s (%s)", r.ID, r.Platform, status)
	}

	h.reply(s, m, b.String())
}

func (h *Handler) cmdLink(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) < 2 {
		h.reply(s, m, "Usage: `!link todoist <api_token> [project_id]` or `!link trello <key:token> <list_id>`")
		return
	}

	platform := strings.ToLower(args[0])

	if !slices.Contains(linkablePlatforms, platform) {
		h.reply(s, m, "Unknown platform. Supported: "+strings.Join(linkablePlatforms, ", "))
		return
	}

	recipient := &types.Recipient{
		OwnerID:     m.Author.ID,
		Platform:    platform,
		Credentials: args[1],
		Config:      map[string]any{},
		Enabled:     true,
	}

	switch platform {
	case types.PlatformTodoist:
		recipient.Personal = true

		if len(args) > 2 {
			recipient.Config["project_id"] = args[2]
		}
	case types.PlatformTrello:
		if len(args) < 3 {
			h.reply(s, m, "Trello needs a list: `!link trello <key:token> <list_id>`")
			return
		}

		recipient.Config["list_id"] = args[2]
	}

	if err := state.Validator.Struct(recipient); err != nil {
		h.reply(s, m, "Those credentials don't look right: "+err.Error())
		return
	}

	id, err := h.Recipients.Create(state.Context, recipient)

	if err != nil {
		h.Logger.Error("Error creating recipient: ", err)
		h.reply(s, m, "Something went wrong linking that platform.")

		return
	}

	// Credentials stay out of the reply on purpose
	h.reply(s, m, fmt.Sprintf("Linked **%s** as recipient #%d.", platform, id))
}

func (h *Handler) cmdUnlink(s *discordgo.Session, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		h.reply(s, m, "Usage: `!unlink <id>` (see `!recipients` for ids)")
		return
	}

	id, err := strconv.ParseInt(args[0], 10, 64)

	if err != nil {
		h.reply(s, m, "That's not a recipient id.")
		return
	}

	removed, err := h.Recipients.Delete(state.Context, m.Author.ID, id)

	if err != nil {
		h.Logger.Error("Error deleting recipient: ", err)
		h.reply(s, m, "Something went wrong unlinking that platform.")

		return
	}

	if !removed {
		h.reply(s, m, "You don't have a recipient with that id.")
		return
	}

	h.reply(s, m, fmt.Sprintf("Unlinked recipient #%d.", id))
}
