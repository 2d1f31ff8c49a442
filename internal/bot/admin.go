package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iliyamo/teledl/internal/logging"
	"github.com/iliyamo/teledl/internal/repository"
)

// handleAddPremium processes /add_premium <user_id> <platform> <count>.
// Only the configured admin may grant; everyone else gets a refusal.
func (b *Bot) handleAddPremium(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From.ID != b.cfg.AdminID {
		b.transport.Notify(msg.Chat.ID, "You are not authorized to use this command.")
		return
	}

	args := strings.Fields(msg.CommandArguments())
	if len(args) != 3 {
		b.transport.Notify(msg.Chat.ID, "Usage: /add_premium <user_id> <platform> <count>")
		return
	}

	targetID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		b.transport.Notify(msg.Chat.ID, "Invalid user id.")
		return
	}
	platform := strings.ToLower(args[1])
	if !b.platforms.Has(platform) {
		b.transport.Notify(msg.Chat.ID,
			fmt.Sprintf("Unknown platform %q. Known: %s", platform, strings.Join(b.platforms.IDs(), ", ")))
		return
	}
	count, err := strconv.Atoi(args[2])
	if err != nil || count <= 0 {
		b.transport.Notify(msg.Chat.ID, "Count must be a positive number.")
		return
	}

	balance, err := b.ledger.GrantPremium(ctx, targetID, platform, count)
	if err != nil {
		logging.Bot.Printf("grant premium to user %d failed: %v", targetID, err)
		b.transport.Notify(msg.Chat.ID, "Grant failed: "+err.Error())
		return
	}
	grant := repository.PremiumGrant{
		UserID:    targetID,
		Platform:  platform,
		Count:     count,
		GrantedBy: "admin:" + strconv.FormatInt(msg.From.ID, 10),
	}
	if err := b.payments.RecordGrant(ctx, grant); err != nil {
		// The grant itself already succeeded; only the audit row is lost.
		logging.Bot.Printf("record grant audit for user %d: %v", targetID, err)
	}

	b.transport.Notify(msg.Chat.ID,
		fmt.Sprintf("Granted %d premium %s downloads to user %d (balance now %d).", count, b.platforms[platform].Label, targetID, balance))

	note := tgbotapi.NewMessage(targetID,
		fmt.Sprintf("🎉 Your premium is active! You now have *%d* premium %s downloads. Enjoy!", balance, b.platforms[platform].Label))
	note.ParseMode = tgbotapi.ModeMarkdown
	b.send(note)
}
