package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iliyamo/teledl/internal/config"
)

// Callback data values routed by handleCallback. Platform buttons use the
// "dl:<platform>" form so the set of buttons follows the platform table.
const (
	cbHelp         = "help"
	cbPremium      = "premium_version"
	cbPaid         = "i_have_paid"
	cbBackToMenu   = "back_to_menu"
	cbCheckChannel = "check_channel"
	cbDownload     = "dl:" // prefix, completed with a platform ID
)

func mainMenuKeyboard(platforms config.Platforms) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❓ Help", cbHelp),
		),
	}
	for _, id := range platforms.IDs() {
		p := platforms[id]
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📥 "+p.Label+" Download", cbDownload+p.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✨ Premium Version", cbPremium),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func premiumKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💸 I have paid", cbPaid),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back to menu", cbBackToMenu),
		),
	)
}

func channelCheckKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ I have joined", cbCheckChannel),
		),
	)
}
