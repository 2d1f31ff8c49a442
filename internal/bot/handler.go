package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iliyamo/teledl/internal/config"
	"github.com/iliyamo/teledl/internal/delivery"
	"github.com/iliyamo/teledl/internal/ledger"
	"github.com/iliyamo/teledl/internal/logging"
	"github.com/iliyamo/teledl/internal/model"
	"github.com/iliyamo/teledl/internal/queue"
	"github.com/iliyamo/teledl/internal/repository"
	queue_publisher "github.com/iliyamo/teledl/internal/service"
)

// Bot wires the Telegram update stream to the ledger, the delivery lifecycle
// and the payment pipeline. Every update is handled on its own goroutine so
// one user's slow fetch never blocks another user's interaction.
type Bot struct {
	api       *tgbotapi.BotAPI
	cfg       config.Config
	platforms config.Platforms
	ledger    *ledger.Service
	manager   *delivery.Manager
	sessions  *SessionStore
	payments  *repository.PaymentRepo
	transport *Transport
}

// New constructs the bot front end.
func New(api *tgbotapi.BotAPI, cfg config.Config, platforms config.Platforms, l *ledger.Service, m *delivery.Manager, payments *repository.PaymentRepo, transport *Transport) *Bot {
	return &Bot{
		api:       api,
		cfg:       cfg,
		platforms: platforms,
		ledger:    l,
		manager:   m,
		sessions:  NewSessionStore(0),
		payments:  payments,
		transport: transport,
	}
}

// Run consumes updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			logging.Bot.Printf("panic in update handler: %v", r)
		}
	}()

	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	b.touch(ctx, msg.From.ID)
	switch msg.Command() {
	case "start":
		b.handleStart(ctx, msg)
	case "add_premium":
		b.handleAddPremium(ctx, msg)
	default:
		b.transport.Notify(msg.Chat.ID, "Unknown command. Use /start.")
	}
}

// handleStart greets the user, enforcing the required-channel gate when one
// is configured.
func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	logging.Bot.Printf("user %d (%s) started the bot", userID, msg.From.UserName)

	if b.cfg.RequiredChanID != 0 {
		member, err := b.isChannelMember(userID)
		if err != nil {
			logging.Bot.Printf("channel membership check for user %d failed: %v", userID, err)
			// Fall through to the menu rather than locking the user out on
			// an API hiccup.
		} else if !member {
			m := tgbotapi.NewMessage(msg.Chat.ID,
				"Hi! To use this bot, please join our channel first, then press \"I have joined\".")
			m.ReplyMarkup = channelCheckKeyboard()
			b.send(m)
			return
		}
	}
	b.showMainMenu(ctx, msg.Chat.ID, userID, 0)
}

func (b *Bot) isChannelMember(userID int64) (bool, error) {
	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: b.cfg.RequiredChanID,
			UserID: userID,
		},
	})
	if err != nil {
		return false, err
	}
	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

// showMainMenu renders the menu with per-platform remaining free counts.
// When editMessageID is non-zero the existing message is edited in place.
func (b *Bot) showMainMenu(ctx context.Context, chatID, userID int64, editMessageID int) {
	acct, err := b.ledger.Account(ctx, userID)
	if err != nil {
		logging.Bot.Printf("menu for user %d: %v", userID, err)
		acct = &model.UserAccount{ID: userID, Platforms: map[string]model.PlatformState{}}
	}

	var sb strings.Builder
	sb.WriteString("Hi! I am your all-in-one downloader bot.\n\n")
	sb.WriteString("*Important:* for free, you can download a limited number of files per platform:\n")
	for _, id := range b.platforms.IDs() {
		p := b.platforms[id]
		st := acct.State(id)
		remaining := p.FreeLimit - st.FreeCount
		if remaining < 0 {
			remaining = 0
		}
		sb.WriteString(fmt.Sprintf("  📥 *%s:* %d files (%d left)\n", p.Label, p.FreeLimit, remaining))
	}
	sb.WriteString(fmt.Sprintf("\nTo avoid copyright issues, downloaded files are deleted from the server after %s. Please forward them somewhere right away.\n", formatDelay(b.cfg.DeleteDelay)))
	sb.WriteString("\nFor more downloads, check out our *Premium Version*.")

	kb := mainMenuKeyboard(b.platforms)
	if editMessageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, editMessageID, sb.String(), kb)
		edit.ParseMode = tgbotapi.ModeMarkdown
		b.send(edit)
		return
	}
	m := tgbotapi.NewMessage(chatID, sb.String())
	m.ReplyMarkup = kb
	m.ParseMode = tgbotapi.ModeMarkdown
	b.send(m)
}

func (b *Bot) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	userID := cq.From.ID
	b.answerCallback(cq.ID)
	b.touch(ctx, userID)

	// Telegram omits the message on callbacks older than 48h; with no chat
	// to respond in, acknowledging the press is all there is to do.
	if cq.Message == nil {
		return
	}
	chatID := cq.Message.Chat.ID
	msgID := cq.Message.MessageID

	data := cq.Data
	switch {
	case data == cbCheckChannel:
		if b.cfg.RequiredChanID != 0 {
			member, err := b.isChannelMember(userID)
			if err != nil || !member {
				edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID,
					"Sorry, your membership could not be confirmed yet. Make sure you joined the channel, then try again.",
					channelCheckKeyboard())
				b.send(edit)
				return
			}
		}
		b.showMainMenu(ctx, chatID, userID, msgID)

	case data == cbHelp:
		help := "❓ *How to use this bot:*\n" +
			"1. Pick a platform from the buttons below.\n" +
			"2. Send a link for the chosen platform.\n" +
			"3. The bot downloads the file and sends it to you.\n" +
			fmt.Sprintf("4. Free downloads are limited and files are temporary (deleted after %s).\n", formatDelay(b.cfg.DeleteDelay)) +
			"5. For more downloads, tap 'Premium Version ✨'."
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, help, mainMenuKeyboard(b.platforms))
		edit.ParseMode = tgbotapi.ModeMarkdown
		b.send(edit)

	case strings.HasPrefix(data, cbDownload):
		platform := strings.TrimPrefix(data, cbDownload)
		if !b.platforms.Has(platform) {
			b.transport.Notify(chatID, "That platform is not available right now.")
			return
		}
		b.sessions.Set(userID, State{Kind: StateAwaitLink, Platform: platform})
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID,
			fmt.Sprintf("📥 *%s download:*\nSend me a %s link now.", b.platforms[platform].Label, b.platforms[platform].Label),
			mainMenuKeyboard(b.platforms))
		edit.ParseMode = tgbotapi.ModeMarkdown
		b.send(edit)

	case data == cbPremium:
		b.showPremium(chatID, msgID)

	case data == cbPaid:
		b.sessions.Set(userID, State{Kind: StateAwaitUTR})
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID,
			"Please enter your UTR (Unique Transaction Reference) number. Your Telegram ID is picked up automatically.",
			mainMenuKeyboard(b.platforms))
		b.send(edit)

	case data == cbBackToMenu:
		b.sessions.Clear(userID)
		b.showMainMenu(ctx, chatID, userID, msgID)
	}
}

func (b *Bot) showPremium(chatID int64, msgID int) {
	var sb strings.Builder
	sb.WriteString("✨ *Upgrade to premium and keep downloading!*\n\n")
	for _, id := range b.platforms.IDs() {
		p := b.platforms[id]
		if len(p.Prices) == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("*%s Premium:*\n", p.Label))
		for _, bundle := range sortedBundles(p.Prices) {
			sb.WriteString(fmt.Sprintf("  • %d downloads: ₹%d\n", bundle, p.Prices[bundle]))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("*How to buy:*\nScan the QR code or pay to the UPI ID below.\n")
	if b.cfg.UPIID != "" {
		sb.WriteString(fmt.Sprintf("\n*UPI ID:* `%s`\n", b.cfg.UPIID))
	}
	sb.WriteString("After paying, press 'I have paid 💸' and submit your UTR number. Our team will confirm the payment and activate your premium.")

	if b.cfg.QRCodeURL != "" {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(b.cfg.QRCodeURL))
		photo.Caption = sb.String()
		photo.ParseMode = tgbotapi.ModeMarkdown
		photo.ReplyMarkup = premiumKeyboard()
		b.send(photo)
		b.send(tgbotapi.NewDeleteMessage(chatID, msgID))
		return
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, msgID, sb.String(), premiumKeyboard())
	edit.ParseMode = tgbotapi.ModeMarkdown
	b.send(edit)
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	b.touch(ctx, userID)

	state := b.sessions.Get(userID)
	switch state.Kind {
	case StateAwaitUTR:
		b.handleUTR(ctx, msg)
	case StateAwaitLink:
		b.handleDownload(ctx, msg, state.Platform)
	default:
		m := tgbotapi.NewMessage(msg.Chat.ID, "Please pick a platform from the buttons first.")
		m.ReplyMarkup = mainMenuKeyboard(b.platforms)
		b.send(m)
	}
}

// handleUTR validates and records a payment reference, forwards it to the
// admin channel and acknowledges the user.
func (b *Bot) handleUTR(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	utr := strings.TrimSpace(msg.Text)
	if !isDigits(utr) || len(utr) < 6 {
		m := tgbotapi.NewMessage(msg.Chat.ID, "Invalid UTR number. Please enter the correct UTR number.")
		m.ReplyMarkup = mainMenuKeyboard(b.platforms)
		b.send(m)
		return
	}
	defer b.sessions.Clear(userID)

	if _, err := b.payments.CreateProof(ctx, userID, utr); err != nil {
		if errors.Is(err, repository.ErrDuplicateUTR) {
			b.transport.Notify(msg.Chat.ID, "This UTR number was already submitted. Our team is reviewing it.")
			return
		}
		logging.Bot.Printf("store payment proof for user %d: %v", userID, err)
		b.transport.Notify(msg.Chat.ID, "Could not record your UTR right now. Please try again in a bit.")
		return
	}

	// Best-effort fan-out: ops queue and admin channel. The durable MySQL
	// row above is the source of truth.
	_ = queue_publisher.PublishPaymentProof(ctx, queue.PaymentProofEvent{
		UserID:      userID,
		UTR:         utr,
		SubmittedAt: time.Now().UTC().Format(time.RFC3339),
	})
	if b.cfg.AdminChannelID != 0 {
		text := fmt.Sprintf("🚨 *New premium request!* 🚨\n*User Telegram ID:* `%d`\n*UTR number:* `%s`\n*User link:* tg://user?id=%d",
			userID, utr, userID)
		m := tgbotapi.NewMessage(b.cfg.AdminChannelID, text)
		m.ParseMode = tgbotapi.ModeMarkdown
		b.send(m)
	}

	m := tgbotapi.NewMessage(msg.Chat.ID,
		"Your UTR number has been received. Our team will verify it shortly and activate your premium. Thank you!")
	m.ReplyMarkup = mainMenuKeyboard(b.platforms)
	b.send(m)
}

// handleDownload runs one full delivery cycle for the submitted link and
// reports the outcome to the user.
func (b *Bot) handleDownload(ctx context.Context, msg *tgbotapi.Message, platform string) {
	userID := msg.From.ID
	chatID := msg.Chat.ID
	defer b.sessions.Clear(userID)

	b.transport.Notify(chatID, "Recognizing the link and starting the download... please wait.")

	req := model.DownloadRequest{
		UserID:     userID,
		ChatID:     chatID,
		Platform:   platform,
		SourceLink: strings.TrimSpace(msg.Text),
	}
	caption := fmt.Sprintf("📥 Download successful!\n\n⚠️ Important: this file will be deleted from the server after %s. Forward it somewhere else right away!",
		formatDelay(b.cfg.DeleteDelay))

	receipt, err := b.manager.Handle(ctx, req, caption)
	if err != nil {
		b.reportFailure(chatID, platform, err)
		return
	}

	_ = queue_publisher.PublishDeliveryConfirmed(ctx, queue.DeliveryConfirmedEvent{
		UserID:           userID,
		Platform:         platform,
		FileName:         filepath.Base(receipt.Artifact.FilePath),
		SizeBytes:        receipt.Artifact.SizeBytes,
		UsedPremium:      receipt.Consumption.UsedPremium,
		RemainingFree:    receipt.Consumption.RemainingFree,
		RemainingPremium: receipt.Consumption.RemainingPremium,
		DeliveredAt:      time.Now().UTC().Format(time.RFC3339),
	})

	var text string
	switch {
	case !receipt.Consumption.UsedPremium:
		text = fmt.Sprintf("You have *%d* free %s downloads left.", receipt.Consumption.RemainingFree, b.platforms[platform].Label)
	case receipt.Consumption.RemainingPremium > 0:
		text = fmt.Sprintf("You have *%d* premium %s downloads left.", receipt.Consumption.RemainingPremium, b.platforms[platform].Label)
	default:
		text = "That was your last premium download on this platform. Buy premium again for more."
	}
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	m.ReplyMarkup = mainMenuKeyboard(b.platforms)
	b.send(m)
}

// reportFailure converts the delivery taxonomy into a user-visible message.
// No failure here ever affects other in-flight requests.
func (b *Bot) reportFailure(chatID int64, platform string, err error) {
	var text string
	switch {
	case errors.Is(err, delivery.ErrDenied), errors.Is(err, ledger.ErrNoAllowance):
		text = fmt.Sprintf("*Your free download limit (%d files) on %s is used up!* To keep downloading, buy our premium version — tap 'Premium Version ✨'.",
			b.platforms.Limit(platform), b.platforms[platform].Label)
	case errors.Is(err, delivery.ErrFetchFailed):
		text = fmt.Sprintf("Download failed: %s\nPlease make sure the link is correct, or try again later.", causeOf(err))
	case errors.Is(err, delivery.ErrDeliveryFailed):
		text = "The file was downloaded but could not be sent to you. No download was charged. Please try again."
	case errors.Is(err, ledger.ErrStorage):
		text = "The service is having a moment. Please try again in a few minutes."
	default:
		logging.Bot.Printf("unexpected delivery error: %v", err)
		text = "Something went wrong while downloading. Please try again later."
	}
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	m.ReplyMarkup = mainMenuKeyboard(b.platforms)
	b.send(m)
}

// touch records activity for retention; every inbound interaction counts,
// whatever its outcome.
func (b *Bot) touch(ctx context.Context, userID int64) {
	if err := b.ledger.TouchActivity(ctx, userID); err != nil {
		logging.Bot.Printf("touch activity for user %d: %v", userID, err)
	}
}

func (b *Bot) answerCallback(id string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, "")); err != nil {
		logging.Bot.Printf("answer callback: %v", err)
	}
}

func (b *Bot) send(c tgbotapi.Chattable) {
	if _, err := b.api.Send(c); err != nil {
		logging.Bot.Printf("send failed: %v", err)
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// causeOf strips the taxonomy prefix so users see only the underlying cause.
func causeOf(err error) string {
	s := err.Error()
	if i := strings.Index(s, ": "); i >= 0 {
		return s[i+2:]
	}
	return s
}

func sortedBundles(prices map[int]int) []int {
	bundles := make([]int, 0, len(prices))
	for b := range prices {
		bundles = append(bundles, b)
	}
	for i := 1; i < len(bundles); i++ {
		for j := i; j > 0 && bundles[j] < bundles[j-1]; j-- {
			bundles[j], bundles[j-1] = bundles[j-1], bundles[j]
		}
	}
	return bundles
}

func formatDelay(d time.Duration) string {
	if d%time.Minute == 0 {
		return strconv.Itoa(int(d/time.Minute)) + " minutes"
	}
	return d.String()
}
