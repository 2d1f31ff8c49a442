package bot

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/iliyamo/teledl/internal/downloader"
	"github.com/iliyamo/teledl/internal/logging"
)

// documentThreshold: files above this size always go out as generic
// documents, which have the most permissive transport limits.
const documentThreshold = 50 * 1024 * 1024

type mediaCategory int

const (
	catDocument mediaCategory = iota
	catVideo
	catPhoto
	catAudio
)

// categoryFor picks a transport category from the file extension.
func categoryFor(path string) mediaCategory {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp4", ".mov", ".avi", ".mkv":
		return catVideo
	case ".jpg", ".jpeg", ".png", ".gif":
		return catPhoto
	case ".mp3", ".wav", ".ogg", ".m4a":
		return catAudio
	default:
		return catDocument
	}
}

// Transport delivers artifacts over Telegram and sends the follow-up
// notifications. It implements delivery.Transport and delivery.
// RemovalNotifier.
type Transport struct {
	api *tgbotapi.BotAPI
}

// NewTransport wraps a bot API client.
func NewTransport(api *tgbotapi.BotAPI) *Transport {
	return &Transport{api: api}
}

// Deliver sends the artifact to the chat, choosing the encoding from the
// file extension and size. Oversized files are sent as documents directly;
// when a specialized category is rejected by the transport, delivery falls
// back to the generic document category before giving up.
func (t *Transport) Deliver(ctx context.Context, chatID int64, artifact downloader.Artifact, caption string) (int, error) {
	cat := categoryFor(artifact.Path)
	if artifact.SizeBytes > documentThreshold {
		cat = catDocument
	}

	msg, err := t.send(chatID, artifact.Path, caption, cat)
	if err != nil && cat != catDocument {
		logging.Bot.Printf("specialized send failed for %s, retrying as document: %v", artifact.Path, err)
		msg, err = t.send(chatID, artifact.Path, caption, catDocument)
	}
	if err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (t *Transport) send(chatID int64, path, caption string, cat mediaCategory) (tgbotapi.Message, error) {
	file := tgbotapi.FilePath(path)
	switch cat {
	case catVideo:
		v := tgbotapi.NewVideo(chatID, file)
		v.Caption = caption
		return t.api.Send(v)
	case catPhoto:
		p := tgbotapi.NewPhoto(chatID, file)
		p.Caption = caption
		return t.api.Send(p)
	case catAudio:
		a := tgbotapi.NewAudio(chatID, file)
		a.Caption = caption
		return t.api.Send(a)
	default:
		d := tgbotapi.NewDocument(chatID, file)
		d.Caption = caption
		return t.api.Send(d)
	}
}

// ArtifactRemoved warns the user that a previously delivered file has been
// deleted from the server. Best-effort: failures are logged only.
func (t *Transport) ArtifactRemoved(chatID int64, messageRef int) {
	text := fmt.Sprintf("⚠️ Your previously downloaded file (message %d) has been deleted from the server.", messageRef)
	if _, err := t.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logging.Bot.Printf("removal notice to chat %d failed: %v", chatID, err)
	}
}

// Notify sends a plain fire-and-forget message. Failures are logged only.
func (t *Transport) Notify(chatID int64, text string) {
	if _, err := t.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logging.Bot.Printf("notify chat %d failed: %v", chatID, err)
	}
}
