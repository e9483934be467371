package bot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/baraholka/telegram-baraholka-bot/internal/store"
)

// DraftState tracks which field of the listing the submission flow is
// waiting on.
type DraftState int

const (
	DraftStateNone DraftState = iota
	DraftStateAwaitingTitle
	DraftStateAwaitingDescription
	DraftStateAwaitingPhoto
	DraftStateAwaitingPrice
	DraftStateAwaitingConfirmation
)

func (s DraftState) String() string {
	switch s {
	case DraftStateNone:
		return "none"
	case DraftStateAwaitingTitle:
		return "awaiting_title"
	case DraftStateAwaitingDescription:
		return "awaiting_description"
	case DraftStateAwaitingPhoto:
		return "awaiting_photo"
	case DraftStateAwaitingPrice:
		return "awaiting_price"
	case DraftStateAwaitingConfirmation:
		return "awaiting_confirmation"
	}
	return "unknown"
}

// Draft is an in-progress listing submission. The photo stays in Telegram
// as a file id until the user confirms; only then is it downloaded and
// uploaded to external storage.
type Draft struct {
	State       DraftState
	Title       string
	Description string
	Price       string
	PhotoFileID string
}

// Uploader stores photo bytes externally and returns a public URL for them.
type Uploader interface {
	Upload(ctx context.Context, data []byte, mimeType, name string) (string, error)
}

// SubmitHandler walks a user through creating a listing: title, description,
// photo, price, then a confirmation. Each step sends a force-reply prompt
// and binds the reply to the next step, so the flow survives interleaved
// commands without any hidden continuation state.
type SubmitHandler struct {
	tg         BotAPI
	listings   store.ListingStore
	uploader   Uploader
	waiter     *ReplyWaiter
	downloader *PhotoDownloader
	now        func() time.Time
}

func NewSubmitHandler(tg BotAPI, listings store.ListingStore, uploader Uploader, waiter *ReplyWaiter) *SubmitHandler {
	return &SubmitHandler{
		tg:         tg,
		listings:   listings,
		uploader:   uploader,
		waiter:     waiter,
		downloader: NewPhotoDownloader(),
		now:        time.Now,
	}
}

// Start begins a fresh submission, discarding any draft in progress.
func (h *SubmitHandler) Start(session *UserSession) {
	session.draft = &Draft{State: DraftStateAwaitingTitle}
	h.prompt(session, MsgNewPostTitle)
}

// prompt sends a force-reply question and binds its reply back into the
// flow. Force reply makes the client quote the question, which is what ties
// the user's answer to the right step.
func (h *SubmitHandler) prompt(session *UserSession, text string) {
	msg := tgbotapi.NewMessage(session.userId, text)
	msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}

	sent, err := h.tg.Send(msg)
	if err != nil {
		log.Error().Stack().Err(fmt.Errorf("failed to send prompt: %w", err)).Send()
		session.draft = nil
		return
	}
	h.bindReply(session, sent.MessageID)
}

func (h *SubmitHandler) bindReply(session *UserSession, messageID int) {
	h.waiter.Bind(session.userId, messageID, func(ctx context.Context, message *tgbotapi.Message) {
		h.HandleReply(ctx, session, message)
	})
}

// HandleReply advances the draft with the user's answer to the last prompt.
func (h *SubmitHandler) HandleReply(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	draft := session.draft
	if draft == nil {
		// The draft was abandoned after the prompt went out.
		session.reply(MsgUnidentified)
		return
	}

	switch draft.State {
	case DraftStateAwaitingTitle:
		draft.Title = strings.TrimSpace(message.Text)
		draft.State = DraftStateAwaitingDescription
		h.prompt(session, MsgNewPostDescription)

	case DraftStateAwaitingDescription:
		draft.Description = strings.TrimSpace(message.Text)
		draft.State = DraftStateAwaitingPhoto
		h.prompt(session, MsgNewPostPhoto)

	case DraftStateAwaitingPhoto:
		if len(message.Photo) == 0 {
			// Documents and plain text are rejected; only compressed
			// photos carry the size variants the cards are built from.
			session.reply(MsgNewPostPhotoError)
			h.prompt(session, MsgNewPostPhoto)
			return
		}
		// Variants are ordered smallest first; take the largest.
		draft.PhotoFileID = message.Photo[len(message.Photo)-1].FileID
		draft.State = DraftStateAwaitingPrice
		h.prompt(session, MsgNewPostPrice)

	case DraftStateAwaitingPrice:
		draft.Price = strings.TrimSpace(message.Text)
		draft.State = DraftStateAwaitingConfirmation
		h.promptConfirmation(session)

	case DraftStateAwaitingConfirmation:
		h.handleConfirmation(ctx, session, message.Text)

	default:
		session.reply(MsgUnidentified)
	}
}

// promptConfirmation shows the draft back to the user as the listing card
// it will become, and asks for a yes/no.
func (h *SubmitHandler) promptConfirmation(session *UserSession) {
	draft := session.draft

	photo := tgbotapi.NewPhoto(session.userId, tgbotapi.FileID(draft.PhotoFileID))
	photo.Caption = fmt.Sprintf(MsgNewPostConfirm,
		escapeMarkdownV2(draft.Title),
		escapeMarkdownV2(draft.Description),
		escapeMarkdownV2(draft.Price),
	)
	photo.ParseMode = tgbotapi.ModeMarkdownV2
	photo.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}

	sent, err := h.tg.Send(photo)
	if err != nil {
		log.Error().Stack().Err(fmt.Errorf("failed to send confirmation: %w", err)).Send()
		session.draft = nil
		return
	}
	h.bindReply(session, sent.MessageID)
}

func (h *SubmitHandler) handleConfirmation(ctx context.Context, session *UserSession, answer string) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "да", "y", "yes":
		h.persist(ctx, session)
	case "нет", "n", "no":
		// Start over from a blank draft.
		h.Start(session)
	default:
		h.promptConfirmation(session)
	}
}

// persist publishes the confirmed draft: the photo is pulled from Telegram,
// uploaded to external storage, and the listing is inserted unverified so
// it lands in the moderation queue. A failed upload abandons the draft
// without inserting anything.
func (h *SubmitHandler) persist(ctx context.Context, session *UserSession) {
	draft := session.draft
	session.draft = nil

	loading := session.reply(MsgNewPostLoading)

	data, err := h.downloader.DownloadFromTelegramFileID(ctx, h.tg.GetFileDirectURL, draft.PhotoFileID)
	if err != nil {
		session.replyWithError(fmt.Errorf("failed to download listing photo: %w", err))
		return
	}

	// The photo is staged in a per-submission scratch directory between
	// download and upload. The directory is removed on every exit path.
	scratchDir, err := os.MkdirTemp("", "listing-photo-*")
	if err != nil {
		session.replyWithError(fmt.Errorf("failed to create scratch dir: %w", err))
		return
	}
	defer os.RemoveAll(scratchDir)

	name := fmt.Sprintf("%d_%d.jpg", session.userId, h.now().Unix())
	path := filepath.Join(scratchDir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		session.replyWithError(fmt.Errorf("failed to stage listing photo: %w", err))
		return
	}

	staged, err := os.ReadFile(path)
	if err != nil {
		session.replyWithError(fmt.Errorf("failed to read staged photo: %w", err))
		return
	}

	photoURL, err := h.uploader.Upload(ctx, staged, "image/jpeg", name)
	if err != nil {
		session.replyWithError(fmt.Errorf("failed to upload listing photo: %w", err))
		return
	}

	listing := &store.Listing{
		Title:       draft.Title,
		Description: draft.Description,
		Price:       draft.Price,
		Photo:       photoURL,
		Owner:       session.userId,
		CreatedAt:   h.now(),
		Verified:    false,
	}
	if _, err := h.listings.Insert(ctx, listing); err != nil {
		session.replyWithError(fmt.Errorf("failed to insert listing: %w", err))
		return
	}

	if loading.MessageID != 0 {
		if _, err := h.tg.Request(tgbotapi.NewDeleteMessage(session.userId, loading.MessageID)); err != nil {
			log.Debug().Err(err).Msg("failed to delete loading message")
		}
	}

	log.Info().Str("listingId", listing.ID.Hex()).Int64("owner", session.userId).Msg("listing submitted for review")
	session.reply(MsgNewPostSuccess)
}
