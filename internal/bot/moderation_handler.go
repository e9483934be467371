package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/baraholka/telegram-baraholka-bot/internal/store"
)

// ModerationHandler reviews pending listings. Admins page through the
// moderation queue (or pull a single listing by id) and approve or deny
// each one; the listing owner is notified either way.
type ModerationHandler struct {
	tg       BotAPI
	listings store.ListingStore
	users    store.UserStore
	browse   *BrowseHandler
	waiter   *ReplyWaiter
}

func NewModerationHandler(tg BotAPI, listings store.ListingStore, users store.UserStore, browse *BrowseHandler, waiter *ReplyWaiter) *ModerationHandler {
	return &ModerationHandler{
		tg:       tg,
		listings: listings,
		users:    users,
		browse:   browse,
		waiter:   waiter,
	}
}

// IsAdmin checks the role set stored for the user. Roles live in the
// database rather than the session, so a grant takes effect on the user's
// next message without a restart.
func (h *ModerationHandler) IsAdmin(ctx context.Context, userID int64) bool {
	u, err := h.users.FindByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	if err != nil {
		log.Error().Err(err).Int64("userId", userID).Msg("failed to load user for role check")
		return false
	}
	return u.HasRole(store.RoleAdmin)
}

// StartReview opens the moderation queue at the newest pending listing.
func (h *ModerationHandler) StartReview(ctx context.Context, session *UserSession) {
	h.browse.StartBrowse(ctx, session, true)
}

// PromptReviewByID asks for a listing id and shows that pending listing.
func (h *ModerationHandler) PromptReviewByID(session *UserSession) {
	msg := tgbotapi.NewMessage(session.userId, MsgEnterPostID)
	msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}

	sent, err := h.tg.Send(msg)
	if err != nil {
		log.Error().Stack().Err(fmt.Errorf("failed to send id prompt: %w", err)).Send()
		return
	}

	h.waiter.Bind(session.userId, sent.MessageID, func(ctx context.Context, message *tgbotapi.Message) {
		h.browse.ShowByID(ctx, session, strings.TrimSpace(message.Text), true)
	})
}

// HandleVerdict applies an accept or deny pressed on a moderation card.
// The listing id is read back out of the card's caption, so a verdict on a
// stale card still addresses the listing it shows.
func (h *ModerationHandler) HandleVerdict(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery, approve bool) {
	if query.Message == nil {
		return
	}

	id := captionListingID(query.Message.Caption)
	if id == "" {
		session.reply(MsgSearchNotFound)
		return
	}

	if approve {
		h.approve(ctx, session, id)
	} else {
		h.deny(ctx, session, id)
	}

	h.removeCard(session, query.Message.MessageID)
}

func (h *ModerationHandler) approve(ctx context.Context, session *UserSession, id string) {
	l, err := h.listings.SetVerified(ctx, id, true)
	if errors.Is(err, store.ErrNotFound) {
		session.reply(MsgSearchNotFound)
		return
	}
	if err != nil {
		session.replyWithError(fmt.Errorf("failed to approve listing %s: %w", id, err))
		return
	}

	h.notifyOwner(l.Owner, MsgPostPublished, &l.ID)
	log.Info().Str("listingId", id).Int64("owner", l.Owner).Msg("listing approved")
	session.reply(MsgAcceptSuccess)
}

func (h *ModerationHandler) deny(ctx context.Context, session *UserSession, id string) {
	l, err := h.listings.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		session.reply(MsgSearchNotFound)
		return
	}
	if err != nil {
		session.replyWithError(fmt.Errorf("failed to load listing %s: %w", id, err))
		return
	}

	if err := h.listings.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		session.replyWithError(fmt.Errorf("failed to delete listing %s: %w", id, err))
		return
	}

	h.notifyOwner(l.Owner, MsgPostDenied, nil)
	log.Info().Str("listingId", id).Int64("owner", l.Owner).Msg("listing denied")
	session.reply(MsgDenySuccess)
}

// notifyOwner tells the listing owner about the verdict. Approval carries a
// button opening the now-public listing. Failures are logged only; the
// owner may have blocked the bot, and the verdict stands regardless.
func (h *ModerationHandler) notifyOwner(owner int64, text string, listingID *primitive.ObjectID) {
	msg := tgbotapi.NewMessage(owner, text)
	if listingID != nil {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(BtnViewPost, callbackFindPostPrefix+listingID.Hex()),
			),
		)
	}

	if _, err := h.tg.Send(msg); err != nil {
		log.Warn().Err(err).Int64("owner", owner).Msg("failed to notify listing owner")
	}
}

// removeCard deletes the moderation card so the verdict buttons cannot be
// pressed twice.
func (h *ModerationHandler) removeCard(session *UserSession, messageID int) {
	if _, err := h.tg.Request(tgbotapi.NewDeleteMessage(session.userId, messageID)); err != nil {
		log.Debug().Err(err).Int("messageId", messageID).Msg("failed to delete moderation card")
	}
	if session.prevMessageID == messageID {
		session.prevMessageID = 0
	}
}
