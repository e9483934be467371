package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/baraholka/telegram-baraholka-bot/internal/store"
)

// BrowseHandler shows listings one card at a time, navigated with inline
// prev/next buttons. The same handler serves the public approved feed and
// the moderation queue; the pending flag selects which.
type BrowseHandler struct {
	tg       BotAPI
	listings store.ListingStore
}

func NewBrowseHandler(tg BotAPI, listings store.ListingStore) *BrowseHandler {
	return &BrowseHandler{tg: tg, listings: listings}
}

// StartBrowse begins a browse at the newest listing.
func (h *BrowseHandler) StartBrowse(ctx context.Context, session *UserSession, pending bool) {
	session.cursor = 0
	h.ShowPage(ctx, session, pending)
}

// ShowPage renders the listing at the session cursor. When the cursor has
// run past the end of the approved feed it snaps back to the newest listing
// and retries once, so a user paging past the end starts over instead of
// getting stuck.
func (h *BrowseHandler) ShowPage(ctx context.Context, session *UserSession, pending bool) {
	l, err := h.fetchAt(ctx, session.cursor, pending)
	if err != nil {
		session.replyWithError(err)
		return
	}

	if l == nil && session.cursor > 0 {
		session.cursor = 0
		l, err = h.fetchAt(ctx, session.cursor, pending)
		if err != nil {
			session.replyWithError(err)
			return
		}
	}

	if l == nil {
		session.reply(MsgSearchEnd)
		return
	}

	h.showListing(session, l, pending, true)
}

// ShowByID renders a single listing addressed by id, without navigation.
// A listing whose verified flag does not match the requested view is
// reported as not found: the public view must never leak a pending
// listing, and an already approved one has left the moderation queue.
func (h *BrowseHandler) ShowByID(ctx context.Context, session *UserSession, id string, pending bool) {
	l, err := h.listings.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		session.reply(MsgSearchNotFound)
		return
	}
	if err != nil {
		session.replyWithError(err)
		return
	}
	if l.Verified == pending {
		session.reply(MsgSearchNotFound)
		return
	}

	h.showListing(session, l, pending, false)
}

// fetchAt loads the single listing addressed by the cursor. A negative
// cursor addresses pages from the oldest listing up: -1 is the oldest,
// -2 the second oldest, and so on.
func (h *BrowseHandler) fetchAt(ctx context.Context, cursor int64, pending bool) (*store.Listing, error) {
	q := store.FindQuery{Verified: !pending, Limit: 1}
	if cursor < 0 {
		q.OldestFirst = true
		q.Skip = -cursor - 1
	} else {
		q.Skip = cursor
	}

	listings, err := h.listings.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, nil
	}
	return &listings[0], nil
}

func (h *BrowseHandler) showListing(session *UserSession, l *store.Listing, pending bool, withNav bool) {
	session.deletePrevMessage()

	photo := tgbotapi.NewPhoto(session.userId, tgbotapi.FileURL(l.Photo))
	photo.Caption = generateCaption(l)
	photo.ParseMode = tgbotapi.ModeMarkdownV2
	photo.ReplyMarkup = listingKeyboard(l, pending, withNav)

	sent, err := h.tg.Send(photo)
	if err != nil {
		session.replyWithError(err)
		return
	}
	session.prevMessageID = sent.MessageID
	log.Info().Str("listingId", l.ID.Hex()).Int64("cursor", session.cursor).Bool("pending", pending).Msg("showed listing")
}

func listingKeyboard(l *store.Listing, pending bool, withNav bool) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		{contactButton(l)},
	}

	if pending {
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(BtnAccept, callbackAccept),
			tgbotapi.NewInlineKeyboardButtonData(BtnDeny, callbackDeny),
		})
	}

	if withNav {
		prev, next := callbackPrevPage, callbackNextPage
		if pending {
			prev, next = callbackPrevPageVerify, callbackNextPageVerify
		}
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(BtnPrev, prev),
			tgbotapi.NewInlineKeyboardButtonData(BtnNext, next),
		})
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// contactButton links the viewer to the seller. Listings with an explicit
// username contact link there; otherwise the button deep-links to the
// owner's Telegram account by id.
func contactButton(l *store.Listing) tgbotapi.InlineKeyboardButton {
	if name, ok := strings.CutPrefix(l.Contact, "@"); ok && name != "" {
		return tgbotapi.NewInlineKeyboardButtonURL(BtnContactOwner, "https://t.me/"+name)
	}
	return tgbotapi.NewInlineKeyboardButtonURL(BtnContactOwner, fmt.Sprintf("tg://user?id=%d", l.Owner))
}
