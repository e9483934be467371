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

// clsMaxMessages bounds how far back /cls walks the chat history.
const clsMaxMessages = 100

// clsFailureBudget stops /cls early once this many deletions in a row have
// failed; past that point the remaining ids are almost certainly gone too.
const clsFailureBudget = 10

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg       BotAPI
	state    BotState
	listings store.ListingStore
	users    store.UserStore
	waiter   *ReplyWaiter

	// Handlers
	browse     *BrowseHandler
	submit     *SubmitHandler
	moderation *ModerationHandler
}

// NewBot creates a new Bot instance.
func NewBot(tg BotAPI, listings store.ListingStore, users store.UserStore, uploader Uploader) *Bot {
	bot := &Bot{
		tg:       tg,
		listings: listings,
		users:    users,
		waiter:   NewReplyWaiter(),
	}

	bot.state = bot.NewBotState()
	bot.browse = NewBrowseHandler(tg, listings)
	bot.submit = NewSubmitHandler(tg, listings, uploader, bot.waiter)
	bot.moderation = NewModerationHandler(tg, listings, users, bot.browse, bot.waiter)

	return bot
}

// Shutdown stops all session workers gracefully.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

// HandleUpdate is the main message router.
// It dispatches updates to the appropriate session worker for sequential
// processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to
// complete. Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// dispatchUpdate routes updates to the appropriate session worker.
// If sync is true, it waits for message processing to complete.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64

	if update.CallbackQuery != nil {
		userId = update.CallbackQuery.From.ID
	} else if update.Message != nil && update.Message.From != nil {
		userId = update.Message.From.ID
	} else {
		return
	}

	session := b.state.getUserSession(userId)

	send := func(msg SessionMessage) {
		if sync {
			session.SendSync(msg)
		} else {
			session.Send(msg)
		}
	}

	if update.CallbackQuery != nil {
		send(SessionMessage{
			Type:          "callback",
			Ctx:           ctx,
			CallbackQuery: update.CallbackQuery,
		})
		return
	}

	log.Info().Str("text", update.Message.Text).Str("caption", update.Message.Caption).Msg("got message")
	send(SessionMessage{
		Type:    "message",
		Ctx:     ctx,
		Message: update.Message,
	})
}

// HandleSessionMessage implements MessageHandler interface.
// This is called by the session worker goroutine for sequential processing.
// No mutex locking is needed here since only one goroutine accesses session
// state.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case "callback":
		b.handleCallbackQuery(ctx, session, msg.CallbackQuery)
	case "message":
		b.handleMessage(ctx, session, msg.Message)
	}
}

// handleMessage processes an incoming message: replies to pending prompts
// first, then decoded commands.
// Called from session worker - no locking needed.
func (b *Bot) handleMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	b.recordUser(ctx, message.From)

	if message.ReplyToMessage != nil {
		if fn := b.waiter.Consume(message.Chat.ID, message.ReplyToMessage.MessageID); fn != nil {
			fn(ctx, message)
			return
		}
	}

	command, arg := parseCommand(message.Text)
	switch command {
	case cmdStart:
		b.handleStart(ctx, session, message)
	case cmdHelp:
		session.reply(MsgHelp)
	case cmdSearch:
		b.browse.StartBrowse(ctx, session, false)
	case cmdSearchByID:
		if arg == "" {
			b.promptForID(session, func(ctx context.Context, id string) {
				b.browse.ShowByID(ctx, session, id, false)
			})
			return
		}
		b.browse.ShowByID(ctx, session, arg, false)
	case cmdNewPost:
		b.submit.Start(session)
	case cmdDelete:
		if arg == "" {
			b.promptForID(session, func(ctx context.Context, id string) {
				b.handleDelete(ctx, session, id)
			})
			return
		}
		b.handleDelete(ctx, session, arg)
	case cmdDeletePrompt:
		b.promptForID(session, func(ctx context.Context, id string) {
			b.handleDelete(ctx, session, id)
		})
	case cmdClear:
		b.handleClear(session, message.MessageID)
	case cmdVerify:
		if !b.moderation.IsAdmin(ctx, session.userId) {
			session.reply(MsgNoAccess)
			return
		}
		b.moderation.StartReview(ctx, session)
	case cmdVerifyByID:
		if !b.moderation.IsAdmin(ctx, session.userId) {
			session.reply(MsgNoAccess)
			return
		}
		b.moderation.PromptReviewByID(session)
	default:
		session.reply(MsgUnidentified)
	}
}

// handleStart greets the user and installs the reply keyboard. Admins get
// the moderation rows on top of the regular ones.
func (b *Bot) handleStart(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	session.reset()

	firstName := ""
	if message.From != nil {
		firstName = message.From.FirstName
	}

	msg := tgbotapi.NewMessage(session.userId, fmt.Sprintf(MsgStart, firstName))
	msg.ReplyMarkup = startKeyboard(b.moderation.IsAdmin(ctx, session.userId))
	session.replyWithMessage(msg)
}

func startKeyboard(admin bool) tgbotapi.ReplyKeyboardMarkup {
	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnSearch),
			tgbotapi.NewKeyboardButton(BtnNewPost),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnDeletePost),
		),
	}
	if admin {
		rows = append(rows,
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnVerify)),
			tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(BtnVerifyByID)),
		)
	}
	return tgbotapi.NewReplyKeyboard(rows...)
}

// promptForID asks for a listing id with a force-reply prompt and feeds the
// trimmed answer to fn.
func (b *Bot) promptForID(session *UserSession, fn func(ctx context.Context, id string)) {
	msg := tgbotapi.NewMessage(session.userId, MsgEnterPostID)
	msg.ReplyMarkup = tgbotapi.ForceReply{ForceReply: true, Selective: true}

	sent, err := b.tg.Send(msg)
	if err != nil {
		log.Error().Stack().Err(fmt.Errorf("failed to send id prompt: %w", err)).Send()
		return
	}

	b.waiter.Bind(session.userId, sent.MessageID, func(ctx context.Context, message *tgbotapi.Message) {
		fn(ctx, strings.TrimSpace(message.Text))
	})
}

// handleDelete removes a listing. Owners delete their own; admins delete
// anything.
// Called from session worker - no locking needed.
func (b *Bot) handleDelete(ctx context.Context, session *UserSession, id string) {
	l, err := b.listings.FindByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		session.reply(MsgDeleteNotFound, id)
		return
	}
	if err != nil {
		session.replyWithError(fmt.Errorf("failed to load listing %s: %w", id, err))
		return
	}

	if l.Owner != session.userId && !b.moderation.IsAdmin(ctx, session.userId) {
		session.reply(MsgDeleteNoAccess)
		return
	}

	if err := b.listings.Delete(ctx, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		session.replyWithError(fmt.Errorf("failed to delete listing %s: %w", id, err))
		return
	}

	log.Info().Str("listingId", id).Int64("userId", session.userId).Msg("listing deleted")
	session.reply(MsgDeleteSuccess)
}

// handleClear wipes recent chat history, walking message ids down from the
// /cls message itself. Telegram has no bulk delete, so each id is removed
// individually, bounded by clsMaxMessages.
// Called from session worker - no locking needed.
func (b *Bot) handleClear(session *UserSession, fromMessageID int) {
	session.prevMessageID = 0

	failures := 0
	deleted := 0
	for id := fromMessageID; id > 0 && fromMessageID-id < clsMaxMessages; id-- {
		if _, err := b.tg.Request(tgbotapi.NewDeleteMessage(session.userId, id)); err != nil {
			failures++
			if failures >= clsFailureBudget {
				break
			}
			continue
		}
		failures = 0
		deleted++
	}

	log.Info().Int64("userId", session.userId).Int("deleted", deleted).Msg("cleared chat history")
}

// handleCallbackQuery handles inline keyboard button presses.
// Called from session worker - no locking needed.
func (b *Bot) handleCallbackQuery(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	// Answer the callback to remove the loading state
	callback := tgbotapi.NewCallback(query.ID, "")
	b.tg.Request(callback)

	action, arg := parseAction(query.Data)

	switch action {
	case actionNextPage:
		session.cursor++
		b.browse.ShowPage(ctx, session, false)
	case actionPrevPage:
		// The public feed stops at the newest listing.
		if session.cursor > 0 {
			session.cursor--
		}
		b.browse.ShowPage(ctx, session, false)
	case actionFindPost:
		b.browse.ShowByID(ctx, session, arg, false)

	case actionNextPageVerify, actionPrevPageVerify, actionAccept, actionDeny:
		if !b.moderation.IsAdmin(ctx, session.userId) {
			session.reply(MsgNoAccess)
			return
		}
		switch action {
		case actionNextPageVerify:
			session.cursor++
			b.browse.ShowPage(ctx, session, true)
		case actionPrevPageVerify:
			// The moderation queue pages past the logical start into
			// oldest-first addressing, so no floor here.
			session.cursor--
			b.browse.ShowPage(ctx, session, true)
		case actionAccept:
			b.moderation.HandleVerdict(ctx, session, query, true)
		case actionDeny:
			b.moderation.HandleVerdict(ctx, session, query, false)
		}

	default:
		log.Warn().Str("data", query.Data).Msg("unknown callback action")
	}
}

// recordUser upserts the sender on first contact. Failures are logged and
// otherwise ignored; message handling does not depend on the record.
func (b *Bot) recordUser(ctx context.Context, from *tgbotapi.User) {
	if from == nil {
		return
	}

	u := &store.User{
		ID:           from.ID,
		Username:     from.UserName,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		LanguageCode: from.LanguageCode,
		IsBot:        from.IsBot,
	}
	if err := b.users.UpsertIfAbsent(ctx, u); err != nil {
		log.Error().Err(err).Int64("userId", from.ID).Msg("failed to upsert user")
	}
}
