package bot

import (
	"fmt"
	"strings"

	"github.com/baraholka/telegram-baraholka-bot/internal/store"
)

// =============================================================================
// General messages
// =============================================================================

const (
	MsgStart              = "Привет, %s!"
	MsgUnidentified       = "Я вас не понимаю. Введите команду /h, чтобы узнать, что я умею."
	MsgSomethingWentWrong = "Что-то пошло не так."
	MsgNoAccess           = "У вас нет доступа к этой команде."
)

// =============================================================================
// Browse/search messages
// =============================================================================

const (
	MsgSearchEnd      = "Больше объявлений нет."
	MsgSearchNotFound = "Объявление не найдено."
)

// =============================================================================
// Submission flow messages
// =============================================================================

const (
	MsgNewPostTitle       = "Как будет называться объявление?"
	MsgNewPostDescription = "Какое будет описание у объявления? (необязательно)"
	MsgNewPostPhoto       = "Пришлите фото объявления."
	MsgNewPostPhotoError  = "Ошибка. Пришлите фото объявления сжатым изображением."
	MsgNewPostPrice       = "Какая будет цена товара? (Br)"
	MsgNewPostLoading     = "Публикую объявление..."
	MsgNewPostSuccess     = "Объявление успешно опубликовано!"

	// MarkdownV2: parentheses and the slash-free specials are escaped in the
	// literal, user-supplied values are escaped before formatting.
	MsgNewPostConfirm = "Все верно?\n\nНазвание: %s\nОписание: %s\nЦена: %s\n\n\\(да/нет\\)"
)

// =============================================================================
// Deletion messages
// =============================================================================

const (
	MsgDeleteNotFound = "Объявление с id '%s' не найдено."
	MsgDeleteNoAccess = "Вы не можете удалить это объявление, оно пренадлежит другому пользователю."
	MsgDeleteSuccess  = "Объявление успешно удалено!"
)

// =============================================================================
// Moderation messages
// =============================================================================

const (
	MsgEnterPostID   = "Введите id объявления."
	MsgAcceptSuccess = "Объявление одобрено."
	MsgDenySuccess   = "Объявление отклонено."
	MsgPostPublished = "Ваше объявление прошло проверку и опубликовано!"
	MsgPostDenied    = "Ваше объявление не прошло проверку и было удалено."
)

// =============================================================================
// Button labels and callback payloads
// =============================================================================

const (
	BtnSearch       = "🔎Поиск"
	BtnNewPost      = "📰Подать объявление"
	BtnDeletePost   = "🔥Удалить объявление"
	BtnVerify       = "✅Верификация"
	BtnVerifyByID   = "✅Верификация по id"
	BtnContactOwner = "Связаться"
	BtnPrev         = "Назад"
	BtnNext         = "Далее"
	BtnAccept       = "Одобрить"
	BtnDeny         = "Отклонить"
	BtnViewPost     = "Посмотреть объявление"
)

const (
	callbackPrevPage       = "prev_page"
	callbackNextPage       = "next_page"
	callbackPrevPageVerify = "prev_page_verify"
	callbackNextPageVerify = "next_page_verify"
	callbackAccept         = "accept"
	callbackDeny           = "deny"
	callbackFindPostPrefix = "find_post_"
)

// MsgHelp lists what the bot can do, in command declaration order.
var MsgHelp = buildHelpMessage()

func buildHelpMessage() string {
	items := []struct{ cmd, what string }{
		{"/start", "Запустить бота"},
		{"/h", "Узнать, что умеет бот"},
		{"/s", "Поиск объявлений"},
		{"/si [id]", "Найти объявление по id"},
		{"/p", "Подать объявление"},
		{"/di [id]", "Удалить объявление по id"},
		{"/cls", "Очистить чат"},
	}

	var b strings.Builder
	b.WriteString("Этот бот умеет:")
	for _, it := range items {
		fmt.Fprintf(&b, "\n%s - %s", it.cmd, it.what)
	}
	return b.String()
}

// generateCaption renders a listing caption in MarkdownV2. The first line is
// the raw listing id: the moderation flow parses it back out of the caption,
// so it must stay the leading token.
func generateCaption(l *store.Listing) string {
	var b strings.Builder
	b.WriteString(escapeMarkdownV2(l.ID.Hex()))
	b.WriteString("\n\n")
	b.WriteString(escapeMarkdownV2(l.Title))
	b.WriteString("\n\n")
	b.WriteString(escapeMarkdownV2(l.Description))
	b.WriteString("\n\n")
	b.WriteString(escapeMarkdownV2(l.CreatedAt.Format("02.01.2006")))
	b.WriteString("\n\n")
	b.WriteString(escapeMarkdownV2(l.Price))
	b.WriteString(escapeMarkdownV2(" руб."))
	if l.Contact != "" {
		b.WriteString("\n\n")
		b.WriteString(escapeMarkdownV2(l.Contact))
	}
	return b.String()
}

// captionListingID extracts the listing id from a rendered caption.
func captionListingID(caption string) string {
	id, _, _ := strings.Cut(caption, "\n")
	// ObjectID hex contains no MarkdownV2 specials, so unescaping is just
	// dropping backslashes.
	return strings.ReplaceAll(strings.TrimSpace(id), "\\", "")
}
