package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// commandKind identifies a bot command after decoding. Raw message text is
// decoded into one of these at the router boundary so the handlers never
// string-match themselves.
type commandKind int

const (
	cmdNone commandKind = iota
	cmdStart
	cmdHelp
	cmdSearch
	cmdSearchByID
	cmdNewPost
	cmdDelete
	cmdDeletePrompt
	cmdClear
	cmdVerify
	cmdVerifyByID
)

// parseCommand decodes message text into a command and its argument.
// Reply keyboard buttons are plain text, so their labels decode alongside
// the slash commands.
func parseCommand(text string) (commandKind, string) {
	switch text {
	case BtnSearch:
		return cmdSearch, ""
	case BtnNewPost:
		return cmdNewPost, ""
	case BtnDeletePost:
		return cmdDeletePrompt, ""
	case BtnVerify:
		return cmdVerify, ""
	case BtnVerifyByID:
		return cmdVerifyByID, ""
	}

	if !strings.HasPrefix(text, "/") {
		return cmdNone, ""
	}

	name, arg, _ := strings.Cut(text, " ")
	arg = strings.TrimSpace(arg)

	// Commands may carry the bot's username when sent from a group chat.
	name, _, _ = strings.Cut(name, "@")

	switch name {
	case "/start":
		return cmdStart, arg
	case "/h":
		return cmdHelp, arg
	case "/s":
		return cmdSearch, arg
	case "/si":
		return cmdSearchByID, arg
	case "/p":
		return cmdNewPost, arg
	case "/di":
		return cmdDelete, arg
	case "/cls":
		return cmdClear, arg
	}
	return cmdNone, ""
}

// actionKind identifies an inline keyboard callback after decoding.
type actionKind int

const (
	actionUnknown actionKind = iota
	actionPrevPage
	actionNextPage
	actionPrevPageVerify
	actionNextPageVerify
	actionAccept
	actionDeny
	actionFindPost
)

// parseAction decodes callback data into an action and its argument.
func parseAction(data string) (actionKind, string) {
	switch data {
	case callbackPrevPage:
		return actionPrevPage, ""
	case callbackNextPage:
		return actionNextPage, ""
	case callbackPrevPageVerify:
		return actionPrevPageVerify, ""
	case callbackNextPageVerify:
		return actionNextPageVerify, ""
	case callbackAccept:
		return actionAccept, ""
	case callbackDeny:
		return actionDeny, ""
	}
	if id, ok := strings.CutPrefix(data, callbackFindPostPrefix); ok {
		return actionFindPost, id
	}
	return actionUnknown, ""
}

// Command defines a bot command with its Telegram menu description.
type Command struct {
	Name        string // Command name without slash (e.g., "start")
	Description string // Description shown in Telegram command menu
}

// botCommands defines all available bot commands.
// This is the single source of truth for command definitions.
var botCommands = []Command{
	{Name: "start", Description: "Запустить бота"},
	{Name: "h", Description: "Узнать, что умеет бот"},
	{Name: "s", Description: "Поиск объявлений"},
	{Name: "si", Description: "Найти объявление по id"},
	{Name: "p", Description: "Подать объявление"},
	{Name: "di", Description: "Удалить объявление по id"},
	{Name: "cls", Description: "Очистить чат"},
}

// RegisterCommands sets the bot's command menu in Telegram.
// This should be called once at startup.
func RegisterCommands(tg *tgbotapi.BotAPI) {
	commands := make([]tgbotapi.BotCommand, len(botCommands))
	for i, cmd := range botCommands {
		commands[i] = tgbotapi.BotCommand{
			Command:     cmd.Name,
			Description: cmd.Description,
		}
	}

	config := tgbotapi.NewSetMyCommands(commands...)
	if _, err := tg.Request(config); err != nil {
		log.Error().Err(err).Msg("failed to set bot commands")
	} else {
		log.Info().Int("count", len(commands)).Msg("registered bot commands")
	}
}
