package bot

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lastShownListing returns the id of the most recently sent listing card.
func lastShownListing(t *testing.T, tg *recorderBotAPI) string {
	t.Helper()
	photos := tg.sentPhotos()
	require.NotEmpty(t, photos)
	return captionListingID(photos[len(photos)-1].Caption)
}

func TestBrowseShowsNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	newest := env.addListing("Новое", 7, true, 0)
	env.addListing("Старое", 7, true, time.Hour)

	env.sendText(42, "/s")

	assert.Equal(t, newest.ID.Hex(), lastShownListing(t, env.tg))

	photos := env.tg.sentPhotos()
	kb, ok := photos[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	// Contact row plus navigation row.
	require.Len(t, kb.InlineKeyboard, 2)
	assert.Equal(t, BtnContactOwner, kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, callbackPrevPage, *kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, callbackNextPage, *kb.InlineKeyboard[1][1].CallbackData)
}

func TestBrowseNextAndPrev(t *testing.T) {
	env := newTestEnv(t)
	a := env.addListing("A", 7, true, 0)
	b := env.addListing("B", 7, true, time.Hour)
	c := env.addListing("C", 7, true, 2*time.Hour)

	env.sendText(42, "/s")
	assert.Equal(t, a.ID.Hex(), lastShownListing(t, env.tg))

	env.sendCallback(42, callbackNextPage, nil)
	assert.Equal(t, b.ID.Hex(), lastShownListing(t, env.tg))

	env.sendCallback(42, callbackNextPage, nil)
	assert.Equal(t, c.ID.Hex(), lastShownListing(t, env.tg))

	env.sendCallback(42, callbackPrevPage, nil)
	assert.Equal(t, b.ID.Hex(), lastShownListing(t, env.tg))
}

func TestBrowsePrevFloorsAtNewest(t *testing.T) {
	env := newTestEnv(t)
	a := env.addListing("A", 7, true, 0)
	env.addListing("B", 7, true, time.Hour)

	env.sendText(42, "/s")
	env.sendCallback(42, callbackPrevPage, nil)
	env.sendCallback(42, callbackPrevPage, nil)

	// Still on the newest listing; prev never goes past the start.
	assert.Equal(t, a.ID.Hex(), lastShownListing(t, env.tg))
	env.sendCallback(42, callbackNextPage, nil)
	assert.Equal(t, "B", mustGetTitle(t, env, lastShownListing(t, env.tg)))
}

func TestBrowsePastEndWrapsToNewest(t *testing.T) {
	env := newTestEnv(t)
	a := env.addListing("A", 7, true, 0)
	env.addListing("B", 7, true, time.Hour)

	env.sendText(42, "/s")
	env.sendCallback(42, callbackNextPage, nil)
	env.sendCallback(42, callbackNextPage, nil)

	// Paging past the last listing starts over from the newest.
	assert.Equal(t, a.ID.Hex(), lastShownListing(t, env.tg))
}

func TestBrowseEmptyFeed(t *testing.T) {
	env := newTestEnv(t)
	env.addListing("Pending", 7, false, 0)

	env.sendText(42, "/s")

	assert.Equal(t, MsgSearchEnd, env.tg.lastText(t))
	assert.Empty(t, env.tg.sentPhotos())
}

func TestBrowseDeletesPreviousCard(t *testing.T) {
	env := newTestEnv(t)
	env.addListing("A", 7, true, 0)
	env.addListing("B", 7, true, time.Hour)

	env.sendText(42, "/s")
	firstCardID := env.tg.lastSentID()
	env.sendCallback(42, callbackNextPage, nil)

	deletes := env.tg.deleteRequests()
	require.NotEmpty(t, deletes)
	assert.Equal(t, firstCardID, deletes[len(deletes)-1].MessageID)
}

func TestSearchByID(t *testing.T) {
	env := newTestEnv(t)
	l := env.addListing("A", 7, true, 0)

	env.sendText(42, "/si "+l.ID.Hex())

	assert.Equal(t, l.ID.Hex(), lastShownListing(t, env.tg))

	photos := env.tg.sentPhotos()
	kb, ok := photos[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	// Single-listing view has no navigation row.
	require.Len(t, kb.InlineKeyboard, 1)
	assert.Equal(t, BtnContactOwner, kb.InlineKeyboard[0][0].Text)
}

func TestSearchByIDDoesNotLeakPendingListing(t *testing.T) {
	env := newTestEnv(t)
	l := env.addListing("Pending", 7, false, 0)

	env.sendText(42, "/si "+l.ID.Hex())

	assert.Equal(t, MsgSearchNotFound, env.tg.lastText(t))
	assert.Empty(t, env.tg.sentPhotos())
}

func TestSearchByIDMissing(t *testing.T) {
	env := newTestEnv(t)
	env.sendText(42, "/si deadbeefdeadbeefdeadbeef")

	assert.Equal(t, MsgSearchNotFound, env.tg.lastText(t))
}

func TestFindPostCallbackShowsApprovedListing(t *testing.T) {
	env := newTestEnv(t)
	l := env.addListing("A", 7, true, 0)

	env.sendCallback(42, callbackFindPostPrefix+l.ID.Hex(), nil)

	assert.Equal(t, l.ID.Hex(), lastShownListing(t, env.tg))
}

func TestModerationBrowseShowsPendingOnly(t *testing.T) {
	env := newTestEnv(t)
	env.users.grantAdmin(42)
	env.addListing("Approved", 7, true, 0)
	pending := env.addListing("Pending", 7, false, time.Hour)

	env.sendText(42, BtnVerify)

	assert.Equal(t, pending.ID.Hex(), lastShownListing(t, env.tg))

	photos := env.tg.sentPhotos()
	kb, ok := photos[0].ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	// Contact, verdict, navigation.
	require.Len(t, kb.InlineKeyboard, 3)
	assert.Equal(t, callbackAccept, *kb.InlineKeyboard[1][0].CallbackData)
	assert.Equal(t, callbackDeny, *kb.InlineKeyboard[1][1].CallbackData)
	assert.Equal(t, callbackPrevPageVerify, *kb.InlineKeyboard[2][0].CallbackData)
	assert.Equal(t, callbackNextPageVerify, *kb.InlineKeyboard[2][1].CallbackData)
}

func TestModerationPrevGoesBehindStart(t *testing.T) {
	env := newTestEnv(t)
	env.users.grantAdmin(42)
	env.addListing("New", 7, false, 0)
	oldest := env.addListing("Old", 7, false, 2*time.Hour)

	env.sendText(42, BtnVerify)
	env.sendCallback(42, callbackPrevPageVerify, nil)

	// Cursor -1 addresses the oldest pending listing.
	assert.Equal(t, oldest.ID.Hex(), lastShownListing(t, env.tg))
}

func mustGetTitle(t *testing.T, env *testEnv, id string) string {
	t.Helper()
	l, ok := env.listings.get(id)
	require.True(t, ok)
	return l.Title
}
