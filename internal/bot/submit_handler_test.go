package bot

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveTestPhotos stands in for Telegram's file servers and records which
// file ids get downloaded.
func serveTestPhotos(t *testing.T, env *testEnv) *[]string {
	t.Helper()

	var downloaded []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		downloaded = append(downloaded, strings.TrimPrefix(r.URL.Path, "/"))
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpegbytes"))
	}))
	t.Cleanup(ts.Close)

	env.tg.fileURL = func(fileID string) (string, error) {
		return fmt.Sprintf("%s/%s", ts.URL, fileID), nil
	}
	return &downloaded
}

// runSubmissionToConfirmation drives the flow up to the yes/no question.
func runSubmissionToConfirmation(t *testing.T, env *testEnv) {
	t.Helper()

	env.sendText(42, "/p")
	assert.Equal(t, MsgNewPostTitle, env.tg.lastText(t))

	env.sendReply(42, env.tg.lastSentID(), "Стул")
	assert.Equal(t, MsgNewPostDescription, env.tg.lastText(t))

	env.sendReply(42, env.tg.lastSentID(), "В хорошем состоянии")
	assert.Equal(t, MsgNewPostPhoto, env.tg.lastText(t))

	env.sendPhotoReply(42, env.tg.lastSentID(), "small", "big")
	assert.Equal(t, MsgNewPostPrice, env.tg.lastText(t))

	env.sendReply(42, env.tg.lastSentID(), "50")

	photos := env.tg.sentPhotos()
	require.NotEmpty(t, photos)
	confirm := photos[len(photos)-1]
	assert.Contains(t, confirm.Caption, "Стул")
	assert.Contains(t, confirm.Caption, "В хорошем состоянии")
	assert.Contains(t, confirm.Caption, "50")
}

func TestSubmissionPublishesOnConfirm(t *testing.T) {
	env := newTestEnv(t)
	downloaded := serveTestPhotos(t, env)

	runSubmissionToConfirmation(t, env)
	env.sendReply(42, env.tg.lastSentID(), "да")

	assert.Equal(t, MsgNewPostSuccess, env.tg.lastText(t))
	require.Equal(t, 1, env.listings.insertCalls)

	l := env.listings.listings[0]
	assert.Equal(t, "Стул", l.Title)
	assert.Equal(t, "В хорошем состоянии", l.Description)
	assert.Equal(t, "50", l.Price)
	assert.Equal(t, int64(42), l.Owner)
	assert.False(t, l.Verified)
	assert.True(t, strings.HasPrefix(l.Photo, "https://drive.invalid/42_"), l.Photo)

	// The largest photo variant is the one downloaded and uploaded.
	assert.Equal(t, []string{"big"}, *downloaded)
	require.Len(t, env.uploader.uploads, 1)
	assert.True(t, strings.HasPrefix(env.uploader.uploads[0], "42_"))
	assert.True(t, strings.HasSuffix(env.uploader.uploads[0], ".jpg"))
}

func TestSubmissionAcceptsLatinYes(t *testing.T) {
	env := newTestEnv(t)
	serveTestPhotos(t, env)

	runSubmissionToConfirmation(t, env)
	env.sendReply(42, env.tg.lastSentID(), "Y")

	assert.Equal(t, MsgNewPostSuccess, env.tg.lastText(t))
	assert.Equal(t, 1, env.listings.insertCalls)
}

func TestSubmissionRejectsDocumentAtPhotoStep(t *testing.T) {
	env := newTestEnv(t)
	serveTestPhotos(t, env)

	env.sendText(42, "/p")
	env.sendReply(42, env.tg.lastSentID(), "Стул")
	env.sendReply(42, env.tg.lastSentID(), "Описание")
	assert.Equal(t, MsgNewPostPhoto, env.tg.lastText(t))

	// A plain text reply at the photo step is rejected and the question
	// is asked again.
	env.sendReply(42, env.tg.lastSentID(), "вот фото")

	texts := env.tg.sentTexts()
	require.GreaterOrEqual(t, len(texts), 2)
	assert.Equal(t, MsgNewPostPhotoError, texts[len(texts)-2])
	assert.Equal(t, MsgNewPostPhoto, texts[len(texts)-1])

	// The fresh prompt still accepts a photo.
	env.sendPhotoReply(42, env.tg.lastSentID(), "photo1")
	assert.Equal(t, MsgNewPostPrice, env.tg.lastText(t))
}

func TestSubmissionRestartsOnNo(t *testing.T) {
	env := newTestEnv(t)
	serveTestPhotos(t, env)

	runSubmissionToConfirmation(t, env)
	env.sendReply(42, env.tg.lastSentID(), "нет")

	// Back to a blank draft at the title question; nothing was inserted.
	assert.Equal(t, MsgNewPostTitle, env.tg.lastText(t))
	assert.Zero(t, env.listings.insertCalls)
	assert.Empty(t, env.uploader.uploads)
}

func TestSubmissionReasksOnUnrecognizedAnswer(t *testing.T) {
	env := newTestEnv(t)
	serveTestPhotos(t, env)

	runSubmissionToConfirmation(t, env)
	before := len(env.tg.sentPhotos())

	env.sendReply(42, env.tg.lastSentID(), "может быть")

	// The confirmation card is sent again, nothing is published.
	assert.Len(t, env.tg.sentPhotos(), before+1)
	assert.Zero(t, env.listings.insertCalls)

	env.sendReply(42, env.tg.lastSentID(), "да")
	assert.Equal(t, MsgNewPostSuccess, env.tg.lastText(t))
	assert.Equal(t, 1, env.listings.insertCalls)
}

func TestSubmissionUploadFailureAbandonsDraft(t *testing.T) {
	env := newTestEnv(t)
	serveTestPhotos(t, env)
	env.uploader.err = errors.New("drive unavailable")

	runSubmissionToConfirmation(t, env)
	env.sendReply(42, env.tg.lastSentID(), "да")

	assert.Equal(t, MsgSomethingWentWrong, env.tg.lastText(t))
	assert.Zero(t, env.listings.insertCalls)

	// The draft is gone: replying again does not resume the flow.
	env.sendText(42, "да")
	assert.Equal(t, MsgUnidentified, env.tg.lastText(t))
}

func TestSubmissionDraftStateStrings(t *testing.T) {
	assert.Equal(t, "none", DraftStateNone.String())
	assert.Equal(t, "awaiting_title", DraftStateAwaitingTitle.String())
	assert.Equal(t, "awaiting_confirmation", DraftStateAwaitingConfirmation.String())
}
