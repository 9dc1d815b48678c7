package telegram

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/record"
	"github.com/tphakala/codeseek/internal/render"
	"github.com/tphakala/codeseek/internal/search"
	"github.com/tphakala/codeseek/internal/session"
	"github.com/tphakala/codeseek/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
	)
}

const (
	allowedUser  int64 = 42
	strangerUser int64 = 7
)

type fakeAPI struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
	stopped  atomic.Bool
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{updates: make(chan tgbotapi.Update)}
}

func (f *fakeAPI) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return f.updates
}

func (f *fakeAPI) StopReceivingUpdates() { f.stopped.Store(true) }

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) messages() []tgbotapi.MessageConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.MessageConfig
	for _, c := range f.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok {
			out = append(out, msg)
		}
	}
	return out
}

func (f *fakeAPI) photos() []tgbotapi.PhotoConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.PhotoConfig
	for _, c := range f.sent {
		if photo, ok := c.(tgbotapi.PhotoConfig); ok {
			out = append(out, photo)
		}
	}
	return out
}

func (f *fakeAPI) callbacks() []tgbotapi.CallbackConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []tgbotapi.CallbackConfig
	for _, c := range f.requests {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok {
			out = append(out, cb)
		}
	}
	return out
}

type fakeSearcher struct {
	hits     map[string][]record.Hit
	sample   []record.Hit
	err      error
	searched atomic.Int32
}

func (f *fakeSearcher) Search(_ context.Context, code string) ([]record.Hit, error) {
	f.searched.Add(1)
	return f.hits[code], f.err
}

func (f *fakeSearcher) SearchAll(ctx context.Context, keywords []string) ([]record.Hit, error) {
	var all []record.Hit
	for _, k := range keywords {
		hits, err := f.Search(ctx, k)
		if err != nil {
			return all, err
		}
		all = append(all, hits...)
	}
	return all, nil
}

func (f *fakeSearcher) Recommend(_ context.Context, categories search.Categories, arg string, n int) (*search.Recommendation, error) {
	name, collection, ok := categories.Match(arg)
	if !ok {
		return nil, errors.New(search.ErrUnknownCategory).Category(errors.CategoryNotFound).Build()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &search.Recommendation{Category: name, Collection: collection, Hits: f.sample[:min(n, len(f.sample))]}, nil
}

type acceptAll struct{}

func (acceptAll) IsImage(context.Context, string) bool { return true }

type noFetch struct{}

func (noFetch) Fetch(context.Context, string) (string, error) {
	return "", errors.NewStd("fetch disabled")
}

func hit(code string) record.Hit {
	return record.Hit{Collection: "films", Record: record.Record{
		"number": code,
		"magnet": "magnet:?xt=" + code,
		"img":    "https://img/" + code + ".jpg",
	}}
}

func newTestBot(t *testing.T, searcher *fakeSearcher) (*Bot, *fakeAPI) {
	t.Helper()
	api := newFakeAPI()
	bot := New(api, Config{
		AllowedIDs: []int64{allowedUser},
		Categories: search.Categories{"4K": "uhd_video", "VR": "vr_video"},
		SampleSize: 2,
	}, Deps{
		Searcher:  searcher,
		Pipeline:  render.NewPipeline(searcher, nil),
		Deliverer: render.NewDeliverer(acceptAll{}, noFetch{}, nil),
		Sessions:  session.New(time.Minute, 10, 5),
	})
	return bot, api
}

func message(userID int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		From: &tgbotapi.User{ID: userID},
		Chat: &tgbotapi.Chat{ID: userID},
		Text: text,
	}
	if strings.HasPrefix(text, "/") {
		length := strings.IndexByte(text, ' ')
		if length < 0 {
			length = len(text)
		}
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}}
	}
	return tgbotapi.Update{Message: msg}
}

func callback(userID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb-1",
		From:    &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: userID}},
		Data:    data,
	}}
}

func TestUnauthorizedCommandIsRefused(t *testing.T) {
	t.Parallel()
	bot, api := newTestBot(t, &fakeSearcher{})

	bot.HandleUpdate(t.Context(), message(strangerUser, "/start"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, msgNoPermission, msgs[0].Text)
	assert.Equal(t, strangerUser, msgs[0].ChatID)
}

func TestUnauthorizedTextIsIgnored(t *testing.T) {
	t.Parallel()
	searcher := &fakeSearcher{}
	bot, api := newTestBot(t, searcher)

	bot.HandleUpdate(t.Context(), message(strangerUser, "ABC-123"))

	assert.Empty(t, api.messages())
	assert.Zero(t, searcher.searched.Load())
}

func TestStartOffersCategoryKeyboard(t *testing.T) {
	t.Parallel()
	bot, api := newTestBot(t, &fakeSearcher{})

	bot.HandleUpdate(t.Context(), message(allowedUser, "/start"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, msgWelcome, msgs[0].Text)

	keyboard, ok := msgs[0].ReplyMarkup.(tgbotapi.ReplyKeyboardMarkup)
	require.True(t, ok)
	assert.True(t, keyboard.ResizeKeyboard)
	require.Len(t, keyboard.Keyboard, 1)
	require.Len(t, keyboard.Keyboard[0], 2)
	assert.Equal(t, "/a 4K", keyboard.Keyboard[0][0].Text)
	assert.Equal(t, "/a VR", keyboard.Keyboard[0][1].Text)
}

func TestUnknownCommandIsIgnored(t *testing.T) {
	t.Parallel()
	bot, api := newTestBot(t, &fakeSearcher{})

	bot.HandleUpdate(t.Context(), message(strangerUser, "/help"))
	bot.HandleUpdate(t.Context(), message(allowedUser, "/help"))

	assert.Empty(t, api.messages())
}

func TestRecommendCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		text       string
		searcher   *fakeSearcher
		wantText   string
		wantPhotos int
	}{
		{
			name:     "missing argument",
			text:     "/a",
			searcher: &fakeSearcher{},
			wantText: "Usage: /a <category>, e.g. /a 4K",
		},
		{
			name:     "too many arguments",
			text:     "/a VR 4K",
			searcher: &fakeSearcher{},
			wantText: "Usage: /a <category>, e.g. /a 4K",
		},
		{
			name:     "unknown category",
			text:     "/a 8K",
			searcher: &fakeSearcher{},
			wantText: "❌ Invalid category, use one of: 4K, VR",
		},
		{
			name:     "empty category",
			text:     "/a vr",
			searcher: &fakeSearcher{},
			wantText: "❌ VR has no records",
		},
		{
			name:     "store failure",
			text:     "/a VR",
			searcher: &fakeSearcher{err: errors.NewStd("store down")},
			wantText: msgRecommendFailed,
		},
		{
			name:       "samples",
			text:       "/a VR",
			searcher:   &fakeSearcher{sample: []record.Hit{hit("VR-001"), hit("VR-002"), hit("VR-003")}},
			wantPhotos: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bot, api := newTestBot(t, tt.searcher)

			bot.HandleUpdate(t.Context(), message(allowedUser, tt.text))

			if tt.wantText != "" {
				msgs := api.messages()
				require.Len(t, msgs, 1)
				assert.Equal(t, tt.wantText, msgs[0].Text)
			}
			photos := api.photos()
			assert.Len(t, photos, tt.wantPhotos)
			for _, photo := range photos {
				assert.Equal(t, tgbotapi.ModeHTML, photo.ParseMode)
				assert.Contains(t, photo.Caption, "<b>Code:</b> VR-00")
			}
		})
	}
}

func TestTextSearchSendsRemotePhoto(t *testing.T) {
	t.Parallel()
	bot, api := newTestBot(t, &fakeSearcher{hits: map[string][]record.Hit{"ABC-123": {hit("ABC-123")}}})

	bot.HandleUpdate(t.Context(), message(allowedUser, "  ABC-123  "))

	photos := api.photos()
	require.Len(t, photos, 1)
	assert.Equal(t, tgbotapi.FileURL("https://img/ABC-123.jpg"), photos[0].File)
	assert.Contains(t, photos[0].Caption, "★Result: ABC-123★")
	assert.Empty(t, api.messages())
}

func TestTextSearchNotFound(t *testing.T) {
	t.Parallel()
	bot, api := newTestBot(t, &fakeSearcher{})

	bot.HandleUpdate(t.Context(), message(allowedUser, "ZZZ-000"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, render.NotFound("ZZZ-000"), msgs[0].Text)
	assert.Equal(t, tgbotapi.ModeHTML, msgs[0].ParseMode)
}

func TestTextSearchFailure(t *testing.T) {
	t.Parallel()
	bot, api := newTestBot(t, &fakeSearcher{err: errors.NewStd("store down")})

	bot.HandleUpdate(t.Context(), message(allowedUser, "ABC-123"))

	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, msgSearchFailed, msgs[0].Text)
}

func TestTextInputFiltering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{"blank", "   "},
		{"slash prefix without command entity", "//ABC"},
		{"too long", strings.Repeat("A", 51)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			searcher := &fakeSearcher{}
			bot, api := newTestBot(t, searcher)

			update := message(allowedUser, tt.text)
			update.Message.Entities = nil
			bot.HandleUpdate(t.Context(), update)

			assert.Zero(t, searcher.searched.Load())
			assert.Empty(t, api.messages())
		})
	}
}

func TestMultiKeywordPagination(t *testing.T) {
	t.Parallel()

	hits := map[string][]record.Hit{}
	for i := range 4 {
		code := fmt.Sprintf("AAA-%03d", i)
		hits["AAA"] = append(hits["AAA"], hit(code))
	}
	for i := range 3 {
		code := fmt.Sprintf("BBB-%03d", i)
		hits["BBB"] = append(hits["BBB"], hit(code))
	}
	bot, api := newTestBot(t, &fakeSearcher{hits: hits})

	bot.HandleUpdate(t.Context(), message(allowedUser, "AAA BBB"))

	require.Len(t, api.photos(), 5)
	msgs := api.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Page 1/2, 7 results", msgs[0].Text)

	keyboard, ok := msgs[0].ReplyMarkup.(*tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	require.Len(t, keyboard.InlineKeyboard, 1)
	require.Len(t, keyboard.InlineKeyboard[0], 1)
	next := keyboard.InlineKeyboard[0][0]
	require.NotNil(t, next.CallbackData)
	id, page, ok := parsePageData(*next.CallbackData)
	require.True(t, ok)
	assert.Equal(t, 1, page)

	bot.HandleUpdate(t.Context(), callback(allowedUser, pageData(id, 1)))

	assert.Len(t, api.photos(), 7)
	msgs = api.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Page 2/2, 7 results", msgs[1].Text)
	prev, ok := msgs[1].ReplyMarkup.(*tgbotapi.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "« Prev", prev.InlineKeyboard[0][0].Text)

	callbacks := api.callbacks()
	require.Len(t, callbacks, 1)
	assert.Equal(t, "cb-1", callbacks[0].CallbackQueryID)
}

func TestMultiKeywordWithoutHits(t *testing.T) {
	t.Parallel()
	bot, api := newTestBot(t, &fakeSearcher{})

	bot.HandleUpdate(t.Context(), message(allowedUser, "AAA BBB"))

	msgs := api.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, render.NotFound("AAA"), msgs[0].Text)
	assert.Equal(t, render.NotFound("BBB"), msgs[1].Text)
}

func TestCallbackRejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		userID int64
		data   string
		want   string
	}{
		{"unauthorized", strangerUser, "page:abc:1", msgNoPermission},
		{"expired session", allowedUser, "page:abc:1", msgSessionExpired},
		{"malformed data", allowedUser, "other", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			bot, api := newTestBot(t, &fakeSearcher{})

			bot.HandleUpdate(t.Context(), callback(tt.userID, tt.data))

			callbacks := api.callbacks()
			require.Len(t, callbacks, 1)
			assert.Equal(t, tt.want, callbacks[0].Text)
			assert.Empty(t, api.messages())
		})
	}
}

func TestParsePageData(t *testing.T) {
	t.Parallel()

	tests := []struct {
		data   string
		wantID string
		page   int
		ok     bool
	}{
		{"page:abc:2", "abc", 2, true},
		{"page:abc:-1", "", 0, false},
		{"page::1", "", 0, false},
		{"page:abc", "", 0, false},
		{"next:abc:1", "", 0, false},
		{"page:abc:x", "", 0, false},
	}

	for _, tt := range tests {
		id, page, ok := parsePageData(tt.data)
		assert.Equal(t, tt.ok, ok, tt.data)
		assert.Equal(t, tt.wantID, id, tt.data)
		assert.Equal(t, tt.page, page, tt.data)
	}
}

func TestLocalPhotoUsesFilePath(t *testing.T) {
	t.Parallel()
	api := newFakeAPI()
	sender := &chatSender{api: api, chatID: 5}

	require.NoError(t, sender.SendLocalPhoto(t.Context(), "/tmp/cover.jpg", "<b>x</b>"))

	photos := api.photos()
	require.Len(t, photos, 1)
	assert.Equal(t, tgbotapi.FilePath("/tmp/cover.jpg"), photos[0].File)
	assert.Equal(t, int64(5), photos[0].ChatID)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	bot, api := newTestBot(t, &fakeSearcher{})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx) }()

	api.updates <- message(strangerUser, "/start")
	require.Eventually(t, func() bool { return len(api.messages()) == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, testutil.WaitForValue(t, done, testutil.ShortTestTimeout, "Run did not return after cancellation"))
	assert.True(t, api.stopped.Load())
}
