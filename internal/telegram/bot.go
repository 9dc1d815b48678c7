// Package telegram is the chat front-end: catalog code lookups, random
// recommendations and paginated multi-keyword results over the Telegram Bot API.
package telegram

import (
	"context"
	"slices"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/semaphore"

	"github.com/tphakala/codeseek/internal/errors"
	"github.com/tphakala/codeseek/internal/logger"
	"github.com/tphakala/codeseek/internal/privacy"
	"github.com/tphakala/codeseek/internal/record"
	"github.com/tphakala/codeseek/internal/render"
	"github.com/tphakala/codeseek/internal/search"
	"github.com/tphakala/codeseek/internal/session"
)

// Defaults
const (
	DefaultMaxCodeLength = 50
	DefaultPollTimeout   = 60
	maxConcurrentUpdates = 16
)

// API is the subset of the Bot API client the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Searcher runs code searches and recommendations.
type Searcher interface {
	Search(ctx context.Context, code string) ([]record.Hit, error)
	SearchAll(ctx context.Context, keywords []string) ([]record.Hit, error)
	Recommend(ctx context.Context, categories search.Categories, arg string, n int) (*search.Recommendation, error)
}

// Config holds the front-end behaviour settings.
type Config struct {
	AllowedIDs    []int64
	Categories    search.Categories
	SampleSize    int
	MaxCodeLength int
	PollTimeout   int // seconds
}

// Deps are the collaborators of the bot.
type Deps struct {
	Searcher  Searcher
	Pipeline  *render.Pipeline
	Deliverer *render.Deliverer
	Sessions  *session.Store
}

// Bot dispatches Telegram updates.
type Bot struct {
	api       API
	cfg       Config
	searcher  Searcher
	pipeline  *render.Pipeline
	deliverer *render.Deliverer
	sessions  *session.Store
	log       logger.Logger
}

// New returns a bot serving updates received through api.
func New(api API, cfg Config, deps Deps) *Bot {
	if cfg.MaxCodeLength <= 0 {
		cfg.MaxCodeLength = DefaultMaxCodeLength
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if deps.Sessions == nil {
		deps.Sessions = session.New(0, 0, 0)
	}
	return &Bot{
		api:       api,
		cfg:       cfg,
		searcher:  deps.Searcher,
		pipeline:  deps.Pipeline,
		deliverer: deps.Deliverer,
		sessions:  deps.Sessions,
		log:       logger.Global().Module("telegram"),
	}
}

// NewAPI connects to the Bot API with token.
func NewAPI(token string, debug bool) (*tgbotapi.BotAPI, error) {
	_ = tgbotapi.SetLogger(&botLogger{log: logger.Global().Module("telegram")})

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		// the request URL carries the token
		return nil, errors.New(privacy.WrapError(err)).
			Component("telegram").
			Category(errors.CategoryIntegration).
			Context("operation", "connect").
			Build()
	}
	api.Debug = debug
	return api, nil
}

// Run long polls for updates until ctx is done. Updates are handled
// concurrently; Run returns after every handler finished.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	sem := semaphore.NewWeighted(maxConcurrentUpdates)
	var wg sync.WaitGroup
	defer wg.Wait()

	b.log.Info("bot started", logger.Int("allowed_users", len(b.cfg.AllowedIDs)))
	for {
		select {
		case <-ctx.Done():
			b.log.Info("bot stopping")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := sem.Acquire(ctx, 1); err != nil {
				return nil
			}
			wg.Go(func() {
				defer sem.Release(1)
				b.HandleUpdate(ctx, update)
			})
		}
	}
}

func (b *Bot) allowed(userID int64) bool {
	return slices.Contains(b.cfg.AllowedIDs, userID)
}
