package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang-signal-notifier/internal/entity"
	"golang-signal-notifier/internal/feed/config"
	"golang-signal-notifier/internal/feed/effect"
	"golang-signal-notifier/internal/feed/repository"
	"golang-signal-notifier/internal/preference"
	"golang-signal-notifier/pkg/dedupe"
	"golang-signal-notifier/pkg/logger"
	"golang-signal-notifier/pkg/utils"

	gocache "github.com/patrickmn/go-cache"
	"gorm.io/gorm"
)

// Subscription is one consumer's attachment to a user's feed. Effects arrive
// on Effects; Close detaches the consumer and, when it is the last one,
// releases the underlying changefeed subscription.
type Subscription struct {
	UserID  int64
	effects chan effect.Toast
	close   func()
	once    sync.Once
}

// Effects returns the consumer's effect channel. It is closed when the
// subscription is closed.
func (s *Subscription) Effects() <-chan effect.Toast {
	return s.effects
}

// Close detaches the consumer. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.close)
}

// userFeed is the shared state behind all consumers of one user's feed.
type userFeed struct {
	consumers map[int]*Subscription
	nextID    int
	cancel    func()
}

// FeedManager keeps a live per-user notification cache and dispatches at most
// one UI-facing effect per uniquely observed row. Any number of consumers may
// attach to one user's feed; exactly one changefeed subscription backs them.
type FeedManager struct {
	cfg        *config.Config
	log        *logger.Logger
	guard      *dedupe.Guard
	changefeed repository.NotificationChangefeed
	notifRepo  repository.NotificationRepository
	prefRepo   repository.UserPreferenceRepository
	cache      *Cache
	sounds     *effect.SoundDispatcher
	prefCache  *gocache.Cache

	mu    sync.Mutex
	feeds map[int64]*userFeed
}

// NewFeedManager creates a new FeedManager.
func NewFeedManager(
	cfg *config.Config,
	log *logger.Logger,
	guard *dedupe.Guard,
	changefeed repository.NotificationChangefeed,
	notifRepo repository.NotificationRepository,
	prefRepo repository.UserPreferenceRepository,
	cache *Cache,
	sounds *effect.SoundDispatcher,
) *FeedManager {
	return &FeedManager{
		cfg:        cfg,
		log:        log,
		guard:      guard,
		changefeed: changefeed,
		notifRepo:  notifRepo,
		prefRepo:   prefRepo,
		cache:      cache,
		sounds:     sounds,
		prefCache:  gocache.New(cfg.Feed.PreferenceCacheTTL, 2*cfg.Feed.PreferenceCacheTTL),
		feeds:      make(map[int64]*userFeed),
	}
}

func ownershipKey(userID int64) string {
	return fmt.Sprintf("sub:%d", userID)
}

// Subscribe attaches a consumer to the user's feed. The first consumer claims
// ownership, warms the cache from the store and opens the changefeed; later
// consumers share both regardless of which one owns the subscription.
func (m *FeedManager) Subscribe(ctx context.Context, userID int64) (*Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	feed, ok := m.feeds[userID]
	if !ok {
		if !m.guard.Claim(ownershipKey(userID)) {
			// A feed was torn down concurrently without releasing its claim;
			// should not happen, but refuse rather than double-subscribe.
			return nil, fmt.Errorf("feed subscription for user %d already claimed", userID)
		}

		m.warmCache(ctx, userID)

		// The changefeed must outlive the first consumer, so it is not tied
		// to the caller's context.
		rows, cancel, err := m.changefeed.Subscribe(context.Background(), userID)
		if err != nil {
			m.guard.Release(ownershipKey(userID))
			return nil, fmt.Errorf("failed to subscribe to notification changefeed: %w", err)
		}

		feed = &userFeed{consumers: make(map[int]*Subscription), cancel: cancel}
		m.feeds[userID] = feed

		utils.GoSafe(func() {
			for n := range rows {
				m.handleRow(n)
			}
		})
	}

	id := feed.nextID
	feed.nextID++
	sub := &Subscription{
		UserID:  userID,
		effects: make(chan effect.Toast, m.cfg.Feed.EffectBufferSize),
	}
	sub.close = func() { m.detach(userID, id) }
	feed.consumers[id] = sub
	return sub, nil
}

// detach removes one consumer; the last consumer releases the ownership
// claim and closes the changefeed synchronously.
func (m *FeedManager) detach(userID int64, consumerID int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	feed, ok := m.feeds[userID]
	if !ok {
		return
	}
	sub, ok := feed.consumers[consumerID]
	if !ok {
		return
	}
	delete(feed.consumers, consumerID)
	close(sub.effects)

	if len(feed.consumers) == 0 {
		feed.cancel()
		delete(m.feeds, userID)
		m.guard.Release(ownershipKey(userID))
	}
}

// ConsumerCount reports how many consumers are attached to a user's feed.
func (m *FeedManager) ConsumerCount(userID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if feed, ok := m.feeds[userID]; ok {
		return len(feed.consumers)
	}
	return 0
}

func (m *FeedManager) warmCache(ctx context.Context, userID int64) {
	if _, warmed := m.cache.Lookup(userID); warmed {
		return
	}
	rows, err := m.notifRepo.FindByUserID(ctx, userID, m.cfg.Feed.CacheWarmLimit)
	if err != nil {
		// Transient: the feed still goes live, the cache fills from arrivals.
		m.log.Error("Failed to warm notification cache", logger.ErrorField(err), logger.Field("user_id", userID))
		return
	}
	m.cache.Replace(userID, rows)
}

// handleRow processes one changefeed arrival: dedupe, cache insert, effect.
func (m *FeedManager) handleRow(n entity.Notification) {
	if !m.guard.ShouldDispatch("feed:"+n.ID, m.cfg.Feed.EffectDedupeWindow) {
		return
	}
	if !m.cache.Prepend(n.UserID, n) {
		return
	}

	prefs := m.preferences(n.UserID)
	if n.Type == entity.NotificationTypeSignal &&
		!preference.IsSubscribed(prefs, n.InstrumentName, preference.ChannelNotifications) {
		// The row stays cached (the store is the truth); only the effect is
		// suppressed by the live preference.
		return
	}

	toast := effect.Toast{
		Category: effect.Classify(&n),
		Title:    n.Title,
		Body:     n.Body,
		URL:      n.URL,
		Cue:      m.playCue(&n, prefs),
	}
	m.dispatch(n.UserID, toast)
}

// playCue fires the sound dispatcher and returns the cue for the toast.
// Signal cues respect the per-instrument volume preference.
func (m *FeedManager) playCue(n *entity.Notification, prefs preference.Map) effect.Cue {
	if n.Type != entity.NotificationTypeSignal {
		m.sounds.PlayGenericAlert()
		return effect.CueGenericAlert
	}
	if !preference.IsSubscribed(prefs, n.InstrumentName, preference.ChannelVolume) {
		return effect.CueNone
	}
	if n.EventKind == entity.EventKindClosed {
		m.sounds.PlayClosed(n.InstrumentName)
		return effect.CueSignalClosed
	}
	m.sounds.PlayOpened(n.InstrumentName)
	return effect.CueSignalOpened
}

func (m *FeedManager) dispatch(userID int64, toast effect.Toast) {
	m.mu.Lock()
	defer m.mu.Unlock()

	feed, ok := m.feeds[userID]
	if !ok {
		return
	}
	for _, sub := range feed.consumers {
		select {
		case sub.effects <- toast:
		default:
			m.log.Warn("Dropping effect for slow consumer", logger.Field("user_id", userID))
		}
	}
}

// preferences resolves the user's preference map through a short-lived
// in-memory cache so every arrival does not hit the store.
func (m *FeedManager) preferences(userID int64) preference.Map {
	key := fmt.Sprintf("%d", userID)
	if cached, ok := m.prefCache.Get(key); ok {
		return cached.(preference.Map)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	prefs := preference.Map{}
	row, err := m.prefRepo.FindByUserID(ctx, userID)
	if err == nil {
		prefs = preference.ParseMap(row.Preferences)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		m.log.Error("Failed to load preferences", logger.ErrorField(err), logger.Field("user_id", userID))
	}

	m.prefCache.SetDefault(key, prefs)
	return prefs
}
