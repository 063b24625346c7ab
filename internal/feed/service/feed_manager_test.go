package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"golang-signal-notifier/internal/entity"
	"golang-signal-notifier/internal/feed/config"
	"golang-signal-notifier/internal/feed/effect"
	"golang-signal-notifier/internal/preference"
	"golang-signal-notifier/pkg/dedupe"
	"golang-signal-notifier/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type fakeChangefeed struct {
	mu         sync.Mutex
	subscribes int
	cancels    int
	rows       chan entity.Notification
}

func newFakeChangefeed() *fakeChangefeed {
	return &fakeChangefeed{rows: make(chan entity.Notification, 16)}
}

func (f *fakeChangefeed) Subscribe(_ context.Context, _ int64) (<-chan entity.Notification, func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribes++
	return f.rows, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cancels++
	}, nil
}

func (f *fakeChangefeed) subscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribes
}

func (f *fakeChangefeed) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

type fakeFeedNotificationRepo struct {
	rows []entity.Notification
}

func (f *fakeFeedNotificationRepo) FindByUserID(_ context.Context, userID int64, _ int) ([]entity.Notification, error) {
	var out []entity.Notification
	for _, n := range f.rows {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeFeedNotificationRepo) CountUnread(_ context.Context, _ int64) (int64, error) {
	return 0, nil
}
func (f *fakeFeedNotificationRepo) MarkAsRead(_ context.Context, _ int64, _ string) error { return nil }
func (f *fakeFeedNotificationRepo) MarkAllAsRead(_ context.Context, _ int64) error        { return nil }
func (f *fakeFeedNotificationRepo) DeleteAllByUserID(_ context.Context, _ int64) error    { return nil }
func (f *fakeFeedNotificationRepo) DeleteReadOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type fakeFeedPreferenceRepo struct {
	prefs map[int64]preference.Map
}

func (f *fakeFeedPreferenceRepo) FindByUserID(_ context.Context, userID int64) (*entity.UserPreference, error) {
	m, ok := f.prefs[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	raw, _ := json.Marshal(m)
	return &entity.UserPreference{UserID: userID, Preferences: datatypes.JSON(raw)}, nil
}

func newTestFeedManager(t *testing.T, changefeed *fakeChangefeed, prefRepo *fakeFeedPreferenceRepo) (*FeedManager, *effect.SoundDispatcher) {
	t.Helper()

	log, err := logger.New("error", "json")
	require.NoError(t, err)

	cfg := &config.Config{Feed: config.Feed{
		EffectDedupeWindow: 100 * time.Millisecond,
		PreferenceCacheTTL: time.Minute,
		CacheWarmLimit:     100,
		EffectBufferSize:   8,
	}}
	sounds := effect.NewSoundDispatcher()
	sounds.Prime()
	manager := NewFeedManager(cfg, log, dedupe.NewGuard(), changefeed, &fakeFeedNotificationRepo{}, prefRepo, NewCache(), sounds)
	return manager, sounds
}

func signalRow(id string, userID int64, instrument string) entity.Notification {
	return entity.Notification{
		ID:             id,
		UserID:         userID,
		Type:           entity.NotificationTypeSignal,
		Title:          "Signal opened: " + instrument,
		Body:           "New buy signal on " + instrument,
		EventKind:      entity.EventKindOpened,
		TradeSide:      entity.TradeSideBuy,
		InstrumentName: instrument,
		CreatedAt:      time.Now(),
	}
}

func waitForEffect(t *testing.T, sub *Subscription) effect.Toast {
	t.Helper()
	select {
	case toast := <-sub.Effects():
		return toast
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for effect")
		return effect.Toast{}
	}
}

func assertNoEffect(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case toast := <-sub.Effects():
		t.Fatalf("unexpected effect: %+v", toast)
	case <-time.After(100 * time.Millisecond):
	}
}

func allSubscribed(instruments ...string) preference.Map {
	m := preference.Map{}
	for _, i := range instruments {
		m[i] = preference.InstrumentPreference{Notifications: true, Volume: true}
	}
	return m
}

func TestTwoConsumersShareOneSubscription(t *testing.T) {
	changefeed := newFakeChangefeed()
	prefRepo := &fakeFeedPreferenceRepo{prefs: map[int64]preference.Map{1: allSubscribed("EURUSD")}}
	manager, _ := newTestFeedManager(t, changefeed, prefRepo)

	first, err := manager.Subscribe(context.Background(), 1)
	require.NoError(t, err)
	second, err := manager.Subscribe(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, changefeed.subscribeCount())
	assert.Equal(t, 2, manager.ConsumerCount(1))

	changefeed.rows <- signalRow("n1", 1, "EURUSD")
	waitForEffect(t, first)
	waitForEffect(t, second)

	// Closing one consumer leaves the other attached and receiving.
	first.Close()
	assert.Equal(t, 1, manager.ConsumerCount(1))
	assert.Equal(t, 0, changefeed.cancelCount())

	changefeed.rows <- signalRow("n2", 1, "EURUSD")
	waitForEffect(t, second)

	second.Close()
	assert.Equal(t, 0, manager.ConsumerCount(1))
	assert.Equal(t, 1, changefeed.cancelCount())
}

func TestLastCloseReleasesOwnership(t *testing.T) {
	changefeed := newFakeChangefeed()
	prefRepo := &fakeFeedPreferenceRepo{prefs: map[int64]preference.Map{1: allSubscribed("EURUSD")}}
	manager, _ := newTestFeedManager(t, changefeed, prefRepo)

	sub, err := manager.Subscribe(context.Background(), 1)
	require.NoError(t, err)
	sub.Close()
	sub.Close() // double close is safe

	// A fresh subscribe must be able to claim again.
	again, err := manager.Subscribe(context.Background(), 1)
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, 2, changefeed.subscribeCount())
}

func TestDuplicateRowYieldsOneCacheEntryAndOneEffect(t *testing.T) {
	changefeed := newFakeChangefeed()
	prefRepo := &fakeFeedPreferenceRepo{prefs: map[int64]preference.Map{1: allSubscribed("EURUSD")}}
	manager, _ := newTestFeedManager(t, changefeed, prefRepo)

	sub, err := manager.Subscribe(context.Background(), 1)
	require.NoError(t, err)
	defer sub.Close()

	row := signalRow("n1", 1, "EURUSD")
	changefeed.rows <- row
	changefeed.rows <- row

	waitForEffect(t, sub)
	assertNoEffect(t, sub)

	rows, ok := manager.cache.Lookup(1)
	require.True(t, ok)
	assert.Len(t, rows, 1)
}

func TestMutedInstrumentKeepsRowButSuppressesEffect(t *testing.T) {
	changefeed := newFakeChangefeed()
	prefRepo := &fakeFeedPreferenceRepo{prefs: map[int64]preference.Map{
		1: {"EURUSD": preference.InstrumentPreference{Notifications: false}},
	}}
	manager, _ := newTestFeedManager(t, changefeed, prefRepo)

	sub, err := manager.Subscribe(context.Background(), 1)
	require.NoError(t, err)
	defer sub.Close()

	changefeed.rows <- signalRow("n1", 1, "EURUSD")
	assertNoEffect(t, sub)

	rows, ok := manager.cache.Lookup(1)
	require.True(t, ok)
	assert.Len(t, rows, 1)
}

func TestVolumePreferenceGatesSoundCue(t *testing.T) {
	changefeed := newFakeChangefeed()
	prefRepo := &fakeFeedPreferenceRepo{prefs: map[int64]preference.Map{
		1: {"EURUSD": preference.InstrumentPreference{Notifications: true, Volume: false}},
	}}
	manager, sounds := newTestFeedManager(t, changefeed, prefRepo)
	cues, remove := sounds.AddListener(4)
	defer remove()

	sub, err := manager.Subscribe(context.Background(), 1)
	require.NoError(t, err)
	defer sub.Close()

	changefeed.rows <- signalRow("n1", 1, "EURUSD")
	toast := waitForEffect(t, sub)

	assert.Equal(t, effect.CueNone, toast.Cue)
	assert.Empty(t, cues)
}

func TestSignalEffectCarriesClassificationAndCue(t *testing.T) {
	changefeed := newFakeChangefeed()
	prefRepo := &fakeFeedPreferenceRepo{prefs: map[int64]preference.Map{1: allSubscribed("EURUSD")}}
	manager, sounds := newTestFeedManager(t, changefeed, prefRepo)
	cues, remove := sounds.AddListener(4)
	defer remove()

	sub, err := manager.Subscribe(context.Background(), 1)
	require.NoError(t, err)
	defer sub.Close()

	changefeed.rows <- signalRow("n1", 1, "EURUSD")
	toast := waitForEffect(t, sub)

	assert.Equal(t, effect.ToastPositive, toast.Category)
	assert.Equal(t, effect.CueSignalOpened, toast.Cue)
	assert.Equal(t, effect.CueEvent{Cue: effect.CueSignalOpened, Instrument: "EURUSD"}, <-cues)
}

func TestNonSignalRowPlaysGenericAlert(t *testing.T) {
	changefeed := newFakeChangefeed()
	prefRepo := &fakeFeedPreferenceRepo{prefs: map[int64]preference.Map{}}
	manager, _ := newTestFeedManager(t, changefeed, prefRepo)

	sub, err := manager.Subscribe(context.Background(), 1)
	require.NoError(t, err)
	defer sub.Close()

	changefeed.rows <- entity.Notification{
		ID:     "sys1",
		UserID: 1,
		Type:   entity.NotificationTypeSystem,
		Title:  "Maintenance window",
		Body:   "The platform will restart at 03:00 UTC",
	}
	toast := waitForEffect(t, sub)

	assert.Equal(t, effect.ToastInfo, toast.Category)
	assert.Equal(t, effect.CueGenericAlert, toast.Cue)
}
