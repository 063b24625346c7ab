package service

import (
	"context"
	"testing"
	"time"

	"golang-signal-notifier/internal/entity"
	"golang-signal-notifier/internal/watcher/config"
	"golang-signal-notifier/internal/watcher/dto"
	"golang-signal-notifier/pkg/dedupe"
	"golang-signal-notifier/pkg/logger"
	"golang-signal-notifier/pkg/utils"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePreferenceRepo struct {
	subscribers map[string][]entity.UserPreference
}

func (f *fakePreferenceRepo) FindSubscribers(_ context.Context, instrument string) ([]entity.UserPreference, error) {
	return f.subscribers[instrument], nil
}

func (f *fakePreferenceRepo) FindByUserID(_ context.Context, _ int64) (*entity.UserPreference, error) {
	return nil, nil
}

type fakeNotificationRepo struct {
	batches [][]entity.Notification
}

func (f *fakeNotificationRepo) CreateBatch(_ context.Context, notifications []entity.Notification) error {
	f.batches = append(f.batches, notifications)
	return nil
}

type fakePublisher struct {
	channels []string
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, _ interface{}) *redis.IntCmd {
	f.channels = append(f.channels, channel)
	return redis.NewIntCmd(ctx)
}

func newTestWatcher(t *testing.T, prefRepo *fakePreferenceRepo, notifRepo *fakeNotificationRepo, publisher *fakePublisher) SignalWatcherService {
	t.Helper()

	log, err := logger.New("error", "json")
	require.NoError(t, err)

	cfg := &config.Config{
		Watcher: config.Watcher{
			EventDedupeWindow:     time.Minute,
			InstrumentURLTemplate: "/instruments/%s",
		},
	}
	return NewSignalWatcherService(cfg, log, nil, publisher, dedupe.NewGuard(), prefRepo, notifRepo, nil)
}

func subscribersFor(userIDs ...int64) []entity.UserPreference {
	prefs := make([]entity.UserPreference, 0, len(userIDs))
	for _, id := range userIDs {
		prefs = append(prefs, entity.UserPreference{UserID: id})
	}
	return prefs
}

func TestOpenThenCloseProducesExactlyTwoBatches(t *testing.T) {
	prefRepo := &fakePreferenceRepo{subscribers: map[string][]entity.UserPreference{
		"EURUSD": subscribersFor(1, 2),
	}}
	notifRepo := &fakeNotificationRepo{}
	publisher := &fakePublisher{}
	watcher := newTestWatcher(t, prefRepo, notifRepo, publisher)

	open := dto.SignalChangeEvent{Kind: dto.ChangeKindInsert, Row: entity.SignalEvent{
		ClientTradeID: "T1", InstrumentName: "EURUSD", TradeSide: entity.TradeSideBuy, EntryPrice: 1.0820,
	}}
	closed := dto.SignalChangeEvent{Kind: dto.ChangeKindUpdate, Row: entity.SignalEvent{
		ClientTradeID: "T1", InstrumentName: "EURUSD", TradeSide: entity.TradeSideBuy, EntryPrice: 1.0820,
		ExitPrice: utils.ToPointer(1.0850),
	}}

	watcher.HandleEvent(context.Background(), &open)
	watcher.HandleEvent(context.Background(), &closed)

	require.Len(t, notifRepo.batches, 2)
	require.Len(t, notifRepo.batches[0], 2)
	require.Len(t, notifRepo.batches[1], 2)

	opened := notifRepo.batches[0][0]
	assert.Equal(t, entity.NotificationTypeSignal, opened.Type)
	assert.Equal(t, entity.EventKindOpened, opened.EventKind)
	assert.Equal(t, entity.TradeSideBuy, opened.TradeSide)
	assert.Equal(t, "/instruments/EURUSD", opened.URL)
	assert.NotEmpty(t, opened.ID)

	assert.Equal(t, entity.EventKindClosed, notifRepo.batches[1][0].EventKind)

	// One publish per created notification row.
	assert.Len(t, publisher.channels, 4)
	assert.Contains(t, publisher.channels, "notifications.user.1")
	assert.Contains(t, publisher.channels, "notifications.user.2")
}

func TestDuplicateRedeliveryIsAbsorbed(t *testing.T) {
	prefRepo := &fakePreferenceRepo{subscribers: map[string][]entity.UserPreference{
		"EURUSD": subscribersFor(1),
	}}
	notifRepo := &fakeNotificationRepo{}
	watcher := newTestWatcher(t, prefRepo, notifRepo, &fakePublisher{})

	open := dto.SignalChangeEvent{Kind: dto.ChangeKindInsert, Row: entity.SignalEvent{
		ClientTradeID: "T1", InstrumentName: "EURUSD", TradeSide: entity.TradeSideBuy, EntryPrice: 1.0820,
	}}

	watcher.HandleEvent(context.Background(), &open)
	watcher.HandleEvent(context.Background(), &open)
	watcher.HandleEvent(context.Background(), &open)

	assert.Len(t, notifRepo.batches, 1)
}

func TestStandaloneCloseCollapsesToSingleClosedEmission(t *testing.T) {
	prefRepo := &fakePreferenceRepo{subscribers: map[string][]entity.UserPreference{
		"GBPUSD": subscribersFor(7),
	}}
	notifRepo := &fakeNotificationRepo{}
	watcher := newTestWatcher(t, prefRepo, notifRepo, &fakePublisher{})

	// Close arrives with no prior open observed in this process.
	closed := dto.SignalChangeEvent{Kind: dto.ChangeKindUpdate, Row: entity.SignalEvent{
		ClientTradeID: "T9", InstrumentName: "GBPUSD", TradeSide: entity.TradeSideSell, EntryPrice: 1.2600,
		ExitPrice: utils.ToPointer(1.2550),
	}}
	watcher.HandleEvent(context.Background(), &closed)

	require.Len(t, notifRepo.batches, 1)
	assert.Equal(t, entity.EventKindClosed, notifRepo.batches[0][0].EventKind)

	// The trade is terminal afterwards: a late open or another close is a no-op.
	open := dto.SignalChangeEvent{Kind: dto.ChangeKindInsert, Row: entity.SignalEvent{
		ClientTradeID: "T9", InstrumentName: "GBPUSD", TradeSide: entity.TradeSideSell, EntryPrice: 1.2600,
	}}
	watcher.HandleEvent(context.Background(), &open)
	watcher.HandleEvent(context.Background(), &closed)

	assert.Len(t, notifRepo.batches, 1)
}

func TestEmptySubscriberSetWritesNothing(t *testing.T) {
	prefRepo := &fakePreferenceRepo{subscribers: map[string][]entity.UserPreference{}}
	notifRepo := &fakeNotificationRepo{}
	publisher := &fakePublisher{}
	watcher := newTestWatcher(t, prefRepo, notifRepo, publisher)

	open := dto.SignalChangeEvent{Kind: dto.ChangeKindInsert, Row: entity.SignalEvent{
		ClientTradeID: "T1", InstrumentName: "USDJPY", TradeSide: entity.TradeSideBuy, EntryPrice: 154.2,
	}}
	watcher.HandleEvent(context.Background(), &open)

	assert.Empty(t, notifRepo.batches)
	assert.Empty(t, publisher.channels)
}

func TestEventMissingTradeIDIsIgnored(t *testing.T) {
	notifRepo := &fakeNotificationRepo{}
	watcher := newTestWatcher(t, &fakePreferenceRepo{}, notifRepo, &fakePublisher{})

	event := dto.SignalChangeEvent{Kind: dto.ChangeKindInsert, Row: entity.SignalEvent{InstrumentName: "EURUSD"}}
	watcher.HandleEvent(context.Background(), &event)

	assert.Empty(t, notifRepo.batches)
}
