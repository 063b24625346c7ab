package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"golang-signal-notifier/internal/entity"
	"golang-signal-notifier/internal/watcher/config"
	"golang-signal-notifier/internal/watcher/dto"
	"golang-signal-notifier/internal/watcher/repository"
	"golang-signal-notifier/pkg/common"
	"golang-signal-notifier/pkg/dedupe"
	"golang-signal-notifier/pkg/logger"
	"golang-signal-notifier/pkg/telegram"
	"golang-signal-notifier/pkg/utils"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// tradeState tracks the lifecycle of one clientTradeID within this process.
// Absent means unseen.
type tradeState int

const (
	tradeStateOpen tradeState = iota + 1
	tradeStateClosed
)

// EventPublisher publishes created notification rows to their per-user
// changefeed channel. Satisfied by *redis.Client.
type EventPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// SignalWatcherService turns the raw signal changefeed into at-most-one
// durable notification per subscriber per lifecycle transition.
type SignalWatcherService interface {
	ProcessEvent(ctx context.Context)
	HandleEvent(ctx context.Context, event *dto.SignalChangeEvent)
}

type signalWatcherService struct {
	cfg         *config.Config
	log         *logger.Logger
	redisClient *redis.Client
	publisher   EventPublisher
	guard       *dedupe.Guard
	prefRepo    repository.UserPreferenceRepository
	notifRepo   repository.NotificationRepository
	telegramBot telegram.Notifier

	mu     sync.Mutex
	trades map[string]tradeState
}

// NewSignalWatcherService creates a new SignalWatcherService.
func NewSignalWatcherService(
	cfg *config.Config,
	log *logger.Logger,
	redisClient *redis.Client,
	publisher EventPublisher,
	guard *dedupe.Guard,
	prefRepo repository.UserPreferenceRepository,
	notifRepo repository.NotificationRepository,
	telegramBot telegram.Notifier,
) SignalWatcherService {
	return &signalWatcherService{
		cfg:         cfg,
		log:         log,
		redisClient: redisClient,
		publisher:   publisher,
		guard:       guard,
		prefRepo:    prefRepo,
		notifRepo:   notifRepo,
		telegramBot: telegramBot,
		trades:      make(map[string]tradeState),
	}
}

// ProcessEvent reads and handles a single message from the signal stream.
func (s *signalWatcherService) ProcessEvent(ctx context.Context) {
	streams, err := s.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamSignalEvents, ">"}, // ">" means only new messages
		Count:    1,
		Block:    2 * time.Second, // Block for 2 seconds to allow graceful shutdown
	}).Result()
	if err != nil {
		// Ignore context cancellation and timeout errors, as they are expected during shutdown or idle periods.
		if err == context.Canceled || err == redis.Nil {
			return
		}
		s.log.Error("Failed to read from stream", logger.ErrorField(err))
		return
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return
	}

	message := streams[0].Messages[0]

	payload, ok := message.Values["payload"].(string)
	if !ok {
		s.log.Error("field 'payload' not found or not a string in stream message", logger.Field("message_id", message.ID))
		s.ack(ctx, message.ID)
		return
	}

	var event dto.SignalChangeEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		s.log.Error("Failed to unmarshal signal change event", logger.ErrorField(err), logger.Field("message_id", message.ID))
		s.ack(ctx, message.ID)
		return
	}

	s.HandleEvent(ctx, &event)
	s.ack(ctx, message.ID)
}

func (s *signalWatcherService) ack(ctx context.Context, messageID string) {
	if err := s.redisClient.XAck(ctx, common.RedisStreamSignalEvents, common.RedisStreamGroup, messageID).Err(); err != nil {
		s.log.Error("Failed to acknowledge message", logger.ErrorField(err), logger.Field("message_id", messageID))
	}
}

// HandleEvent classifies one changefeed row and fans out notifications for
// the resulting transition, if any.
func (s *signalWatcherService) HandleEvent(ctx context.Context, event *dto.SignalChangeEvent) {
	row := &event.Row
	if row.ClientTradeID == "" {
		s.log.Error("Signal event missing client trade id", logger.Field("kind", event.Kind))
		return
	}

	kind, ok := s.transition(row)
	if !ok {
		return
	}

	dedupeKey := row.ClientTradeID
	if kind == entity.EventKindClosed {
		dedupeKey = "exit_" + row.ClientTradeID
	}
	if !s.guard.ShouldDispatch(dedupeKey, s.cfg.Watcher.EventDedupeWindow) {
		s.log.DebugContext(ctx, "Duplicate signal event suppressed",
			logger.StringField("client_trade_id", row.ClientTradeID),
			logger.StringField("event_kind", string(kind)))
		return
	}

	s.log.Info("Signal event classified",
		logger.StringField("client_trade_id", row.ClientTradeID),
		logger.StringField("instrument", row.InstrumentName),
		logger.StringField("event_kind", string(kind)))

	s.fanOut(ctx, row, kind)
	s.forwardToTelegram(row, kind)
}

// transition advances the per-trade state machine and reports which lifecycle
// transition the row produced. The lock is held only across the check-and-set
// so concurrent handlers cannot double-classify.
func (s *signalWatcherService) transition(row *entity.SignalEvent) (entity.EventKind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.trades[row.ClientTradeID]

	if row.ExitPrice == nil {
		if state != 0 {
			return "", false
		}
		s.trades[row.ClientTradeID] = tradeStateOpen
		return entity.EventKindOpened, true
	}

	if state == tradeStateClosed {
		return "", false
	}
	// A close with no recorded open is a coalesced opened+closed pair; it
	// still collapses to a single closed emission.
	s.trades[row.ClientTradeID] = tradeStateClosed
	return entity.EventKindClosed, true
}

func (s *signalWatcherService) fanOut(ctx context.Context, row *entity.SignalEvent, kind entity.EventKind) {
	subscribers, err := s.prefRepo.FindSubscribers(ctx, row.InstrumentName)
	if err != nil {
		s.log.Error("Failed to resolve subscribers", logger.ErrorField(err), logger.StringField("instrument", row.InstrumentName))
		return
	}
	if len(subscribers) == 0 {
		s.log.DebugContext(ctx, "No subscribers for instrument", logger.StringField("instrument", row.InstrumentName))
		return
	}

	notifications := make([]entity.Notification, 0, len(subscribers))
	for _, sub := range subscribers {
		notifications = append(notifications, s.buildNotification(sub.UserID, row, kind))
	}

	if err := s.notifRepo.CreateBatch(ctx, notifications); err != nil {
		// Non-fatal: the batch is not retried, the watcher keeps processing.
		s.log.Error("Failed to insert notification batch",
			logger.ErrorField(err),
			logger.StringField("client_trade_id", row.ClientTradeID),
			logger.IntField("count", len(notifications)))
		return
	}

	for i := range notifications {
		s.publish(ctx, &notifications[i])
	}
}

func (s *signalWatcherService) buildNotification(userID int64, row *entity.SignalEvent, kind entity.EventKind) entity.Notification {
	var title, body string
	switch kind {
	case entity.EventKindOpened:
		title = fmt.Sprintf("Signal opened: %s", row.InstrumentName)
		body = fmt.Sprintf("New %s signal on %s at %.5f", row.TradeSide, row.InstrumentName, row.EntryPrice)
	case entity.EventKindClosed:
		exit := 0.0
		if row.ExitPrice != nil {
			exit = *row.ExitPrice
		}
		title = fmt.Sprintf("Signal closed: %s", row.InstrumentName)
		body = fmt.Sprintf("%s signal on %s closed at %.5f", row.TradeSide, row.InstrumentName, exit)
	}

	return entity.Notification{
		ID:             uuid.NewString(),
		UserID:         userID,
		Type:           entity.NotificationTypeSignal,
		Title:          title,
		Body:           body,
		URL:            fmt.Sprintf(s.cfg.Watcher.InstrumentURLTemplate, row.InstrumentName),
		EventKind:      kind,
		TradeSide:      row.TradeSide,
		InstrumentName: row.InstrumentName,
		CreatedAt:      time.Now(),
	}
}

func (s *signalWatcherService) publish(ctx context.Context, notification *entity.Notification) {
	payload, err := json.Marshal(notification)
	if err != nil {
		s.log.Error("Failed to marshal notification", logger.ErrorField(err), logger.StringField("notification_id", notification.ID))
		return
	}
	channel := common.UserNotificationChannel(notification.UserID)
	if err := s.publisher.Publish(ctx, channel, payload).Err(); err != nil {
		s.log.Error("Failed to publish notification", logger.ErrorField(err), logger.StringField("channel", channel))
	}
}

// forwardToTelegram sends the classified event to the out-of-band channel.
// Fire and forget: failure never affects the durable fan-out or blocks the
// consumer loop.
func (s *signalWatcherService) forwardToTelegram(row *entity.SignalEvent, kind entity.EventKind) {
	if s.telegramBot == nil {
		return
	}
	event := *row
	utils.GoSafe(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		message := telegram.FormatSignalEventForTelegram(&event, kind)
		if err := s.telegramBot.SendMessage(ctx, message); err != nil {
			s.log.Error("Failed to forward signal event to telegram",
				logger.ErrorField(err),
				logger.StringField("client_trade_id", event.ClientTradeID))
		}
	})
}
