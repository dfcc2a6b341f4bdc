package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vapecity/vapecity-api/models"
	"github.com/vapecity/vapecity-api/services"
	"gorm.io/gorm"
)

// ManagerOptions configures the seller bot manager
type ManagerOptions struct {
	// FallbackToken is used when the bot_token setting is empty
	FallbackToken string
	Factory       ClientFactory
	Logger        *slog.Logger
}

// Manager owns the seller bot's lifetime. The token can be swapped at
// runtime; starting with the token already in use is a no-op.
type Manager struct {
	db           *gorm.DB
	reservations *services.ReservationService
	handler      *SellerBot
	factory      ClientFactory
	fallback     string
	logger       *slog.Logger

	mu     sync.Mutex
	client Client
	poller *Poller
	token  string

	pending sync.WaitGroup
}

// NewManager creates a stopped manager
func NewManager(db *gorm.DB, reservations *services.ReservationService, opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	factory := opts.Factory
	if factory == nil {
		factory = NewTelegramClient
	}
	logger = logger.With("component", "seller_bot")
	return &Manager{
		db:           db,
		reservations: reservations,
		handler:      NewSellerBot(db, reservations, logger),
		factory:      factory,
		fallback:     opts.FallbackToken,
		logger:       logger,
	}
}

func (m *Manager) resolveToken(token string) (string, error) {
	if token != "" {
		return token, nil
	}
	stored, err := services.GetSetting(context.Background(), m.db, models.SettingBotToken)
	if err != nil {
		return "", err
	}
	if stored != "" {
		return stored, nil
	}
	if m.fallback != "" {
		return m.fallback, nil
	}
	return "", services.ErrNoBotToken
}

// Start connects with token (or the stored/fallback token when empty) and
// begins polling, replacing a bot running with a different token.
func (m *Manager) Start(token string) error {
	resolved, err := m.resolveToken(token)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.poller != nil && resolved == m.token {
		m.logger.Info("seller bot already running with this token")
		return nil
	}

	client, err := m.factory(resolved)
	if err != nil {
		return fmt.Errorf("failed to start seller bot: %w", err)
	}

	if m.poller != nil {
		m.logger.Info("restarting seller bot with a new token")
		m.poller.Stop()
	}

	m.client = client
	m.token = resolved
	m.poller = NewPoller(sellerBotName, client, m.handler, m.logger)
	m.poller.Start(context.Background())
	return nil
}

// Stop stops polling; pending notifications are still delivered
func (m *Manager) Stop() {
	m.mu.Lock()
	poller := m.poller
	m.poller = nil
	m.client = nil
	m.token = ""
	m.mu.Unlock()

	if poller != nil {
		poller.Stop()
	}
}

// IsRunning reports whether the seller bot is polling
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.poller != nil
}

// Wait blocks until in-flight notifications are sent
func (m *Manager) Wait() {
	m.pending.Wait()
}

// NotifyNewReservation pushes a new order to every seller of its store.
// Sending happens in the background and never fails the caller.
func (m *Manager) NotifyNewReservation(ctx context.Context, reservationID uint) {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()

	if client == nil {
		m.logger.Warn("seller bot is not running, notification skipped", "reservation_id", reservationID)
		return
	}

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		m.notify(context.WithoutCancel(ctx), client, reservationID)
	}()
}

func (m *Manager) notify(ctx context.Context, client Client, reservationID uint) {
	details, err := m.reservations.GetByID(ctx, reservationID)
	if err != nil {
		m.logger.Error("failed to load reservation for notification", "reservation_id", reservationID, "error", err)
		return
	}
	if details.StoreID == nil {
		m.logger.Warn("reservation has no store, notification skipped", "reservation_id", reservationID)
		return
	}

	var sellers []models.StoreSeller
	if err := m.db.WithContext(ctx).Where("store_id = ?", *details.StoreID).Find(&sellers).Error; err != nil {
		m.logger.Error("failed to load store sellers", "store_id", *details.StoreID, "error", err)
		return
	}
	if len(sellers) == 0 {
		m.logger.Warn("no sellers for store", "store_id", *details.StoreID)
		return
	}

	flow := m.reservations.Flow()
	text := formatNotification(details, flow)
	keyboard := notificationKeyboard(flow, details.Status, reservationID, *details.StoreID)
	delivered := 0
	for _, seller := range sellers {
		if send(client, m.logger, sellerBotName, htmlMessage(seller.TelegramID, text, keyboard)) {
			delivered++
		}
	}
	m.logger.Info("new reservation notification sent", "reservation_id", reservationID, "sellers", len(sellers), "delivered", delivered)
}
