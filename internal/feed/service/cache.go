package service

import (
	"sync"

	"golang-signal-notifier/internal/entity"
)

// Cache is the per-user, read-optimized notification cache shared by the
// feed manager and the mutation service. Lists are newest first by arrival.
// A user key being present means the cache was warmed for that user, even if
// the list is empty.
type Cache struct {
	mu   sync.RWMutex
	rows map[int64][]entity.Notification
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{rows: make(map[int64][]entity.Notification)}
}

// Prepend inserts a row at the head of the user's list. It reports false if
// a row with the same id is already cached, in which case nothing changes.
func (c *Cache) Prepend(userID int64, n entity.Notification) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.rows[userID] {
		if existing.ID == n.ID {
			return false
		}
	}
	c.rows[userID] = append([]entity.Notification{n}, c.rows[userID]...)
	return true
}

// Lookup returns a copy of the user's cached list and whether the cache has
// been warmed for that user.
func (c *Cache) Lookup(userID int64) ([]entity.Notification, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, ok := c.rows[userID]
	if !ok {
		return nil, false
	}
	out := make([]entity.Notification, len(rows))
	copy(out, rows)
	return out, true
}

// Replace swaps the user's cached list wholesale.
func (c *Cache) Replace(userID int64, rows []entity.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	copied := make([]entity.Notification, len(rows))
	copy(copied, rows)
	c.rows[userID] = copied
}

// MarkRead flips a single cached row to read.
func (c *Cache) MarkRead(userID int64, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := c.rows[userID]
	for i := range rows {
		if rows[i].ID == id {
			rows[i].IsRead = true
			return
		}
	}
}

// MarkAllRead flips every cached row for the user to read.
func (c *Cache) MarkAllRead(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := c.rows[userID]
	for i := range rows {
		rows[i].IsRead = true
	}
}

// Clear empties the user's cached list while keeping it warmed.
func (c *Cache) Clear(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows[userID] = []entity.Notification{}
}

// UnreadCount counts unread cached rows for the user.
func (c *Cache) UnreadCount(userID int64) int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	count := 0
	for _, n := range c.rows[userID] {
		if !n.IsRead {
			count++
		}
	}
	return count
}

// Evict drops the user's cached list entirely.
func (c *Cache) Evict(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rows, userID)
}
