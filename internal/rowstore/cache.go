package rowstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/region23/hotelbot/pkg/metrics"
)

type cacheEntry struct {
	values  [][]string
	expires time.Time
}

// Cached добавляет TTL кэш перед чтениями. Записи синхронно сбрасывают
// все закэшированные диапазоны затронутой вкладки.
type Cached struct {
	next    RowStore
	ttl     time.Duration
	now     func() time.Time
	mu      sync.Mutex
	entries map[string]cacheEntry
	// поколения вкладок; чтение, начатое до записи, не попадает в кэш
	gens  map[string]uint64
	epoch uint64
}

// NewCached создает кэширующую обертку. ttl <= 0 отключает кэш.
func NewCached(next RowStore, ttl time.Duration) *Cached {
	return &Cached{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
		gens:    make(map[string]uint64),
	}
}

func cacheKey(sheet, a1 string) string {
	return sheet + "\x00" + a1
}

// Get возвращает значения из кэша или читает их из хранилища
func (c *Cached) Get(ctx context.Context, sheet, a1 string) ([][]string, error) {
	if c.ttl <= 0 {
		return c.next.Get(ctx, sheet, a1)
	}

	key := cacheKey(sheet, a1)
	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.now().Before(entry.expires) {
		c.mu.Unlock()
		metrics.RecordCacheLookup(true)
		return copyValues(entry.values), nil
	}
	gen, epoch := c.gens[sheet], c.epoch
	c.mu.Unlock()
	metrics.RecordCacheLookup(false)

	values, err := c.next.Get(ctx, sheet, a1)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.gens[sheet] == gen && c.epoch == epoch {
		c.entries[key] = cacheEntry{values: copyValues(values), expires: c.now().Add(c.ttl)}
	}
	c.mu.Unlock()

	return values, nil
}

// Update записывает значения и сбрасывает кэш вкладки
func (c *Cached) Update(ctx context.Context, sheet, a1 string, values [][]string) error {
	if err := c.next.Update(ctx, sheet, a1, values); err != nil {
		return err
	}
	c.Invalidate(sheet)
	return nil
}

// Append добавляет строки и сбрасывает кэш вкладки
func (c *Cached) Append(ctx context.Context, sheet, a1 string, values [][]string) error {
	if err := c.next.Append(ctx, sheet, a1, values); err != nil {
		return err
	}
	c.Invalidate(sheet)
	return nil
}

// Invalidate удаляет все диапазоны вкладки из кэша
func (c *Cached) Invalidate(sheet string) {
	prefix := sheet + "\x00"
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[sheet]++
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Purge очищает кэш полностью
func (c *Cached) Purge() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.epoch++
	c.mu.Unlock()
}

// Uncached возвращает хранилище без кэша для строгих чтений
func (c *Cached) Uncached() RowStore {
	return c.next
}

// Ping проверяет соединение, если хранилище это поддерживает
func (c *Cached) Ping(ctx context.Context) error {
	if p, ok := c.next.(Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func copyValues(values [][]string) [][]string {
	if values == nil {
		return nil
	}
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = append([]string(nil), row...)
	}
	return out
}
