package preview

import (
	"container/list"
	"image"
	"sync"

	"github.com/pagetailor/pagetailor/internal/model"
)

// DefaultCapacity is the default number of thumbnails kept in memory.
// Thumbnails are small (a few hundred KB each), so a generous default
// keeps repeated preview lookups cheap during a long batch.
const DefaultCapacity = 128

// Key identifies one cached thumbnail: a page rendered at a requested size.
type Key struct {
	// Page is the logical page the thumbnail belongs to.
	Page model.PageID

	// Width and Height are the requested thumbnail dimensions in pixels.
	Width  int
	Height int
}

// Cache is a bounded LRU cache of rendered thumbnails.
//
// Design decision: We implement the LRU with container/list plus a map
// instead of pulling in a cache library; the policy is a dozen lines and
// the cache needs a composite struct key, which keeps generic cache
// libraries from buying us anything.
type Cache struct {
	mu sync.Mutex

	// capacity is the maximum number of entries; fixed at construction.
	capacity int

	// order tracks recency; front is most recently used.
	order *list.List

	// entries maps keys to their list element for O(1) lookup.
	entries map[Key]*list.Element
}

// entry is the value stored in the recency list.
type entry struct {
	key Key
	img image.Image
}

// NewCache creates a Cache holding at most capacity entries.
// A non-positive capacity falls back to DefaultCapacity.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[Key]*list.Element),
	}
}

// Get returns the cached thumbnail for the key, or nil on a miss.
// A hit marks the entry as most recently used.
func (c *Cache) Get(key Key) image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*entry).img
}

// Put stores a thumbnail under the key, evicting the least recently used
// entry if the cache is at capacity. Storing an existing key refreshes its
// value and recency.
func (c *Cache) Put(key Key, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*entry).img = img
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry).key)
		}
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, img: img})
}

// Len returns the current number of cached thumbnails.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity returns the fixed entry capacity.
func (c *Cache) Capacity() int {
	return c.capacity
}

// Flush discards every cached thumbnail.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.entries = make(map[Key]*list.Element)
}
