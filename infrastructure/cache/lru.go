package cache

import (
	"container/list"
	"sync"
)

// NamespaceLRU is a namespace-based LRU cache for raw storage values.
// A capacity of zero or less disables caching.
type NamespaceLRU struct {
	capacity int
	items    map[string]*list.Element
	queue    *list.List
	mutex    sync.Mutex
}

type entry struct {
	namespace string
	key       string
	value     string
}

// NewNamespaceLRU creates a new namespace-based LRU cache with specified capacity
func NewNamespaceLRU(capacity int) *NamespaceLRU {
	return &NamespaceLRU{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		queue:    list.New(),
	}
}

func compositeKey(namespace, key string) string {
	return namespace + ":" + key
}

// Set adds or updates a value in the cache under a namespace
func (c *NamespaceLRU) Set(namespace, key, value string) {
	if c.capacity <= 0 {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	ck := compositeKey(namespace, key)
	if element, exists := c.items[ck]; exists {
		c.queue.MoveToFront(element)
		element.Value.(*entry).value = value
		return
	}

	element := c.queue.PushFront(&entry{
		namespace: namespace,
		key:       key,
		value:     value,
	})
	c.items[ck] = element

	for c.queue.Len() > c.capacity {
		c.evict()
	}
}

// Get retrieves a value and marks it as recently used.
// MoveToFront mutates the queue, so Get takes the write lock.
func (c *NamespaceLRU) Get(namespace, key string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	element, exists := c.items[compositeKey(namespace, key)]
	if !exists {
		return "", false
	}

	c.queue.MoveToFront(element)
	return element.Value.(*entry).value, true
}

// Invalidate removes an item from the cache by namespace and key
func (c *NamespaceLRU) Invalidate(namespace, key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	ck := compositeKey(namespace, key)
	if element, exists := c.items[ck]; exists {
		c.queue.Remove(element)
		delete(c.items, ck)
	}
}

// InvalidateNamespace removes all items from the specified namespace
func (c *NamespaceLRU) InvalidateNamespace(namespace string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for ck, element := range c.items {
		if element.Value.(*entry).namespace == namespace {
			c.queue.Remove(element)
			delete(c.items, ck)
		}
	}
}

// Enabled reports whether the cache keeps anything at all
func (c *NamespaceLRU) Enabled() bool {
	return c.capacity > 0
}

// Size returns the current number of items in the cache
func (c *NamespaceLRU) Size() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.queue.Len()
}

// evict removes the least recently used item. Callers hold the lock.
func (c *NamespaceLRU) evict() {
	element := c.queue.Back()
	if element == nil {
		return
	}

	c.queue.Remove(element)
	e := element.Value.(*entry)
	delete(c.items, compositeKey(e.namespace, e.key))
}
