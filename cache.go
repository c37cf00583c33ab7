package eventbus

import (
	"reflect"
	"sort"
	"sync"

	"github.com/dshills/eventbus/selector"
)

// patternSize is an explicit cache size for topics matching a pattern.
// Entries keep registration order; the first match wins.
type patternSize struct {
	sel  selector.TopicPattern
	size int
}

// cache holds bounded most-recent-first event histories per runtime type
// and per topic name. Sizes resolve lazily on each publish: an explicit
// size for the key, else the first applicable inherited size (assignable
// type keys ordered by type string, patterns in registration order),
// else the default. A resolved size of zero or less disables caching for
// the key and drops its bucket.
//
// The cache has its own lock, independent of the registry, so cache
// accessors never contend with subscription changes.
type cache struct {
	mu sync.Mutex

	defaultSize  int
	typeSizes    map[reflect.Type]int
	topicSizes   map[string]int
	patternSizes []patternSize

	types  map[reflect.Type][]any
	topics map[string][]any
}

func newCache(defaultSize int) *cache {
	return &cache{
		defaultSize: defaultSize,
		typeSizes:   make(map[reflect.Type]int),
		topicSizes:  make(map[string]int),
		types:       make(map[reflect.Type][]any),
		topics:      make(map[string][]any),
	}
}

// resolveTypeSize picks the effective size for a published type. Callers
// hold c.mu.
func (c *cache) resolveTypeSize(t reflect.Type) int {
	if size, ok := c.typeSizes[t]; ok {
		return size
	}
	var keys []reflect.Type
	for k := range c.typeSizes {
		if k != t && t.AssignableTo(k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return c.defaultSize
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return c.typeSizes[keys[0]]
}

// resolveTopicSize picks the effective size for a published topic.
// Callers hold c.mu.
func (c *cache) resolveTopicSize(name string) int {
	if size, ok := c.topicSizes[name]; ok {
		return size
	}
	for _, ps := range c.patternSizes {
		if ps.sel.MatchesTopic(name) {
			return ps.size
		}
	}
	return c.defaultSize
}

func (c *cache) addType(t reflect.Type, event any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	size := c.resolveTypeSize(t)
	if size <= 0 {
		delete(c.types, t)
		return
	}
	bucket := append([]any{event}, c.types[t]...)
	if len(bucket) > size {
		bucket = bucket[:size]
	}
	c.types[t] = bucket
}

func (c *cache) addTopic(name string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	size := c.resolveTopicSize(name)
	if size <= 0 {
		delete(c.topics, name)
		return
	}
	bucket := append([]any{payload}, c.topics[name]...)
	if len(bucket) > size {
		bucket = bucket[:size]
	}
	c.topics[name] = bucket
}

// assignableBucket finds the first non-empty bucket whose key type is
// assignable to t, ordered by type string. Callers hold c.mu.
func (c *cache) assignableBucket(t reflect.Type) []any {
	var keys []reflect.Type
	for k, bucket := range c.types {
		if k != t && len(bucket) > 0 && k.AssignableTo(t) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return c.types[keys[0]]
}

func (c *cache) lastType(t reflect.Type) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bucket := c.types[t]; len(bucket) > 0 {
		return bucket[0]
	}
	if bucket := c.assignableBucket(t); len(bucket) > 0 {
		return bucket[0]
	}
	return nil
}

func (c *cache) historyType(t reflect.Type) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket := c.types[t]
	if len(bucket) == 0 {
		bucket = c.assignableBucket(t)
	}
	if len(bucket) == 0 {
		return nil
	}
	out := make([]any, len(bucket))
	copy(out, bucket)
	return out
}

func (c *cache) lastTopic(name string) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if bucket := c.topics[name]; len(bucket) > 0 {
		return bucket[0]
	}
	return nil
}

func (c *cache) historyTopic(name string) []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket := c.topics[name]
	if len(bucket) == 0 {
		return nil
	}
	out := make([]any, len(bucket))
	copy(out, bucket)
	return out
}

// clearType drops the bucket for t and every bucket whose key is
// assignable to t, so clearing an interface type clears its
// implementations too.
func (c *cache) clearType(t reflect.Type) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.types {
		if k == t || k.AssignableTo(t) {
			delete(c.types, k)
		}
	}
}

func (c *cache) clearTopic(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.topics, name)
}

func (c *cache) clearPattern(p selector.TopicPattern) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for name := range c.topics {
		if p.MatchesTopic(name) {
			delete(c.topics, name)
		}
	}
}

// clearAll drops cached data. Size configuration is kept.
func (c *cache) clearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.types)
	clear(c.topics)
}

func (c *cache) setDefaultSize(size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaultSize = size
}

func (c *cache) getDefaultSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.defaultSize
}

func (c *cache) setTypeSize(t reflect.Type, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.typeSizes[t] = size
}

func (c *cache) setTopicSize(name string, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topicSizes[name] = size
}

func (c *cache) setPatternSize(p selector.TopicPattern, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ps := range c.patternSizes {
		if ps.sel.Source() == p.Source() {
			c.patternSizes[i].size = size
			return
		}
	}
	c.patternSizes = append(c.patternSizes, patternSize{sel: p, size: size})
}

// SetDefaultCacheSize sets the size used when no explicit or inherited
// size applies. The service starts with a default of zero, which
// disables caching.
func (s *service) SetDefaultCacheSize(size int) { s.cache.setDefaultSize(size) }

// DefaultCacheSize returns the current default size.
func (s *service) DefaultCacheSize() int { return s.cache.getDefaultSize() }

// SetCacheSizeFor sets the cache size for events of type t. Publishes of
// types assignable to t inherit the size unless a closer setting exists.
func (s *service) SetCacheSizeFor(t reflect.Type, size int) {
	if t == nil {
		return
	}
	s.cache.setTypeSize(t, size)
}

// SetCacheSizeForTopic sets the cache size for one topic name.
func (s *service) SetCacheSizeForTopic(topic string, size int) {
	if topic == "" {
		return
	}
	s.cache.setTopicSize(topic, size)
}

// SetCacheSizeForPattern sets the cache size for topics matching p.
// Setting the same pattern source again updates it in place.
func (s *service) SetCacheSizeForPattern(p selector.TopicPattern, size int) {
	s.cache.setPatternSize(p, size)
}

// LastEvent returns the most recently cached event of type t, or of the
// first caching type assignable to t, or nil.
func (s *service) LastEvent(t reflect.Type) any {
	if t == nil {
		return nil
	}
	return s.cache.lastType(t)
}

// EventHistory returns a copy of the cached history for t, most recent
// first, with the same fallback as LastEvent.
func (s *service) EventHistory(t reflect.Type) []any {
	if t == nil {
		return nil
	}
	return s.cache.historyType(t)
}

// LastTopicPayload returns the most recently cached payload on topic.
func (s *service) LastTopicPayload(topic string) any { return s.cache.lastTopic(topic) }

// TopicPayloadHistory returns a copy of the cached payload history for
// topic, most recent first.
func (s *service) TopicPayloadHistory(topic string) []any { return s.cache.historyTopic(topic) }

// ClearCacheFor drops cached events of type t and of types assignable
// to t.
func (s *service) ClearCacheFor(t reflect.Type) {
	if t == nil {
		return
	}
	s.cache.clearType(t)
}

// ClearCacheForTopic drops the cached payloads of one topic.
func (s *service) ClearCacheForTopic(topic string) { s.cache.clearTopic(topic) }

// ClearCacheForPattern drops cached payloads of every topic matching p.
func (s *service) ClearCacheForPattern(p selector.TopicPattern) { s.cache.clearPattern(p) }

// ClearCache drops all cached events and payloads. Size settings are
// kept.
func (s *service) ClearCache() { s.cache.clearAll() }
