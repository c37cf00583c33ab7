package eventbus

import (
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/eventbus/selector"
)

// handle is one registered subscription.
type handle struct {
	id  string
	ref Ref
}

func newHandle(ref Ref) *handle {
	return &handle{id: uuid.NewString(), ref: ref}
}

// paramList holds the handles of one parameterized selector. Lists for a
// raw type are kept in first-subscribe order.
type paramList struct {
	sel     selector.ParameterizedType
	handles []*handle
}

// patternList holds the handles of one pattern selector, keyed by the
// pattern's source expression.
type patternList struct {
	sel     selector.TopicPattern
	handles []*handle
}

// tables holds every selector bucket for one subscriber kind (event
// subscribers or veto listeners).
type tables struct {
	exact    map[reflect.Type][]*handle
	assign   map[reflect.Type][]*handle
	param    map[reflect.Type][]*paramList
	topics   map[string][]*handle
	patterns map[string]*patternList
}

func newTables() *tables {
	return &tables{
		exact:    make(map[reflect.Type][]*handle),
		assign:   make(map[reflect.Type][]*handle),
		param:    make(map[reflect.Type][]*paramList),
		topics:   make(map[string][]*handle),
		patterns: make(map[string]*patternList),
	}
}

// registry owns every subscription. One lock guards both table sets.
// Mutations hold it for the structural change only; reads copy matching
// handles into resolved snapshots under the lock and release it before
// any subscriber code runs. Subscriber callbacks may therefore
// re-enter subscribe, unsubscribe and publish freely, at the cost of weak
// consistency: a subscriber unsubscribed after a snapshot was taken still
// receives that one event, and a subscriber added during dispatch misses
// the in-flight event.
type registry struct {
	mu    sync.Mutex
	subs  *tables
	vetos *tables
}

func newRegistry() *registry {
	return &registry{subs: newTables(), vetos: newTables()}
}

// upsert removes any handle resolving to the same subscriber as resolved,
// prunes dead weak handles, and appends a fresh handle at the end. It
// reports whether an existing subscription was replaced; either way the
// new handle determines position and strength.
func upsert(list []*handle, ref Ref, resolved any) ([]*handle, bool) {
	replaced := false
	kept := list[:0]
	for _, h := range list {
		v := h.ref.get()
		if v == nil {
			continue
		}
		if identical(v, resolved) {
			replaced = true
			continue
		}
		kept = append(kept, h)
	}
	return append(kept, newHandle(ref)), replaced
}

// addType registers ref under a type selector. It reports true when the
// subscription is new, false when it replaced an existing one.
func (r *registry) addType(tbl *tables, sel selector.Type, ref Ref, resolved any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	var replaced bool
	switch s := sel.(type) {
	case selector.ExactType:
		tbl.exact[s.Type()], replaced = upsert(tbl.exact[s.Type()], ref, resolved)
	case selector.AssignableType:
		tbl.assign[s.Type()], replaced = upsert(tbl.assign[s.Type()], ref, resolved)
	case selector.ParameterizedType:
		raw := s.Raw()
		for _, pl := range tbl.param[raw] {
			if pl.sel.Equal(s) {
				pl.handles, replaced = upsert(pl.handles, ref, resolved)
				return !replaced
			}
		}
		pl := &paramList{sel: s}
		pl.handles, _ = upsert(nil, ref, resolved)
		tbl.param[raw] = append(tbl.param[raw], pl)
	}
	return !replaced
}

// addTopic registers ref under a topic selector.
func (r *registry) addTopic(tbl *tables, sel selector.Topic, ref Ref, resolved any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	var replaced bool
	switch s := sel.(type) {
	case selector.TopicName:
		tbl.topics[s.Topic()], replaced = upsert(tbl.topics[s.Topic()], ref, resolved)
	case selector.TopicPattern:
		pl := tbl.patterns[s.Source()]
		if pl == nil {
			pl = &patternList{sel: s}
			tbl.patterns[s.Source()] = pl
		}
		pl.handles, replaced = upsert(pl.handles, ref, resolved)
	}
	return !replaced
}

// drop removes every handle whose resolved subscriber is identical to
// target, or whose resolved subscriber proxies target. Dead weak handles
// are pruned along the way. Removed proxies are returned so their
// removal hooks can fire after the lock is released.
func drop(list []*handle, target any) ([]*handle, bool, []ProxySubscriber) {
	removed := false
	var proxies []ProxySubscriber
	kept := list[:0]
	for _, h := range list {
		v := h.ref.get()
		if v == nil {
			continue
		}
		match := identical(v, target)
		p, isProxy := v.(ProxySubscriber)
		if !match && isProxy {
			match = identical(p.Proxied(), target)
		}
		if !match {
			kept = append(kept, h)
			continue
		}
		removed = true
		if isProxy {
			proxies = append(proxies, p)
		}
	}
	return kept, removed, proxies
}

// removeType unsubscribes target from a type selector.
func (r *registry) removeType(tbl *tables, sel selector.Type, target any) (bool, []ProxySubscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch s := sel.(type) {
	case selector.ExactType:
		kept, removed, proxies := drop(tbl.exact[s.Type()], target)
		storeList(tbl.exact, s.Type(), kept)
		return removed, proxies
	case selector.AssignableType:
		kept, removed, proxies := drop(tbl.assign[s.Type()], target)
		storeList(tbl.assign, s.Type(), kept)
		return removed, proxies
	case selector.ParameterizedType:
		raw := s.Raw()
		for _, pl := range tbl.param[raw] {
			if !pl.sel.Equal(s) {
				continue
			}
			var removed bool
			var proxies []ProxySubscriber
			pl.handles, removed, proxies = drop(pl.handles, target)
			r.compactParam(tbl, raw)
			return removed, proxies
		}
	}
	return false, nil
}

// removeTopic unsubscribes target from a topic selector.
func (r *registry) removeTopic(tbl *tables, sel selector.Topic, target any) (bool, []ProxySubscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch s := sel.(type) {
	case selector.TopicName:
		kept, removed, proxies := drop(tbl.topics[s.Topic()], target)
		storeList(tbl.topics, s.Topic(), kept)
		return removed, proxies
	case selector.TopicPattern:
		pl := tbl.patterns[s.Source()]
		if pl == nil {
			return false, nil
		}
		var removed bool
		var proxies []ProxySubscriber
		pl.handles, removed, proxies = drop(pl.handles, target)
		if len(pl.handles) == 0 {
			delete(tbl.patterns, s.Source())
		}
		return removed, proxies
	}
	return false, nil
}

// storeList writes a bucket back, deleting emptied keys.
func storeList[K comparable](m map[K][]*handle, key K, list []*handle) {
	if len(list) == 0 {
		delete(m, key)
		return
	}
	m[key] = list
}

// compactParam drops emptied parameterized lists for raw. Callers hold
// r.mu.
func (r *registry) compactParam(tbl *tables, raw reflect.Type) {
	lists := tbl.param[raw]
	kept := lists[:0]
	for _, pl := range lists {
		if len(pl.handles) > 0 {
			kept = append(kept, pl)
		}
	}
	if len(kept) == 0 {
		delete(tbl.param, raw)
		return
	}
	tbl.param[raw] = kept
}

// resolveList resolves every live handle into out, returning the pruned
// handle list alongside. Callers hold r.mu.
func resolveList(out []any, list []*handle) ([]any, []*handle) {
	kept := list[:0]
	for _, h := range list {
		if v := h.ref.get(); v != nil {
			out = append(out, v)
			kept = append(kept, h)
		}
	}
	return out, kept
}

// snapshotType returns the resolved subscribers matching a typed
// publication, in dispatch order: exact selectors first, then
// parameterized selectors when a descriptor was published, then
// assignable selectors ordered by type string. Within one selector,
// subscription order is preserved. Ordering across distinct selectors in
// a group carries no FIFO-by-subscribe-time guarantee; the sort merely
// keeps it stable.
func (r *registry) snapshotType(tbl *tables, t reflect.Type, desc *selector.Descriptor) []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []any
	if list, ok := tbl.exact[t]; ok {
		out, list = resolveList(out, list)
		storeList(tbl.exact, t, list)
	}

	if desc != nil {
		for _, pl := range tbl.param[desc.Raw] {
			if pl.sel.MatchesDescriptor(*desc) {
				out, pl.handles = resolveList(out, pl.handles)
			}
		}
		r.compactParam(tbl, desc.Raw)
	}

	var keys []reflect.Type
	for k := range tbl.assign {
		if t.AssignableTo(k) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, k := range keys {
		var kept []*handle
		out, kept = resolveList(out, tbl.assign[k])
		storeList(tbl.assign, k, kept)
	}
	return out
}

// snapshotTopic returns the resolved subscribers matching a topic
// publication: exact-name selectors first, then pattern selectors ordered
// by source expression.
func (r *registry) snapshotTopic(tbl *tables, topic string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []any
	if list, ok := tbl.topics[topic]; ok {
		out, list = resolveList(out, list)
		storeList(tbl.topics, topic, list)
	}

	var srcs []string
	for src, pl := range tbl.patterns {
		if pl.sel.MatchesTopic(topic) {
			srcs = append(srcs, src)
		}
	}
	sort.Strings(srcs)
	for _, src := range srcs {
		pl := tbl.patterns[src]
		out, pl.handles = resolveList(out, pl.handles)
		if len(pl.handles) == 0 {
			delete(tbl.patterns, src)
		}
	}
	return out
}

// listType returns the resolved subscribers of one type selector, in
// subscription order.
func (r *registry) listType(tbl *tables, sel selector.Type) []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []any
	switch s := sel.(type) {
	case selector.ExactType:
		var kept []*handle
		out, kept = resolveList(out, tbl.exact[s.Type()])
		storeList(tbl.exact, s.Type(), kept)
	case selector.AssignableType:
		var kept []*handle
		out, kept = resolveList(out, tbl.assign[s.Type()])
		storeList(tbl.assign, s.Type(), kept)
	case selector.ParameterizedType:
		for _, pl := range tbl.param[s.Raw()] {
			if pl.sel.Equal(s) {
				out, pl.handles = resolveList(out, pl.handles)
				break
			}
		}
		r.compactParam(tbl, s.Raw())
	}
	return out
}

// listTopic returns the resolved subscribers of one topic selector.
func (r *registry) listTopic(tbl *tables, sel selector.Topic) []any {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []any
	switch s := sel.(type) {
	case selector.TopicName:
		var kept []*handle
		out, kept = resolveList(out, tbl.topics[s.Topic()])
		storeList(tbl.topics, s.Topic(), kept)
	case selector.TopicPattern:
		pl := tbl.patterns[s.Source()]
		if pl == nil {
			return nil
		}
		out, pl.handles = resolveList(out, pl.handles)
		if len(pl.handles) == 0 {
			delete(tbl.patterns, s.Source())
		}
	}
	return out
}

// clearAll atomically empties every bucket of both table sets. The table
// pointers never change after construction, so concurrent callers holding
// them see the cleared maps.
func (r *registry) clearAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs.clearAll()
	r.vetos.clearAll()
}

func (t *tables) clearAll() {
	clear(t.exact)
	clear(t.assign)
	clear(t.param)
	clear(t.topics)
	clear(t.patterns)
}
