// Package script exposes an event service to Lua through gopher-lua.
//
// A Module binds one Bus to one *lua.LState and loads a table with
// subscribe, once, unsubscribe, and publish functions. Handler functions
// are pinned in a module-owned table so Lua's collector cannot reclaim
// them while subscribed.
//
// gopher-lua states are not goroutine-safe, so neither is the Module:
// drive it, and every publication that can reach its handlers, from the
// goroutine that owns the state. The uiloop package provides the
// marshaling when publishers live elsewhere.
package script

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/eventbus"
	"github.com/dshills/eventbus/selector"
)

// Module bridges a Bus into a Lua state.
type Module struct {
	bus eventbus.Bus
	log zerolog.Logger

	L        *lua.LState
	handlers *lua.LTable
	subs     map[string]*luaSub
}

// NewModule returns a module publishing and subscribing on bus. Handler
// errors are reported through log.
func NewModule(bus eventbus.Bus, log zerolog.Logger) *Module {
	return &Module{bus: bus, log: log, subs: make(map[string]*luaSub)}
}

// Loader pushes the module table; use it with
// L.PreloadModule("eventbus", m.Loader).
//
// The Lua surface:
//
//	subscribe(topic, fn) -> id
//	once(topic, fn) -> id
//	unsubscribe(id) -> bool
//	publish(topic, value)
func (m *Module) Loader(L *lua.LState) int {
	m.L = L
	m.handlers = L.NewTable()

	mod := L.SetFuncs(L.NewTable(), map[string]lua.LGFunction{
		"subscribe":   m.subscribe,
		"once":        m.once,
		"unsubscribe": m.unsubscribe,
		"publish":     m.publish,
	})
	// Pins handler functions against Lua GC while subscribed.
	L.SetField(mod, "_handlers", m.handlers)
	L.Push(mod)
	return 1
}

// Close unsubscribes every handler and releases its pin. Call it when
// the Lua state is being shut down.
func (m *Module) Close() {
	for id := range m.subs {
		m.remove(id)
	}
}

// subscribe(topic, fn) -> id
func (m *Module) subscribe(L *lua.LState) int {
	return m.add(L, false)
}

// once(topic, fn) -> id
func (m *Module) once(L *lua.LState) int {
	return m.add(L, true)
}

func (m *Module) add(L *lua.LState, once bool) int {
	topic := L.CheckString(1)
	fn := L.CheckFunction(2)
	if topic == "" {
		L.ArgError(1, "topic cannot be empty")
		return 0
	}

	sub := &luaSub{
		id:    uuid.NewString(),
		topic: topic,
		fn:    fn,
		once:  once,
		m:     m,
	}
	m.handlers.RawSetString(sub.id, fn)
	m.subs[sub.id] = sub
	if _, err := m.bus.SubscribeTopic(selector.Name(topic), sub); err != nil {
		m.handlers.RawSetString(sub.id, lua.LNil)
		delete(m.subs, sub.id)
		L.RaiseError("subscribe: %v", err)
		return 0
	}
	L.Push(lua.LString(sub.id))
	return 1
}

// unsubscribe(id) -> bool
func (m *Module) unsubscribe(L *lua.LState) int {
	id := L.CheckString(1)
	L.Push(lua.LBool(m.remove(id)))
	return 1
}

// publish(topic, value)
func (m *Module) publish(L *lua.LState) int {
	topic := L.CheckString(1)
	if topic == "" {
		L.ArgError(1, "topic cannot be empty")
		return 0
	}
	var payload any
	if L.GetTop() >= 2 {
		payload = fromLValue(L.Get(2))
	}
	if err := m.bus.PublishTopic(context.Background(), topic, payload); err != nil {
		L.RaiseError("publish: %v", err)
	}
	return 0
}

func (m *Module) remove(id string) bool {
	sub, ok := m.subs[id]
	if !ok {
		return false
	}
	delete(m.subs, id)
	m.handlers.RawSetString(id, lua.LNil)
	_, _ = m.bus.UnsubscribeTopic(selector.Name(sub.topic), sub)
	return true
}

// luaSub carries one pinned Lua function. Each subscription is a
// distinct pointer, so two subscriptions of the same function keep
// separate identities on the bus.
type luaSub struct {
	id    string
	topic string
	fn    *lua.LFunction
	once  bool
	m     *Module
}

// OnTopic implements eventbus.TopicSubscriber. Lua errors are logged,
// never surfaced as subscriber faults.
func (s *luaSub) OnTopic(_ context.Context, topic string, payload any) error {
	m := s.m
	if s.once {
		m.remove(s.id)
	}
	L := m.L
	if L == nil {
		return nil
	}
	L.Push(s.fn)
	L.Push(lua.LString(topic))
	L.Push(toLValue(L, payload))
	if err := L.PCall(2, 0, nil); err != nil {
		m.log.Warn().Str("topic", topic).Err(err).Msg("lua handler failed")
	}
	return nil
}
