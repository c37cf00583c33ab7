// Package eventbus provides a synchronous, in-process publish/subscribe
// event service.
//
// The service is a decoupling backbone for applications built from
// loosely-coupled components: publishers hand an event to the service,
// and the service delivers it to every matching subscriber without the
// two sides knowing about each other. Delivery is fully synchronous and
// runs on the publisher's goroutine.
//
// # Architecture
//
// One publication flows through three stages, each isolated from the
// failures of the callbacks it invokes:
//
//	             Publish / PublishAs / PublishTopic
//	                            │
//	                            ▼
//	             ┌──────────────────────────────┐
//	             │         Veto scan            │
//	             │  any listener returning true │
//	             │  stops the publication       │
//	             └──────────────┬───────────────┘
//	                            ▼
//	             ┌──────────────────────────────┐
//	             │         Cache update         │
//	             │  bounded most-recent-first   │
//	             │  history per type or topic   │
//	             └──────────────┬───────────────┘
//	                            ▼
//	             ┌──────────────────────────────┐
//	             │          Dispatch            │
//	             │  every matching subscriber,  │
//	             │  faults isolated per call    │
//	             └──────────────────────────────┘
//
// # Selectors
//
// Subscriptions attach to selectors from the selector package. Typed
// events match by runtime type:
//
//	selector.ExactFor[MyEvent]()           // exactly MyEvent
//	selector.AssignableFor[SomeInterface]() // MyEvent and every other implementation
//	selector.ParameterizedFor[*Box](        // *Box carrying Customer values
//	    selector.ArgFor[Customer]())
//
// Named-topic publications match by name or pattern:
//
//	selector.Name("order.created")
//	selector.MustPattern(`order\..*`)
//
// Parameterized selectors only match publications made with PublishAs,
// which attaches a type descriptor restating the element types that Go's
// runtime erases:
//
//	desc := selector.DescribeFor[*Box](reflect.TypeOf(Customer{}))
//	bus.PublishAs(ctx, desc, box)
//
// # Basic Usage
//
//	bus := eventbus.New(
//	    eventbus.WithLogger(logger),
//	    eventbus.WithDefaultCacheSize(10),
//	)
//
//	sub := eventbus.SubscriberFunc(func(ctx context.Context, event any) error {
//	    fmt.Println("received", event)
//	    return nil
//	})
//	bus.Subscribe(selector.ExactFor[OrderCreated](), sub)
//
//	bus.Publish(ctx, OrderCreated{ID: "o-17"})
//
// # Strong and Weak Subscriptions
//
// Subscribe holds the subscriber strongly: the service keeps it alive
// until it is unsubscribed. SubscribeWeakly (and SubscribeRef with a
// WeakRef) holds it weakly: the service never extends the subscriber's
// lifetime, and the subscription disappears after the collector reclaims
// it. Weak subscriptions suit observers that should not leak when their
// owner forgets to unsubscribe.
//
// Resubscribing the same subscriber under the same selector replaces the
// old entry, moves it to the end of the selector's list, and adopts the
// new reference strength.
//
// # Veto Listeners
//
// Veto listeners inspect a publication before caching and dispatch. When
// any listener returns true the publication stops: nothing is cached and
// no subscriber runs. A veto listener that fails does not veto; the scan
// reports the fault and moves on.
//
// # Fault Isolation
//
// A subscriber returning an error or panicking never affects other
// subscribers or the publisher. Each failure becomes a Fault handed to
// the configured FaultHandler; the default handler logs at warn level.
// Panics carry a *PanicError with the captured stack.
//
// # Caching
//
// The service keeps a bounded most-recent-first history per event type
// and per topic. Sizes resolve lazily at publish time: an explicit size
// for the key wins, else the key inherits from the closest applicable
// setting (assignable types, or topic patterns in registration order),
// else the default applies. The default size is zero, which disables
// caching. LastEvent and EventHistory fall back to assignable types, so
// asking for an interface type finds cached implementations.
//
// # Timing
//
// With WithTimingThreshold set, every veto and subscriber call is timed,
// and a call running strictly longer than the threshold publishes a
// *TimingRecord through the service itself. Subscribe to records like
// any other event, or pass WithTimingLog to log them. Records for slow
// record consumers recurse, so keep record consumers fast.
//
// # Thread Safety
//
// All methods are safe for concurrent use without external locking.
// Dispatch works on snapshots: a subscriber removed during a publication
// already in flight may still receive that event, and one added during
// it may miss it. Callbacks may subscribe, unsubscribe, and publish
// freely without deadlocking.
//
// # Subpackages
//
//   - selector: type, topic, and parameterized-type selectors
//   - adapter: typed proxies bridging plain funcs and objects to the bus
//   - uiloop: single-goroutine loop with publication hand-off and a
//     tcell event pump
//   - script: Lua bindings exposing topic subscribe/publish
//   - config: TOML/YAML/env configuration with file watching
//   - locator: process-wide named service registry
package eventbus
