// Package surfrouter connects a MIDI control surface to application handlers
// through a layered, folder-scoped mapping table, and broadcasts every state
// change to WebSocket subscribers.
//
// # Architecture
//
// Events flow through a fixed pipeline; each stage is a component with its
// own lifecycle, owned and wired by the router:
//
//	┌──────────┐   ┌───────────┐   ┌──────────┐   ┌───────────┐
//	│  device  │ → │ ratelimit │ → │ resolve  │ → │ dispatch  │
//	│ listener │   │ (faders)  │   │  engine  │   │   pool    │
//	└──────────┘   └───────────┘   └──────────┘   └───────────┘
//	      │                              │               │
//	      └──────────────┬───────────────┴───────────────┘
//	                     ↓
//	               ┌──────────┐
//	               │  bridge  │ → WebSocket subscribers, NATS mirror
//	               └──────────┘
//
// The device listener polls the surface and reconnects with a bounded
// backoff. Continuous controls pass through a per-control throttle and
// trailing-edge debounce, so bursts are capped without ever losing the final
// value. The resolution engine maps (channel, control) to a handler spec
// under the active layer and folder; the dispatcher executes handlers on a
// bounded worker pool so a slow handler can never stall ingestion. The
// bridge marshals all state changes onto one broadcast loop, isolating
// subscriber failures from each other and from the pipeline.
//
// Mutable state (active layer, folder stack, toggles, counters, fader
// positions) lives in the state package; counters, toggles, and positions
// persist across restarts through a file or NATS JetStream KV store.
package surfrouter
