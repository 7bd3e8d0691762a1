package gpio

import (
	"sync"
	"sync/atomic"
)

// edgeGate emulates interrupt masking for boards whose edge events arrive on
// a goroutine. A critical section holds mu. The delivering goroutine only
// try-locks, so it never waits on the main loop: edges that arrive while the
// gate is held are latched and replayed in order by the next holder.
type edgeGate struct {
	mu       sync.Mutex
	handlers map[Pin]EdgeHandler
	pending  chan latchedEdge
	dropped  atomic.Uint32
}

type latchedEdge struct {
	pin     Pin
	rising  bool
	stampUs uint32
}

func newEdgeGate(depth int) *edgeGate {
	return &edgeGate{
		handlers: make(map[Pin]EdgeHandler),
		pending:  make(chan latchedEdge, depth),
	}
}

func (g *edgeGate) register(pin Pin, h EdgeHandler) {
	g.mu.Lock()
	g.handlers[pin] = h
	g.drain()
	g.mu.Unlock()
}

// deliver is called from the event goroutine.
func (g *edgeGate) deliver(e latchedEdge) {
	if !g.mu.TryLock() {
		select {
		case g.pending <- e:
		default:
			g.dropped.Add(1)
		}
		return
	}
	g.drain()
	g.dispatch(e)
	g.mu.Unlock()
}

// lock replays anything latched since the last unlock, then masks delivery.
// It does not nest.
func (g *edgeGate) lock() {
	g.mu.Lock()
	g.drain()
}

// unlock replays latched edges and unmasks delivery.
func (g *edgeGate) unlock() {
	g.drain()
	g.mu.Unlock()
}

// drain must be called with mu held.
func (g *edgeGate) drain() {
	for {
		select {
		case e := <-g.pending:
			g.dispatch(e)
		default:
			return
		}
	}
}

func (g *edgeGate) dispatch(e latchedEdge) {
	if h := g.handlers[e.pin]; h != nil {
		h(e.rising, e.stampUs)
	}
}

// Dropped returns the number of edges lost because the latch was full.
func (g *edgeGate) Dropped() uint32 {
	return g.dropped.Load()
}
