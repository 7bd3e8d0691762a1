package gpio

import (
	"testing"
)

type edgeLog struct {
	rising []bool
	stamps []uint32
}

func (l *edgeLog) handler(rising bool, stampUs uint32) {
	l.rising = append(l.rising, rising)
	l.stamps = append(l.stamps, stampUs)
}

func TestEdgeGateDeliversWhenOpen(t *testing.T) {
	g := newEdgeGate(4)
	var log edgeLog
	g.register(5, log.handler)

	g.deliver(latchedEdge{pin: 5, rising: true, stampUs: 100})
	g.deliver(latchedEdge{pin: 5, rising: false, stampUs: 200})

	if len(log.stamps) != 2 {
		t.Fatalf("expected 2 edges, got %d", len(log.stamps))
	}
	if !log.rising[0] || log.rising[1] {
		t.Errorf("unexpected edge directions: %v", log.rising)
	}
}

func TestEdgeGateLatchesWhileLocked(t *testing.T) {
	g := newEdgeGate(4)
	var log edgeLog
	g.register(5, log.handler)

	g.lock()
	g.deliver(latchedEdge{pin: 5, rising: true, stampUs: 100})
	g.deliver(latchedEdge{pin: 5, rising: false, stampUs: 200})

	if len(log.stamps) != 0 {
		t.Fatalf("expected no edges while locked, got %d", len(log.stamps))
	}

	g.unlock()

	if len(log.stamps) != 2 {
		t.Fatalf("expected 2 replayed edges, got %d", len(log.stamps))
	}
	if log.stamps[0] != 100 || log.stamps[1] != 200 {
		t.Errorf("edges replayed out of order: %v", log.stamps)
	}
}

func TestEdgeGateLatchedEdgesPrecedeNewOnes(t *testing.T) {
	g := newEdgeGate(4)
	var log edgeLog
	g.register(5, log.handler)

	// Latch directly, as if the edge arrived just after the last drain.
	g.pending <- latchedEdge{pin: 5, rising: true, stampUs: 1}
	g.deliver(latchedEdge{pin: 5, rising: false, stampUs: 2})

	if len(log.stamps) != 2 || log.stamps[0] != 1 || log.stamps[1] != 2 {
		t.Errorf("expected [1 2], got %v", log.stamps)
	}
}

func TestEdgeGateDropsWhenFull(t *testing.T) {
	g := newEdgeGate(1)
	var log edgeLog
	g.register(5, log.handler)

	g.lock()
	g.deliver(latchedEdge{pin: 5, rising: true, stampUs: 1})
	g.deliver(latchedEdge{pin: 5, rising: false, stampUs: 2})
	g.unlock()

	if g.Dropped() != 1 {
		t.Errorf("expected 1 dropped edge, got %d", g.Dropped())
	}
	if len(log.stamps) != 1 {
		t.Errorf("expected 1 delivered edge, got %d", len(log.stamps))
	}
}

func TestEdgeGateIgnoresUnwatchedPin(t *testing.T) {
	g := newEdgeGate(1)
	var log edgeLog
	g.register(5, log.handler)

	g.deliver(latchedEdge{pin: 6, rising: true, stampUs: 1})

	if len(log.stamps) != 0 {
		t.Errorf("expected no edges, got %d", len(log.stamps))
	}
}
