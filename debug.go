package puppet

import (
	"fmt"
	"log/slog"
	"time"
)

// debugLog records one phase timing. Only called when Scene.debug is true.
func (s *Scene) debugLog(phase string, elapsed time.Duration, puppets int) {
	s.log.Debug("frame", "phase", phase, "elapsed", elapsed, "puppets", puppets)
}

// debugCheckDisposed panics when a disposed node is used in a tree
// operation. Callers skip it outside debug mode.
func debugCheckDisposed(n *Node, op string) {
	if n.disposed {
		panic(fmt.Sprintf("puppet debug: %s on disposed node %q", op, n.Name))
	}
}

// debugCheckDestroyed panics on use of a destroyed puppet.
func debugCheckDestroyed(p *Puppet, op string) {
	if p.destroyed {
		panic(fmt.Sprintf("puppet debug: %s on destroyed puppet %q", op, p.name))
	}
}

const debugMaxTreeDepth = 32

// debugCheckTreeDepth warns through the default logger when a node is
// attached deeper than debugMaxTreeDepth.
func debugCheckTreeDepth(n *Node) {
	depth := 0
	for p := n; p != nil; p = p.Parent {
		depth++
	}
	if depth > debugMaxTreeDepth {
		slog.Warn("puppet debug: tree too deep", "depth", depth, "max", debugMaxTreeDepth, "node", n.Name)
	}
}
