package booking

import (
	"strings"
	"sync"

	"github.com/google/uuid"
)

// recentReferences bounds how many issued references are remembered for
// duplicate checks. Older ones fall out first.
const recentReferences = 50000

// ReferenceGenerator hands out booking reference numbers that are unique
// among the most recent references issued by the process.
type ReferenceGenerator struct {
	mu     sync.Mutex
	issued map[string]struct{}
	order  []string
	next   int
	limit  int
}

func NewReferenceGenerator() *ReferenceGenerator {
	return newReferenceGenerator(recentReferences)
}

func newReferenceGenerator(limit int) *ReferenceGenerator {
	return &ReferenceGenerator{
		issued: make(map[string]struct{}, limit),
		order:  make([]string, 0, limit),
		limit:  limit,
	}
}

// Next returns a new reference such as "APT-3F9A0C1B7E" or "CB-0D4E9A21BC".
func (g *ReferenceGenerator) Next(kind Kind) string {
	prefix := "APT-"
	if kind == Callback {
		prefix = "CB-"
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for {
		id := uuid.New()
		ref := prefix + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:10])
		if _, dup := g.issued[ref]; dup {
			continue
		}
		g.remember(ref)
		return ref
	}
}

// remember records ref in a ring of the last limit references.
func (g *ReferenceGenerator) remember(ref string) {
	if len(g.order) < g.limit {
		g.order = append(g.order, ref)
	} else {
		delete(g.issued, g.order[g.next])
		g.order[g.next] = ref
		g.next = (g.next + 1) % g.limit
	}
	g.issued[ref] = struct{}{}
}
