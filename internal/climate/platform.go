package climate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"
)

// Platform owns the registered climate entities and their last known state.
type Platform struct {
	mu        sync.RWMutex
	entities  map[string]Climate
	order     []string
	byUnique  map[string]string
	states    map[string]State
	listeners map[int]func(State)
	nextID    int

	now func() time.Time
}

func NewPlatform() *Platform {
	return &Platform{
		entities:  make(map[string]Climate),
		byUnique:  make(map[string]string),
		states:    make(map[string]State),
		listeners: make(map[int]func(State)),
		now:       time.Now,
	}
}

// AddEntities registers entities and writes their initial state. Entities
// whose unique id is already registered are skipped.
func (p *Platform) AddEntities(entities []Climate) {
	added := make([]string, 0, len(entities))

	p.mu.Lock()
	for _, entity := range entities {
		if entity == nil {
			continue
		}
		uniqueID := entity.UniqueID()
		if existing, ok := p.byUnique[uniqueID]; ok {
			log.Warn().
				Str("component", "climate").
				Str("unique_id", uniqueID).
				Str("entity_id", existing).
				Msg("unique id already registered; skipping entity")
			continue
		}
		entityID := p.allocateID(entity.Name())
		p.entities[entityID] = entity
		p.byUnique[uniqueID] = entityID
		p.order = append(p.order, entityID)
		added = append(added, entityID)
	}
	p.mu.Unlock()

	for _, entityID := range added {
		log.Info().Str("component", "climate").Str("entity_id", entityID).Msg("entity added")
		p.writeState(entityID)
	}
}

// allocateID must be called with mu held.
func (p *Platform) allocateID(name string) string {
	base := "climate." + slugify(name)
	entityID := base
	for i := 2; ; i++ {
		if _, taken := p.entities[entityID]; !taken {
			return entityID
		}
		entityID = fmt.Sprintf("%s_%d", base, i)
	}
}

// Entities returns the registered entities in registration order.
func (p *Platform) Entities() []Climate {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Climate, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, p.entities[id])
	}
	return out
}

// EntityIDs returns the registered entity ids in registration order.
func (p *Platform) EntityIDs() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.order...)
}

func (p *Platform) Entity(entityID string) (Climate, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	entity, ok := p.entities[entityID]
	return entity, ok
}

// State returns the last written state of an entity.
func (p *Platform) State(entityID string) (State, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	state, ok := p.states[entityID]
	return state, ok
}

// States returns the last written state of every entity.
func (p *Platform) States() []State {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]State, 0, len(p.order))
	for _, id := range p.order {
		if state, ok := p.states[id]; ok {
			out = append(out, state)
		}
	}
	return out
}

// Subscribe registers fn for state changes. The returned func unsubscribes.
func (p *Platform) Subscribe(fn func(State)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.listeners[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.listeners, id)
		p.mu.Unlock()
	}
}

// Poll updates every entity that asks to be polled and writes new state.
func (p *Platform) Poll(ctx context.Context) {
	for _, entityID := range p.EntityIDs() {
		entity, ok := p.Entity(entityID)
		if !ok || !entity.ShouldPoll() {
			continue
		}
		if err := entity.Update(ctx); err != nil {
			log.Warn().Err(err).Str("component", "climate").Str("entity_id", entityID).Msg("update failed")
		}
		p.writeState(entityID)
	}
}

// Run polls on every interval tick until ctx is done.
func (p *Platform) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultScanInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

func (p *Platform) writeState(entityID string) {
	entity, ok := p.Entity(entityID)
	if !ok {
		return
	}
	next := Snapshot(entityID, entity, p.now())

	p.mu.Lock()
	prev, had := p.states[entityID]
	if had && sameState(prev, next) {
		p.mu.Unlock()
		return
	}
	p.states[entityID] = next
	listeners := make([]func(State), 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(next)
	}
}

func slugify(name string) string {
	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			b.WriteRune(r)
			continue
		}
		pending = true
	}
	if b.Len() == 0 {
		return "unnamed"
	}
	return b.String()
}
