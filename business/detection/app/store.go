package app

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/lmoretti/gamearb/business/detection/domain"
)

// stripeCount sizes the per-key lock table. Power of two.
const stripeCount = 64

// terminalKeep bounds the in-memory tail of superseded/expired records kept
// for introspection; durable history belongs to the sink side.
const terminalKeep = 1024

// Store owns the authoritative map from identity key to the current Active
// opportunity and arbitrates incoming candidates against it. Per-key striped
// locks guarantee at most one in-flight arbitration per identity key, so
// parallel passes over the same product cannot race; the expiry sweep takes
// the same lock before transitioning a record. Emission happens outside the
// locks: Apply and Sweep only return the events to deliver.
type Store struct {
	holdTime time.Duration

	// refreshGrace is how long a refresh keeps a due record from expiring,
	// normally one detection pass interval. Expiry requires both the hold
	// time elapsed and no matching candidate within the grace.
	refreshGrace time.Duration

	stripes [stripeCount]sync.Mutex

	mu       sync.RWMutex
	active   map[domain.IdentityKey]domain.Opportunity
	terminal []domain.Opportunity
}

// NewStore creates an empty lifecycle store.
func NewStore(holdTime, refreshGrace time.Duration) *Store {
	return &Store{
		holdTime:     holdTime,
		refreshGrace: refreshGrace,
		active:       make(map[domain.IdentityKey]domain.Opportunity),
	}
}

func (s *Store) stripe(key domain.IdentityKey) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key.String()))
	return &s.stripes[h.Sum32()&(stripeCount-1)]
}

// Apply arbitrates one candidate and returns the events to emit:
//
//   - no active record for the key: a fresh Active record is created and an
//     Activated event returned;
//   - active record with strictly lower profit: it transitions to Superseded
//     (terminal) and the candidate becomes the new Active record — both a
//     Superseded and an Activated event are returned;
//   - otherwise the candidate is discarded and the active record's
//     LastRefreshedAt is updated, without moving ExpiresAt. No events.
func (s *Store) Apply(c domain.Candidate, now time.Time) []domain.Event {
	lock := s.stripe(c.Key)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.active[c.Key]
	if !ok {
		fresh := domain.FromCandidate(c, now, s.holdTime)
		s.active[c.Key] = fresh
		return []domain.Event{{Kind: domain.EventActivated, Opportunity: fresh, At: now}}
	}

	if c.Profit.GreaterThan(existing.Profit) {
		existing.Status = domain.StatusSuperseded
		s.retire(existing)

		fresh := domain.FromCandidate(c, now, s.holdTime)
		s.active[c.Key] = fresh
		return []domain.Event{
			{Kind: domain.EventSuperseded, Opportunity: existing, At: now},
			{Kind: domain.EventActivated, Opportunity: fresh, At: now},
		}
	}

	// Equal or lower profit keeps the record alive without extending it.
	existing.LastRefreshedAt = now
	s.active[c.Key] = existing
	return nil
}

// Sweep expires every Active record whose hold time has elapsed and that no
// candidate refreshed within the grace, and returns the Expired events. A key
// the matcher keeps re-finding every pass therefore stays alive past its
// ExpiresAt until the spread actually disappears. Runs on its own timer,
// independent of detection passes.
func (s *Store) Sweep(now time.Time) []domain.Event {
	s.mu.RLock()
	keys := make([]domain.IdentityKey, 0, len(s.active))
	for key := range s.active {
		keys = append(keys, key)
	}
	s.mu.RUnlock()

	var events []domain.Event
	for _, key := range keys {
		lock := s.stripe(key)
		lock.Lock()

		s.mu.Lock()
		rec, ok := s.active[key]
		if ok && rec.Due(now) && now.Sub(rec.LastRefreshedAt) >= s.refreshGrace {
			rec.Status = domain.StatusExpired
			delete(s.active, key)
			s.retire(rec)
			events = append(events, domain.Event{Kind: domain.EventExpired, Opportunity: rec, At: now})
		}
		s.mu.Unlock()

		lock.Unlock()
	}

	return events
}

// retire appends a terminal record, trimming the tail. Callers hold s.mu.
func (s *Store) retire(rec domain.Opportunity) {
	s.terminal = append(s.terminal, rec)
	if len(s.terminal) > terminalKeep {
		s.terminal = s.terminal[len(s.terminal)-terminalKeep:]
	}
}

// ActiveSnapshot returns a copy of every currently Active opportunity, used
// to seed dashboards after a restart.
func (s *Store) ActiveSnapshot() []domain.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Opportunity, 0, len(s.active))
	for _, rec := range s.active {
		out = append(out, rec)
	}
	return out
}

// ActiveCount returns the number of Active opportunities.
func (s *Store) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.active)
}

// Terminal returns a copy of the retained terminal records, oldest first.
func (s *Store) Terminal() []domain.Opportunity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Opportunity, len(s.terminal))
	copy(out, s.terminal)
	return out
}
