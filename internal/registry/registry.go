package registry

import (
	"sync"
	"time"

	"github.com/remotedesk/signal-service/internal/domain"
	"github.com/remotedesk/signal-service/internal/metrics"
)

// Conn is the live connection handle a room slot holds. The registry never
// sends through it; it stores the handle and compares it for identity when a
// slot is marked ready or cleared. Implementations must be comparable.
type Conn interface {
	Send(messageType int, data []byte) error
}

// room is a pairing context for exactly one operator and one client.
// Slot mutations are serialized by the room's own mutex so unrelated rooms
// never contend with each other.
type room struct {
	mu            sync.Mutex
	operator      Conn
	client        Conn
	operatorReady bool
	createdAt     time.Time

	// occupied flips to true on the first slot assignment and never back.
	// A room created via /create-room but not yet joined stays on the books
	// until its first occupancy cycle completes; DeleteIfEmpty only removes
	// rooms that have been occupied.
	occupied bool

	// deleted marks a record that has been removed from (or replaced in)
	// the registry map. Set under mu by the remover; anyone who fetched the
	// pointer before removal sees the tombstone after locking and must not
	// write through it.
	deleted bool
}

// Registry is the process-wide room table. The outer RWMutex guards only the
// map itself; per-slot state is guarded per room.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func New() *Registry {
	return &Registry{rooms: make(map[string]*room)}
}

// lockExisting returns the room for id with its mutex held, or nil when the
// id is unknown. A record tombstoned between the map lookup and the lock is
// treated as absent.
func (r *Registry) lockExisting(id string) *room {
	r.mu.RLock()
	rm := r.rooms[id]
	r.mu.RUnlock()
	if rm == nil {
		return nil
	}
	rm.mu.Lock()
	if rm.deleted {
		rm.mu.Unlock()
		return nil
	}
	return rm
}

// lockOrCreate returns the room for id with its mutex held, creating a record
// when none exists. Losing the race against DeleteIfEmpty leaves a tombstoned
// pointer in hand, so the lookup retries until it holds a live record.
func (r *Registry) lockOrCreate(id string) *room {
	for {
		r.mu.RLock()
		rm := r.rooms[id]
		r.mu.RUnlock()

		if rm == nil {
			r.mu.Lock()
			if rm = r.rooms[id]; rm == nil {
				rm = &room{createdAt: time.Now()}
				r.rooms[id] = rm
				metrics.RoomsCreated.Inc()
				metrics.RoomsActive.Inc()
			}
			r.mu.Unlock()
		}

		rm.mu.Lock()
		if rm.deleted {
			rm.mu.Unlock()
			continue
		}
		return rm
	}
}

// Create allocates an empty room record under id, overwriting any existing
// record whose operator slot is empty. A live operator makes the id taken and
// the call fails with domain.ErrRoomConflict.
func (r *Registry) Create(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rm := r.rooms[id]; rm != nil {
		rm.mu.Lock()
		if rm.operator != nil {
			rm.mu.Unlock()
			return domain.ErrRoomConflict
		}
		rm.deleted = true
		rm.mu.Unlock()
	} else {
		metrics.RoomsCreated.Inc()
		metrics.RoomsActive.Inc()
	}
	r.rooms[id] = &room{createdAt: time.Now()}
	return nil
}

// Exists reports whether id is currently present in the registry.
func (r *Registry) Exists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.rooms[id] != nil
}

// Status returns a snapshot of the room's slots, or domain.ErrRoomNotFound.
func (r *Registry) Status(id string) (domain.RoomStatus, error) {
	rm := r.lockExisting(id)
	if rm == nil {
		return domain.RoomStatus{}, domain.ErrRoomNotFound
	}
	defer rm.mu.Unlock()
	return domain.RoomStatus{
		HasOperator:   rm.operator != nil,
		HasClient:     rm.client != nil,
		OperatorReady: rm.operatorReady,
	}, nil
}

// GetOrCreate ensures a room record exists for id. Used by the operator
// admission path, which implicitly creates unknown rooms.
func (r *Registry) GetOrCreate(id string) {
	r.lockOrCreate(id).mu.Unlock()
}

// Assign overwrites the slot for role with c. A previous occupant is evicted
// silently; its own cleanup will no-op because the slot no longer holds it.
// Assigning the operator slot resets the readiness flag until the new
// connection's grace timer fires.
func (r *Registry) Assign(id string, role domain.Role, c Conn) {
	rm := r.lockOrCreate(id)
	defer rm.mu.Unlock()

	rm.occupied = true
	switch role {
	case domain.RoleOperator:
		rm.operator = c
		rm.operatorReady = false
	case domain.RoleClient:
		rm.client = c
	}
}

// MarkOperatorReady sets the readiness flag, but only while the operator slot
// still holds c. A timer that outlived its connection, or fired after the
// room was deleted, changes nothing.
func (r *Registry) MarkOperatorReady(id string, c Conn) bool {
	rm := r.lockExisting(id)
	if rm == nil {
		return false
	}
	defer rm.mu.Unlock()

	if rm.operator != c {
		return false
	}
	rm.operatorReady = true
	return true
}

// Clear releases the slot for role if it still holds c, and reports whether
// it did. Clearing the operator slot also drops the readiness flag. A stale
// cleanup racing a newer connection of the same role is a no-op.
func (r *Registry) Clear(id string, role domain.Role, c Conn) bool {
	rm := r.lockExisting(id)
	if rm == nil {
		return false
	}
	defer rm.mu.Unlock()

	switch role {
	case domain.RoleOperator:
		if rm.operator != c {
			return false
		}
		rm.operator = nil
		rm.operatorReady = false
	case domain.RoleClient:
		if rm.client != c {
			return false
		}
		rm.client = nil
	default:
		return false
	}
	return true
}

// Peer returns the connection currently occupying the slot for role, or nil.
// Relay forwarding calls this per frame so a reconnected peer is picked up
// immediately.
func (r *Registry) Peer(id string, role domain.Role) Conn {
	rm := r.lockExisting(id)
	if rm == nil {
		return nil
	}
	defer rm.mu.Unlock()

	if role == domain.RoleOperator {
		return rm.operator
	}
	return rm.client
}

// DeleteIfEmpty removes the room when both slots are empty and the room has
// completed at least one occupancy cycle. Reports whether the room was
// removed.
func (r *Registry) DeleteIfEmpty(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := r.rooms[id]
	if rm == nil {
		return false
	}
	rm.mu.Lock()
	empty := rm.occupied && rm.operator == nil && rm.client == nil
	if empty {
		rm.deleted = true
	}
	rm.mu.Unlock()
	if !empty {
		return false
	}
	delete(r.rooms, id)
	metrics.RoomsActive.Dec()
	return true
}

// Len returns the number of rooms currently registered.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
