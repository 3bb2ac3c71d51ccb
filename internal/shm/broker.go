// Package shm brokers shared pixel buffers between clients and the
// window server core. Buffers are ref-counted: a buffer with no
// remaining interested party is reclaimed. Handing a buffer to a client
// takes an explicit lease that keeps the buffer alive until the client
// acknowledges receipt or the lease expires.
package shm

import (
	"fmt"
	"sync"
	"time"

	"github.com/lumen-os/lumen/server/internal/gfx"
)

// BufferID identifies a shared buffer. IDs are process-unique and never
// reused.
type BufferID int32

// InvalidBuffer is the wire sentinel for "no buffer".
const InvalidBuffer BufferID = -1

// BytesPerPixel is the size of one pixel in every supported format.
const BytesPerPixel = 4

// Buffer is a mapped shared-memory region usable as pixel or clipboard
// storage. The data slice is the mapped view; it is owned by the broker
// and valid until the buffer is reclaimed.
type Buffer struct {
	id         BufferID
	data       []byte
	owner      int
	ownerHolds bool
	sealed     bool
	shared     map[int]struct{}
}

// ID returns the buffer's handle.
func (b *Buffer) ID() BufferID { return b.id }

// Size returns the byte length of the mapped region.
func (b *Buffer) Size() int { return len(b.data) }

// Data returns the mapped region.
func (b *Buffer) Data() []byte { return b.data }

// Sealed reports whether the buffer's contents are frozen.
func (b *Buffer) Sealed() bool { return b.sealed }

// CanFit reports whether the region is large enough for a bitmap of the
// given dimensions. Consumers must call this before trusting a
// client-asserted size; an undersized buffer is a protocol violation.
func (b *Buffer) CanFit(size gfx.Size) bool {
	if size.IsEmpty() {
		return false
	}
	return size.Area()*BytesPerPixel <= len(b.data)
}

// SharedWith reports whether the buffer has been shared with clientID.
func (b *Buffer) SharedWith(clientID int) bool {
	if clientID == b.owner {
		return true
	}
	_, ok := b.shared[clientID]
	return ok
}

type lease struct {
	bufferID BufferID
	clientID int
	expires  time.Time
}

// Broker owns every shared buffer known to the server process.
type Broker struct {
	mu       sync.RWMutex
	buffers  map[BufferID]*Buffer
	refs     map[BufferID]int
	leases   map[BufferID]map[int]lease
	nextID   BufferID
	leaseTTL time.Duration
}

// NewBroker creates an empty broker. leaseTTL bounds how long an
// unacknowledged buffer handed to a client is kept alive.
func NewBroker(leaseTTL time.Duration) *Broker {
	return &Broker{
		buffers:  make(map[BufferID]*Buffer),
		refs:     make(map[BufferID]int),
		leases:   make(map[BufferID]map[int]lease),
		nextID:   1,
		leaseTTL: leaseTTL,
	}
}

// Create allocates a buffer of size bytes owned by clientID and shared
// with the server. The creating side holds the initial reference.
func (b *Broker) Create(clientID int, size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("create shared buffer: invalid size %d", size)
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := &Buffer{
		id:         b.nextID,
		data:       make([]byte, size),
		owner:      clientID,
		ownerHolds: true,
		shared:     make(map[int]struct{}),
	}
	b.nextID++
	b.buffers[buf.id] = buf
	b.refs[buf.id] = 1
	return buf, nil
}

// Resolve maps a handle to its buffer. Failure means the request that
// carried the handle cannot be satisfied; it is never fatal.
func (b *Broker) Resolve(id BufferID) (*Buffer, bool) {
	if id == InvalidBuffer {
		return nil, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	buf, ok := b.buffers[id]
	return buf, ok
}

// Seal freezes a buffer's contents. Sealing twice is a no-op.
func (b *Broker) Seal(id BufferID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[id]
	if !ok {
		return false
	}
	buf.sealed = true
	return true
}

// ShareWith grants clientID access to the buffer.
func (b *Broker) ShareWith(id BufferID, clientID int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[id]
	if !ok {
		return false
	}
	buf.shared[clientID] = struct{}{}
	return true
}

// Retain adds a reference to the buffer.
func (b *Broker) Retain(id BufferID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.buffers[id]; !ok {
		return false
	}
	b.refs[id]++
	return true
}

// Release drops a reference. The buffer is reclaimed when no references
// and no leases remain.
func (b *Broker) Release(id BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked(id)
}

func (b *Broker) releaseLocked(id BufferID) {
	if _, ok := b.buffers[id]; !ok {
		return
	}
	b.refs[id]--
	if b.refs[id] <= 0 && len(b.leases[id]) == 0 {
		delete(b.buffers, id)
		delete(b.refs, id)
		delete(b.leases, id)
	}
}

// Disown drops the creator's reference early, leaving leases and other
// holders to govern the buffer's lifetime.
func (b *Broker) Disown(id BufferID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, ok := b.buffers[id]
	if !ok || !buf.ownerHolds {
		return
	}
	buf.ownerHolds = false
	b.releaseLocked(id)
}

// Lease keeps the buffer alive on behalf of clientID until Ack or the
// lease TTL elapses. Replaces any existing lease for the same pair.
func (b *Broker) Lease(id BufferID, clientID int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.buffers[id]; !ok {
		return false
	}
	if b.leases[id] == nil {
		b.leases[id] = make(map[int]lease)
	}
	b.leases[id][clientID] = lease{
		bufferID: id,
		clientID: clientID,
		expires:  time.Now().Add(b.leaseTTL),
	}
	return true
}

// Ack records that clientID has taken its own reference to the buffer
// and drops the server-side lease. Returns false when no lease exists,
// which is a client protocol violation.
func (b *Broker) Ack(id BufferID, clientID int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.leases[id][clientID]; !ok {
		return false
	}
	delete(b.leases[id], clientID)
	b.reclaimIfUnreferencedLocked(id)
	return true
}

// ExpireLeases drops leases whose TTL has elapsed, reclaiming buffers
// left with no interested party. Returns the number of leases dropped.
// Called from the control loop's maintenance tick.
func (b *Broker) ExpireLeases(now time.Time) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	expired := 0
	for id, byClient := range b.leases {
		for clientID, l := range byClient {
			if now.After(l.expires) {
				delete(byClient, clientID)
				expired++
			}
		}
		if len(byClient) == 0 {
			b.reclaimIfUnreferencedLocked(id)
		}
	}
	return expired
}

// ReleaseClient drops every lease held for clientID and every buffer it
// owns that nobody else references. Called on session teardown.
func (b *Broker) ReleaseClient(clientID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, byClient := range b.leases {
		if _, ok := byClient[clientID]; ok {
			delete(byClient, clientID)
			b.reclaimIfUnreferencedLocked(id)
		}
	}
	for id, buf := range b.buffers {
		if buf.owner == clientID && buf.ownerHolds {
			buf.ownerHolds = false
			b.releaseLocked(id)
		}
	}
}

func (b *Broker) reclaimIfUnreferencedLocked(id BufferID) {
	if len(b.leases[id]) == 0 {
		delete(b.leases, id)
	}
	if b.refs[id] <= 0 && len(b.leases[id]) == 0 {
		delete(b.buffers, id)
		delete(b.refs, id)
	}
}

// Stats describes the broker's current population.
type Stats struct {
	Buffers int `json:"buffers"`
	Leases  int `json:"leases"`
}

// Stats returns the live buffer and lease counts.
func (b *Broker) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	leases := 0
	for _, byClient := range b.leases {
		leases += len(byClient)
	}
	return Stats{Buffers: len(b.buffers), Leases: leases}
}
