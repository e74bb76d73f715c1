package ratings

import (
	"hash/maphash"
	"sync"
)

// shardCount controls how many independent locks the player map is
// striped across. Diffusion and performance passes touch one distinct
// player each, so contention only ever comes from concurrent Submit
// calls racing an export query — shardCount just needs to be large
// enough that two unrelated players rarely collide.
const shardCount = 64

// playerShard is one lock-protected bucket of the sharded player map.
type playerShard struct {
	mu      sync.RWMutex
	players map[int64]*player
}

// shardedPlayers is a concurrent map from player id to player state,
// supporting per-key exclusive locks with cheap lock-free-ish reads of
// unrelated keys, rather than one global lock around the whole map.
type shardedPlayers struct {
	seed   maphash.Seed
	shards [shardCount]*playerShard
}

func newShardedPlayers() *shardedPlayers {
	sp := &shardedPlayers{seed: maphash.MakeSeed()}
	for i := range sp.shards {
		sp.shards[i] = &playerShard{players: make(map[int64]*player)}
	}
	return sp
}

func (sp *shardedPlayers) shardFor(id int64) *playerShard {
	var h maphash.Hash
	h.SetSeed(sp.seed)
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(id >> (8 * i))
	}
	h.Write(buf[:])
	return sp.shards[h.Sum64()%shardCount]
}

// getOrInsert returns the player for id, creating it via newFn if this
// is the first time id has been seen. The returned player must only be
// mutated while holding the shard's write lock, which the caller
// already does via withLock below — getOrInsert is the one exception,
// taking and releasing the lock itself.
func (sp *shardedPlayers) getOrInsert(id int64, newFn func() *player) *player {
	shard := sp.shardFor(id)

	shard.mu.RLock()
	if p, ok := shard.players[id]; ok {
		shard.mu.RUnlock()
		return p
	}
	shard.mu.RUnlock()

	shard.mu.Lock()
	defer shard.mu.Unlock()
	if p, ok := shard.players[id]; ok {
		return p
	}
	p := newFn()
	shard.players[id] = p
	return p
}

// get returns the player for id, or nil if unknown.
func (sp *shardedPlayers) get(id int64) *player {
	shard := sp.shardFor(id)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	return shard.players[id]
}

// withLock runs fn with id's shard write-locked, mutating its player.
// Used by the diffusion and performance passes.
func (sp *shardedPlayers) withLock(id int64, fn func(p *player)) {
	shard := sp.shardFor(id)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	p, ok := shard.players[id]
	if !ok {
		panic("ratings: missing participant inserted by the diffusion pass")
	}
	fn(p)
}

// forEach calls fn for every (id, player) pair currently in the map,
// each under its own shard's read lock. Used by the export queries and
// the sequential ranking pass's rating snapshot.
func (sp *shardedPlayers) forEach(fn func(id int64, p *player)) {
	for _, shard := range sp.shards {
		shard.mu.RLock()
		for id, p := range shard.players {
			fn(id, p)
		}
		shard.mu.RUnlock()
	}
}
