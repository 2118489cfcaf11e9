// Package storage provides the in-memory key/value store used as a read
// cache in front of each data node's durable on-disk journals.
//
// # Overview
//
// Store defines a small interface — Get, Put, Delete, List — and
// MemoryStore is its only implementation: a sync.RWMutex-guarded map with
// defensive copy-in/copy-out on every value, so no caller can mutate
// another caller's bytes by holding a shared slice.
//
// internal/datanode.Store wraps one MemoryStore per record kind (users,
// chatrooms) as the fast path a read hits first; the corresponding file on
// disk (users.txt, chatrooms.txt) is the durable copy replayed back into
// the cache on startup. Chat logs (chatlogs/<room>.txt) are only appended
// to disk and are never cached here. This
// package has no knowledge of that replay or of chatrelay's record
// formats — it only ever sees opaque keys and byte values.
//
// # Thread Safety
//
// All MemoryStore methods are safe for concurrent use: reads take RLock,
// writes take Lock, and Get/Put both copy the byte slice crossing the
// boundary so no lock is held during any caller-side processing of the
// result.
//
// # See Also
//
// internal/datanode: the only caller, and the package that owns the
// on-disk journal each MemoryStore instance caches.
package storage
