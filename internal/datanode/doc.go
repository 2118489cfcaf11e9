// Package datanode implements chatrelay's durable storage role.
//
// A data node keeps the authoritative on-disk record of every registered
// user and chatroom, replicated across every data node in the cluster by
// two-phase commit. It exposes two HTTP surfaces on two separate ports:
//
//	DataOps (coordinator -> data node, read-only)
//	  GET-style questions answered from local durable state: does this
//	  user/chatroom exist, are these credentials valid, does this user
//	  own this chatroom. Any one reachable data node is authoritative,
//	  since every data node's record is kept in agreement by 2PC.
//
//	DataParticipant (coordinator -> data node, transactional)
//	  canCommit / doCommit / doAbort: the participant side of the
//	  coordinator's two-phase commit. A data node votes YES only if the
//	  transaction is still legal against its own durable record, then
//	  holds the affected key locked until a decision arrives. If that
//	  decision is lost in flight, a one-shot decision-poll task recovers
//	  it by asking the coordinator directly (see Participant.schedulePoll).
//
// # Durable Storage
//
// Store is the on-disk journal: users.txt and chatrooms.txt are
// append-only colon-separated records ("key:value" per line, split on
// the first colon only), except chatrooms.txt gets a full truncating
// rewrite on delete since it carries no tombstone format. Chat messages
// land in chatlogs/<chatroom>.txt, one append-only file per room. A
// storage.MemoryStore mirrors both journals in memory so every read
// (existence, credential, ownership) is answered without touching disk.
//
// # Concurrency Model
//
// Each distinct key (username or chatroom name) gets its own mutex,
// acquired for the span between a YES vote and a decision — so two
// transactions against different keys never contend, while two
// transactions racing the same key are strictly serialized. Store's own
// file-write locks are independent of this key-lock layer and only
// serialize the journal appends/rewrites themselves.
//
// # See Also
//
// internal/coordinator drives the 2PC protocol this package answers to.
// internal/cluster defines the request/response types both sides share.
package datanode
