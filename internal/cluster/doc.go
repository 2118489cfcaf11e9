// Package cluster provides the shared wire vocabulary for chatrelay's
// coordinator, data node, chat node, and client-kit roles, and the small
// HTTP/JSON transport they all call over.
//
// # Overview
//
// chatrelay is a replicated chatroom service built from four roles: a
// single coordinator, a set of data nodes holding durable user/chatroom
// state behind a two-phase commit protocol, a set of chat nodes hosting
// live chatroom pub/sub, and clients. Every remote call between these
// roles is a synchronous JSON request/response over plain HTTP — there is
// no RPC framework, no streaming control plane, and no message broker.
// This package is where that wire shape lives: one Go struct per request
// or response body, named after the operation it carries, plus the two
// helpers (PostJSON, GetJSON) that every role uses to make the call.
//
// # Architecture
//
//	                     в”Ңв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җ
//	                     в”Ӯ                       Coordinator                            в”Ӯ
//	                     в”Ӯ  Registration | UserOps | ChatOps(log) | DecisionOps          в”Ӯ
//	                     в””в”Җв”Җв”Җв”Җв”Җв”Җв”¬в”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”¬в”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”¬в”Җв”Җв”Җв”Җв”Җв”Җв”Җв”ҳ
//	                            в”Ӯ                             в”Ӯ                             в”Ӯ
//	           register / placement                   register / 2PC              canCommit/doCommit/doAbort
//	                            в”Ӯ                             в”Ӯ                             в”Ӯ
//	                   в”Ңв”Җв”Җв”Җв”Җв”Җв”Җв”Җв–јв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җ              в”Ңв”Җв”Җв”Җв”Җв”Җв”Җв–јв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җ                  в”Ӯ
//	                   в”Ӯ     Chat node     в”Ӯ              в”Ӯ   Data node    в”Ӯ<в”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”ҳ
//	                   в”Ӯ ChatOps | ChatUser в”Ӯ              в”Ӯ DataOps | Part в”Ӯ
//	                   в””в”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”¬в”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”ҳ              в””в”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”ҳ
//	                            в”Ӯ TCP chat stream
//	                      в”Ңв”Җв”Җв”Җв”Җв”Җв–јв”Җв”Җв”Җв”Җв”Җв”җ
//	                      в”Ӯ   Client  в”Ӯ
//	                      в””в”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”Җв”ҳ
//
// # Core Components
//
// NodeInfo: addresses one registered endpoint — a host, a port, and (for
// data nodes, which expose two distinct surfaces on two different ports)
// an identifier distinguishing which surface this entry addresses.
//
// Transaction: the unit of agreement in the two-phase commit protocol.
// Carries an Op (CREATEUSER, CREATECHATROOM, DELETECHATROOM, LOGMESSAGE),
// a Key, and a Value. Index is the sole identifier the coordinator and its
// participants use to refer to one transaction for the life of the
// coordinator process — it is never reused and never persisted.
//
// Response: the generic {status, message} envelope every client-facing and
// chat-node-facing surface returns.
//
// # Communication Protocol
//
// Every remote surface in this system is a single HTTP POST (or, for pure
// reads, GET) carrying one JSON body and returning one JSON body — no
// batching, no pipelining, no persistent control connection. The one
// exception is the chat stream itself, a raw TCP byte connection opened by
// a client directly against a chat node (see internal/chatnode), which is
// intentionally outside this package's JSON vocabulary.
//
// # Concurrency Model
//
// The types in this package carry no behavior beyond JSON (un)marshaling
// and are immutable once constructed; concurrency control lives in the
// roster/registry/storage types that use them (internal/coordinator,
// internal/datanode, internal/chatnode), not here.
//
// # See Also
//
// Related packages:
//   - internal/coordinator: placement, 2PC coordination, roster management
//   - internal/datanode: durable user/chatroom storage, 2PC participant
//   - internal/chatnode: live chatroom hosting and the client TCP stream
//   - internal/clientkit: a small non-interactive client built on this package
package cluster
