// Package coordinator implements chatrelay's single orchestration process:
// node registration, client-facing user and chatroom operations, chatroom
// placement and re-establishment, and the two-phase-commit protocol that
// keeps every data node's durable state in agreement. See doc.go for
// complete package documentation.
//
// # Overview
//
// There is exactly one coordinator per deployment. It is the only role
// that talks to every other role: data nodes and chat nodes register with
// it on startup, clients call it to register/log in/find or place
// chatrooms, and data nodes call back into it both to vote in 2PC and to
// recover a decision they missed.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────┐
//	│                        Server                             │
//	│  ┌──────────┐ ┌──────────┐ ┌──────────────────┐          │
//	│  │chatNodes │ │ dataOps  │ │ dataParticipants  │ Rosters  │
//	│  └──────────┘ └──────────┘ └──────────────────┘          │
//	│  ┌──────────────┐  ┌────────────────────────┐            │
//	│  │DecisionTable │  │   LivenessMonitor       │            │
//	│  └──────────────┘  └────────────────────────┘            │
//	└──────────────────────────────────────────────────────────┘
//
// # Two-Phase Commit
//
// GenericCommit (twopc.go) is the single entry point every user/chatroom/
// chat-message mutation routes through: allocate an index, canCommit to
// every data-node participant, decide YES only if all voted YES, then
// doCommit or doAbort. DecisionTable (decision.go) is the coordinator's
// record of outcomes, queried by participants that voted YES but never
// received doCommit — the decision-poll task on each data node.
//
// # Placement and Re-establishment
//
// innerCreateChatroom (userops.go) places a new chatroom on whichever
// registered chat node currently reports the fewest users, breaking ties
// on fewest chatrooms hosted. reestablishChatroom re-runs this placement
// for a room whose chat node has gone away, serialized through
// placementMu so two concurrent callers for the same room can never both
// win a placement race.
//
// # Liveness
//
// LivenessMonitor (liveness.go) sweeps all three rosters periodically and
// triggers reestablishChatroom for every room hosted on a chat node that
// stops answering.
//
// # Concurrency Model
//
// Rosters and the decision table each guard their own state; Server's mu
// protects only chatroomOwner, and placementMu serializes placement
// decisions. The roster, decision-table and chatroomOwner locks are never
// held across a network call; placementMu is held for a whole placement,
// including its calls to data nodes and chat nodes.
//
// # See Also
//
// Related packages:
//   - internal/cluster: shared wire types and the PostJSON/GetJSON transport
//   - internal/datanode: the 2PC participant and durable storage role
//   - internal/chatnode: the chatroom hosting and client-stream role
package coordinator
