// Package chatnode implements chatrelay's live chatroom role: pub/sub
// fan-out over persistent client streams.
//
// A chat node hosts zero or more chatrooms, each existing on exactly one
// chat node at a time. It exposes three surfaces:
//
//	Stream (raw TCP, client-facing)
//	  A client opens a connection and sends one line
//	  "<chatroom>:<username>\n"; the node replies "success\n" or
//	  "fail\n" and, on success, keeps the connection open to deliver
//	  every subsequently published line. EOF on this connection is the
//	  node's only signal that a client process died without a clean
//	  leaveChatroom call.
//
//	ChatUserOps (HTTP, client-facing)
//	  chat/joinChatroom/leaveChatroom: the request/response half of
//	  client interaction. chat both publishes to subscribers and drives
//	  an at-least-once retry loop into the coordinator's logChatMessage,
//	  serialized per node by a dedicated mutex so this node's messages
//	  reach every data node in submission order.
//
//	ChatOps/mgmt (HTTP, coordinator-facing)
//	  createChatroom/deleteChatroom/chatroomData/chatrooms: how the
//	  coordinator places new rooms, tears down deleted ones, and polls
//	  load for its minimum-load placement decision.
//
// # Concurrency Model
//
// Registry guards the chatroom table with one mutex; each Chatroom
// guards its own subscriber map with its own mutex, so two different
// chatrooms never contend on each other's traffic. Every client stream
// runs its EOF-detection read loop on its own goroutine.
//
// # See Also
//
// internal/coordinator places chatrooms onto this package's Registry via
// its ChatOps(mgmt) surface. internal/clientkit is the client-side
// counterpart to the Stream and ChatUserOps protocols documented here.
package chatnode
