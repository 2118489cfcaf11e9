// Package clientkit implements the non-interactive half of the chat
// client's wire protocol: the coordinator's UserOps calls, one chat
// node's ChatUserOps calls, and the raw TCP stream handshake a
// subscriber opens after a successful getChatroom/reestablishChatroom.
//
// The interactive prompt loop, the chat window, and the goroutines that
// drive them (message receiver, message sender) are external
// collaborators this package hands data to and receives calls from —
// they are out of scope here, same as the rest of the client UI.
package clientkit
