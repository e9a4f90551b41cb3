// Package broadcast defines the outbound chat boundary for bot messages.
package broadcast

// Broadcaster delivers bot-authored chat lines. Image is an optional asset
// path (card or dice face); empty means no image.
type Broadcaster interface {
	// ToRoom publishes a line visible to every member of the room.
	ToRoom(roomID, sender, text, image string)

	// ToSocket delivers a line to a single connection. SocketID may be
	// unknown to the caller, in which case implementations drop the line.
	ToSocket(socketID, sender, text, image string)
}
