// Package chat defines the boundary to the chat transport. The orchestrator
// and command layer depend only on this interface; the IRC protocol itself
// lives behind it.
package chat

import "context"

// Credentials is everything a transport needs to join one channel as the
// authenticated broadcaster.
type Credentials struct {
	Username    string
	AccessToken string
	Channel     string
}

// Message is one chat line as seen by the command layer.
type Message struct {
	Channel       string
	User          string
	Text          string
	IsMod         bool
	IsBroadcaster bool
}

// Handler consumes incoming chat messages.
type Handler func(Message)

// Client is the chat collaborator contract. The app manages exactly one
// active connection; Connect on a connected client replaces the previous
// connection.
type Client interface {
	Connect(ctx context.Context, creds Credentials) error
	Disconnect() error
	Say(channel, text string) error
	OnMessage(handler Handler)
}
