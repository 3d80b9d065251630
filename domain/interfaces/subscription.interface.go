package interfaces

// Subscription is one live stream topic. The consumer ranges over
// Stream and calls Unsubscribe when done; the producer closes Stream
// after the unsubscribe is acknowledged.
type Subscription[T any] struct {
	Stream      chan T
	Unsubscribe func()
	Topic       string
}
