package chat

import "time"

// TopicRouted is the event bus topic published once per handled message.
const TopicRouted = "chat.routed"

// RoutedEvent describes one dispatched request: which branch handled it, how
// long the whole handle took, and the error message when the branch failed
// and a fallback reply was returned instead.
type RoutedEvent struct {
	SessionID string
	Decision  Decision
	Err       string
	Latency   time.Duration
}
