package session

import (
	"encoding/json"
)

// DefaultSubscriptionProfiles subscribes to remote microphones only.
var DefaultSubscriptionProfiles = json.RawMessage(`{"base":{"camera":"unsubscribed","microphone":"subscribed"}}`)

// DefaultClientSettings publishes the virtual microphone with echo
// cancellation and no camera.
var DefaultClientSettings = json.RawMessage(`{"inputs":{"camera":false,"microphone":{"isEnabled":true,"settings":{"deviceId":"mic","customConstraints":{"echoCancellation":{"exact":true}}}}}}`)

// DefaultQueueSize bounds the outbound message queue.
const DefaultQueueSize = 256
