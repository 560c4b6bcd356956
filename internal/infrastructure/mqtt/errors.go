package mqtt

import "errors"

// Errors returned by Client. Check with errors.Is.
var (
	// ErrNotConnected means the session is down. The engine redials on its
	// own schedule; callers should not retry immediately.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed wraps every failed connect attempt, including timeouts.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrInvalidBrokerURL means the hub endpoint cannot be used at all.
	// Retrying will not help.
	ErrInvalidBrokerURL = errors.New("mqtt: invalid broker url")

	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS levels above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level")

	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
