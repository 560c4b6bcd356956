package mqtt

import (
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayloadSize bounds outbound hub commands. Real commands are well
// under a kilobyte.
const maxPayloadSize = 64 << 10

// Publish sends a non-retained message. The hub treats every publish on
// its command topic as a fresh instruction, so nothing is ever retained.
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected, or wraps ErrPublishFailed
func (c *Client) Publish(topic string, payload []byte, qos byte) error {
	if err := checkTopic(topic, qos); err != nil {
		return err
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: %d byte payload exceeds %d", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.client.Publish(topic, qos, false, payload), ErrPublishFailed)
}

// PublishCommand publishes with the session's configured QoS.
func (c *Client) PublishCommand(topic string, payload []byte) error {
	return c.Publish(topic, payload, c.opts.QoS)
}

func checkTopic(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	return nil
}

// await blocks until the broker acknowledges tok, wrapping failures in kind.
func await(tok pahomqtt.Token, kind error) error {
	if !tok.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: no ack within %v", kind, defaultPublishTimeout)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	return nil
}
