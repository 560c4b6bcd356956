// Package mqtt provides the MQTT session used to talk to a Lutron hub.
//
// The hub runs its own broker. The gateway connects as a client,
// authenticating with the hub's bearer token as the MQTT password, and
// exchanges JSON messages on four topics under a prefix (default "lutron"):
//
//	lutron/commands  gateway -> hub   GetDevices, RuntimePropertyQuery, GoToLevel
//	lutron/status    hub -> gateway   heartbeats
//	lutron/events    hub -> gateway   ListDevices, RuntimePropertyUpdate
//	lutron/remote    hub -> gateway   remote button presses
//
// # Reconnection
//
// A Client represents exactly one broker session. Auto-reconnect is
// disabled; when the link drops the WithOnDisconnect callback fires and
// the owner dials a new Client after its own backoff. This keeps the
// connection state machine in one place.
//
// # Security Considerations
//
//   - Use an ssl:// or mqtts:// URL to enable TLS (minimum TLS 1.2)
//   - The token grants full control of the hub; never log it
//
// # Usage
//
//	opts := mqtt.OptionsFromConfig(cfg.Hub, "", clientID)
//	client, err := mqtt.Connect(ctx, opts,
//	    mqtt.WithOnDisconnect(func(err error) { ... }),
//	    mqtt.WithLogger(log),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topics := mqtt.NewTopics(cfg.Hub.TopicPrefix)
//	err = client.Subscribe(topics.Status(), 0, handleStatus)
package mqtt
