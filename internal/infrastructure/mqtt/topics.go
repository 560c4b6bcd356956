package mqtt

import "strings"

// DefaultTopicPrefix is the hub's topic root.
const DefaultTopicPrefix = "lutron"

// Topic suffixes under the hub prefix.
const (
	suffixCommands = "commands"
	suffixStatus   = "status"
	suffixEvents   = "events"
	suffixRemote   = "remote"
)

// Topics builds hub topic names under a prefix.
//
//	topics := mqtt.NewTopics("lutron")
//	topics.Commands() // "lutron/commands"
type Topics struct {
	prefix string
}

// NewTopics returns a topic builder for prefix. Surrounding slashes are
// trimmed and an empty prefix falls back to DefaultTopicPrefix.
func NewTopics(prefix string) Topics {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return Topics{prefix: prefix}
}

// Prefix returns the topic root.
func (t Topics) Prefix() string {
	if t.prefix == "" {
		return DefaultTopicPrefix
	}
	return t.prefix
}

// Commands is the outbound topic for requests to the hub.
func (t Topics) Commands() string { return t.join(suffixCommands) }

// Status carries hub heartbeats.
func (t Topics) Status() string { return t.join(suffixStatus) }

// Events carries device inventory and runtime property updates.
func (t Topics) Events() string { return t.join(suffixEvents) }

// Remote carries button presses from battery remotes.
func (t Topics) Remote() string { return t.join(suffixRemote) }

// Inbound returns every topic the gateway subscribes to.
func (t Topics) Inbound() []string {
	return []string{t.Status(), t.Events(), t.Remote()}
}

func (t Topics) join(suffix string) string {
	return t.Prefix() + "/" + suffix
}
