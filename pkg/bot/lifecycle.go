package bot

import "github.com/grvsrs/onebus/pkg/onebot"

// LifecycleKind discriminates connect from disconnect.
type LifecycleKind int

const (
	// Connected is emitted after an AddBot action registers a handle.
	Connected LifecycleKind = iota
	// Disconnected is emitted after a RemoveBot action deletes one.
	Disconnected
)

// LifecycleEvent is the internal event emitted by the control plane when
// the registry gains or loses an identity. Unlike wire events it carries
// the full handle, so consumers can talk to a bot the moment it connects.
// Lifecycle events bypass matcher priority/blocking rules.
type LifecycleEvent struct {
	Kind LifecycleKind
	Bot  *Bot
}

func (e *LifecycleEvent) SelfID() string   { return e.Bot.ID }
func (e *LifecycleEvent) Category() string { return onebot.CategoryLifecycle }
