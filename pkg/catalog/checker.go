package catalog

import "context"

// Message is the unit of evaluation: the text a player posted plus opaque
// metadata carried through to check capabilities untouched by the engine.
type Message struct {
	Text    string
	Channel string
	Author  string
	Meta    map[string]any
}

// Checker is the capability behind a rule. Check reports whether the message
// satisfies the rule; a returned error means the capability itself failed and
// says nothing about the message. Implementations may block (remote lookups);
// the engine imposes no timeout of its own.
type Checker interface {
	Check(ctx context.Context, msg Message) (bool, error)
}

// CheckFunc adapts a plain function to Checker.
type CheckFunc func(ctx context.Context, msg Message) (bool, error)

// Check implements Checker.
func (f CheckFunc) Check(ctx context.Context, msg Message) (bool, error) {
	return f(ctx, msg)
}
