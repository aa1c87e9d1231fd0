package ai

import "context"

// TextModel is a single blocking call to a generative text service. The
// returned text is untrusted: it may be empty or not structured at all.
type TextModel interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// ModelFunc adapts an ordinary function to TextModel.
type ModelFunc func(ctx context.Context, prompt string) (string, error)

func (f ModelFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
