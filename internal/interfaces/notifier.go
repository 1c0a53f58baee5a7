package interfaces

import "context"

type Notifier interface {
	Enabled() bool
	SendText(ctx context.Context, text string) error
	SendDocument(ctx context.Context, path, caption string) error
}

