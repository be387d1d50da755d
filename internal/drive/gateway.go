package drive

import (
	"context"
	"time"
)

// Gateway is the set of storage operations the interpreter needs. Every
// method addresses items by ID and returns *GatewayError on failure.
type Gateway interface {
	ListChildren(ctx context.Context, folderID string) ([]Item, error)
	FindChildren(ctx context.Context, folderID, name string) ([]Item, error)
	GetMetadata(ctx context.Context, id string) (*Item, error)
	GetContent(ctx context.Context, id string) (*Content, error)
	Delete(ctx context.Context, id string) error
	Move(ctx context.Context, id, newParentID string, oldParentIDs []string) error
}

// timeoutGateway bounds every call of the wrapped gateway.
type timeoutGateway struct {
	inner   Gateway
	timeout time.Duration
}

// WithTimeout wraps g so each call runs under its own deadline. A
// non-positive timeout returns g unchanged.
func WithTimeout(g Gateway, timeout time.Duration) Gateway {
	if timeout <= 0 {
		return g
	}

	return &timeoutGateway{inner: g, timeout: timeout}
}

func (t *timeoutGateway) ListChildren(ctx context.Context, folderID string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	items, err := t.inner.ListChildren(ctx, folderID)

	return items, classify("list", err)
}

func (t *timeoutGateway) FindChildren(ctx context.Context, folderID, name string) ([]Item, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	items, err := t.inner.FindChildren(ctx, folderID, name)

	return items, classify("find", err)
}

func (t *timeoutGateway) GetMetadata(ctx context.Context, id string) (*Item, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	item, err := t.inner.GetMetadata(ctx, id)

	return item, classify("get", err)
}

func (t *timeoutGateway) GetContent(ctx context.Context, id string) (*Content, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	content, err := t.inner.GetContent(ctx, id)

	return content, classify("download", err)
}

func (t *timeoutGateway) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	return classify("delete", t.inner.Delete(ctx, id))
}

func (t *timeoutGateway) Move(ctx context.Context, id, newParentID string, oldParentIDs []string) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	return classify("move", t.inner.Move(ctx, id, newParentID, oldParentIDs))
}
