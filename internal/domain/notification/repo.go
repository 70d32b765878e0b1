package notification

import (
	"context"

	"github.com/sanjeevni/portal/internal/platform/store"
)

type Repository interface {
	List(ctx context.Context) ([]Notification, error)
	Prepend(ctx context.Context, n Notification, limit int) error
	Clear(ctx context.Context) error
}

type storeRepo struct {
	list *store.List[Notification]
}

// NewStoreRepo keeps notifications in the client's userNotifications record.
func NewStoreRepo(kv store.KV) Repository {
	return &storeRepo{list: store.NewList[Notification](kv, store.NotificationsKey)}
}

func (r *storeRepo) List(ctx context.Context) ([]Notification, error) {
	return r.list.Get(ctx)
}

func (r *storeRepo) Prepend(ctx context.Context, n Notification, limit int) error {
	return r.list.Prepend(ctx, n, limit)
}

func (r *storeRepo) Clear(ctx context.Context) error {
	return r.list.Set(ctx, []Notification{})
}
