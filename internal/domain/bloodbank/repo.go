package bloodbank

import (
	"context"

	"github.com/sanjeevni/portal/internal/platform/store"
)

type Repository interface {
	List(ctx context.Context) ([]BloodRequest, error)
	Append(ctx context.Context, r BloodRequest) error
}

type storeRepo struct {
	list *store.List[BloodRequest]
}

// NewStoreRepo keeps requests in the client's bloodRequests record.
func NewStoreRepo(kv store.KV) Repository {
	return &storeRepo{list: store.NewList[BloodRequest](kv, store.BloodRequestsKey)}
}

func (r *storeRepo) List(ctx context.Context) ([]BloodRequest, error) {
	return r.list.Get(ctx)
}

func (r *storeRepo) Append(ctx context.Context, req BloodRequest) error {
	return r.list.Append(ctx, req)
}
