package booking

import (
	"context"

	"github.com/sanjeevni/portal/internal/platform/store"
)

type AppointmentRepository interface {
	List(ctx context.Context) ([]Appointment, error)
	Append(ctx context.Context, a Appointment) error
}

type storeRepo struct {
	list *store.List[Appointment]
}

// NewStoreRepo keeps appointments in the client's userAppointments record.
func NewStoreRepo(kv store.KV) AppointmentRepository {
	return &storeRepo{list: store.NewList[Appointment](kv, store.AppointmentsKey)}
}

func (r *storeRepo) List(ctx context.Context) ([]Appointment, error) {
	return r.list.Get(ctx)
}

func (r *storeRepo) Append(ctx context.Context, a Appointment) error {
	return r.list.Append(ctx, a)
}
