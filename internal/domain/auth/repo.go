package auth

import (
	"context"
	"time"

	"github.com/sanjeevni/portal/internal/platform/store"
)

type Repository interface {
	ListUsers(ctx context.Context) ([]User, error)
	AddUser(ctx context.Context, u User) error
	CurrentSession(ctx context.Context) (Session, bool, error)
	SetSession(ctx context.Context, s Session) error
	ClearSession(ctx context.Context) error
	GetOTP(ctx context.Context, phone string) (*otpIssue, error)
	SetOTP(ctx context.Context, phone string, issue otpIssue) error
	DeleteOTP(ctx context.Context, phone string) error
}

type storeRepo struct {
	kv      store.KV
	users   *store.List[User]
	current *store.Value[Session]
}

// NewStoreRepo keeps accounts in the client's users, currentUser and otp_* records.
func NewStoreRepo(kv store.KV) Repository {
	return &storeRepo{
		kv:      kv,
		users:   store.NewList[User](kv, store.UsersKey),
		current: store.NewValue[Session](kv, store.CurrentUserKey),
	}
}

func (r *storeRepo) ListUsers(ctx context.Context) ([]User, error) {
	return r.users.Get(ctx)
}

func (r *storeRepo) AddUser(ctx context.Context, u User) error {
	return r.users.Append(ctx, u)
}

func (r *storeRepo) CurrentSession(ctx context.Context) (Session, bool, error) {
	s, ok, err := r.current.Get(ctx)
	if err != nil || !ok {
		return Session{}, false, err
	}
	if s.ID == "" {
		return Session{}, false, nil
	}
	return s, true, nil
}

func (r *storeRepo) SetSession(ctx context.Context, s Session) error {
	return r.current.Set(ctx, s)
}

func (r *storeRepo) ClearSession(ctx context.Context) error {
	return r.current.Delete(ctx)
}

// GetOTP returns nil when no complete code/timestamp pair is stored.
func (r *storeRepo) GetOTP(ctx context.Context, phone string) (*otpIssue, error) {
	code, ok, err := store.NewValue[string](r.kv, store.OTPKey(phone)).Get(ctx)
	if err != nil || !ok {
		return nil, err
	}
	issuedMillis, ok, err := store.NewValue[int64](r.kv, store.OTPTimestampKey(phone)).Get(ctx)
	if err != nil || !ok {
		return nil, err
	}
	return &otpIssue{Code: code, IssuedAt: time.UnixMilli(issuedMillis)}, nil
}

func (r *storeRepo) SetOTP(ctx context.Context, phone string, issue otpIssue) error {
	if err := store.NewValue[string](r.kv, store.OTPKey(phone)).Set(ctx, issue.Code); err != nil {
		return err
	}
	return store.NewValue[int64](r.kv, store.OTPTimestampKey(phone)).Set(ctx, issue.IssuedAt.UnixMilli())
}

func (r *storeRepo) DeleteOTP(ctx context.Context, phone string) error {
	if err := store.NewValue[string](r.kv, store.OTPKey(phone)).Delete(ctx); err != nil {
		return err
	}
	return store.NewValue[int64](r.kv, store.OTPTimestampKey(phone)).Delete(ctx)
}
