package profile

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/council/core"
)

var (
	// errors
	ErrNotFound      = core.NewNotFoundError("profile not found")
	ErrRoleTooHigh   = core.NewPermissionError("not enough rights to set this role")
	ErrOwnRoleChange = core.NewPermissionError("you cannot change your own role")

	// OrderingFields are the profile fields a list can be ordered by.
	OrderingFields = []string{"name", "role", "class", "created_at"}
)

type (
	Repository interface {
		CreateProfile(ctx context.Context, p Profile) (Profile, error)
		GetProfile(ctx context.Context, id string) (Profile, error)
		UpdateProfile(ctx context.Context, p Profile) (Profile, error)
		// QueryProfiles applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on Profile.Name.
		QueryProfiles(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Profile, error)
	}

	Service interface {
		Get(ctx context.Context, id string) (Profile, error)
		Provision(ctx context.Context, id, name string) error
		Create(ctx context.Context, p Profile) (Profile, error)
		Update(ctx context.Context, id string, up UpdateProfile) (Profile, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Profile, error)
		SetRole(ctx context.Context, actor Profile, id, role string) (Profile, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Get(ctx context.Context, id string) (Profile, error) {
	return svc.repo.GetProfile(ctx, id)
}

// Provision creates the default (student) profile of an account. It is a no-op if the profile exists.
func (svc *service) Provision(ctx context.Context, id, name string) error {
	if _, err := svc.repo.GetProfile(ctx, id); err == nil {
		return nil
	} else if err != ErrNotFound {
		return errors.Wrap(err, "finding profile")
	}
	_, err := svc.Create(ctx, Profile{ID: id, Name: name, Role: RoleStudent})
	return err
}

func (svc *service) Create(ctx context.Context, p Profile) (Profile, error) {
	now := time.Now().UTC()
	p.Name = core.CleanString(p.Name)
	if p.Role == "" {
		p.Role = RoleStudent
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	p, err := svc.repo.CreateProfile(ctx, p)
	return p, errors.Wrap(err, "creating profile")
}

func (svc *service) Update(ctx context.Context, id string, up UpdateProfile) (Profile, error) {
	p, err := svc.repo.GetProfile(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if up.Name != "" {
		p.Name = up.Name
	}
	if up.Class != nil {
		p.Class = null.NewString(*up.Class, *up.Class != "")
	}
	if up.Gender != nil {
		p.Gender = null.NewString(*up.Gender, *up.Gender != "")
	}
	p.UpdatedAt = time.Now().UTC()
	p, err = svc.repo.UpdateProfile(ctx, p)
	return p, errors.Wrap(err, "updating profile")
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Profile, error) {
	filter.Clean()
	return svc.repo.QueryProfiles(ctx, filter, core.CleanOrderings(ordering, OrderingFields...))
}

// SetRole changes the role of a profile. The actor cannot grant a role above their own,
// nor demote someone ranked above them, nor change their own role.
func (svc *service) SetRole(ctx context.Context, actor Profile, id, role string) (Profile, error) {
	if actor.ID == id {
		return Profile{}, ErrOwnRoleChange
	}
	if RolePriority(role) > RolePriority(actor.Role) {
		return Profile{}, ErrRoleTooHigh
	}
	p, err := svc.repo.GetProfile(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	if RolePriority(p.Role) > RolePriority(actor.Role) {
		return Profile{}, ErrRoleTooHigh
	}
	p.Role = role
	p.UpdatedAt = time.Now().UTC()
	p, err = svc.repo.UpdateProfile(ctx, p)
	return p, errors.Wrap(err, "updating role")
}
