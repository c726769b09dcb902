package postgres

import (
	"context"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/profile"
)

type profileRepository struct {
	db *sqlx.DB
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *sqlx.DB) profile.Repository {
	return &profileRepository{db: db}
}

func (repo *profileRepository) CreateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	q := `INSERT INTO profile (id, name, role, class, gender, created_at, updated_at)
		VALUES (:id, :name, :role, :class, :gender, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, p); err != nil {
		return profile.Profile{}, errors.Wrap(err, "inserting profile")
	}
	return p, nil
}

func (repo *profileRepository) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	if !validID(id) {
		return profile.Profile{}, profile.ErrNotFound
	}
	var p profile.Profile
	if err := repo.db.GetContext(ctx, &p, "SELECT * FROM profile WHERE id = $1", id); err != nil {
		return profile.Profile{}, trapNoRowsErr(err, profile.ErrNotFound, "finding profile")
	}
	return p, nil
}

func (repo *profileRepository) UpdateProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	q := `UPDATE profile SET name = :name, role = :role, class = :class, gender = :gender, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, p)
	if err != nil {
		return profile.Profile{}, errors.Wrap(err, "updating profile")
	}
	if err = checkAffected(res, profile.ErrNotFound); err != nil {
		return profile.Profile{}, err
	}
	return p, nil
}

func (repo *profileRepository) QueryProfiles(ctx context.Context, filter profile.QueryFilter, ordering []core.DBOrdering) ([]profile.Profile, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Search != "" {
		where = append(where, "name ILIKE "+arg("%"+filter.Search+"%"))
	}
	if len(filter.Roles) > 0 {
		where = append(where, "role = ANY("+arg(pq.Array(filter.Roles))+")")
	}
	if filter.Class != "" {
		where = append(where, "class = "+arg(filter.Class))
	}

	q := "SELECT * FROM profile"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += orderBy(ordering, "name ASC")

	profiles := make([]profile.Profile, 0)
	if err := repo.db.SelectContext(ctx, &profiles, q, args...); err != nil {
		return nil, errors.Wrap(err, "querying profiles")
	}
	return profiles, nil
}
