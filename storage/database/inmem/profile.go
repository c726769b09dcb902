package inmem

import (
	"context"
	"sort"
	"strings"

	"github.com/trezcool/council/core"
	"github.com/trezcool/council/core/profile"
)

type profileRepository struct {
	db *profileTable
}

var _ profile.Repository = (*profileRepository)(nil) // interface compliance check

func NewProfileRepository(db *DB) profile.Repository {
	return &profileRepository{db: db.profiles}
}

func (repo *profileRepository) CreateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.rows = append(repo.db.rows, &p)
	return p, nil
}

func (repo *profileRepository) GetProfile(_ context.Context, id string) (profile.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, p := range repo.db.rows {
		if p.ID == id {
			return *p, nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) UpdateProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, orig := range repo.db.rows {
		if orig.ID == p.ID {
			repo.db.rows[i] = &p
			return p, nil
		}
	}
	return profile.Profile{}, profile.ErrNotFound
}

func (repo *profileRepository) QueryProfiles(_ context.Context, filter profile.QueryFilter, ordering []core.DBOrdering) ([]profile.Profile, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	search := strings.ToLower(filter.Search)
	profiles := make([]profile.Profile, 0, len(repo.db.rows))
	for _, p := range repo.db.rows {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if len(filter.Roles) > 0 && !contains(filter.Roles, p.Role) {
			continue
		}
		if filter.Class != "" && p.Class.String != filter.Class {
			continue
		}
		profiles = append(profiles, *p)
	}

	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "name", Ascending: true}}
	}
	sort.SliceStable(profiles, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareProfiles(profiles[i], profiles[j], ord.Field)
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return profiles, nil
}

func compareProfiles(a, b profile.Profile, field string) int {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name)
	case "role":
		return strings.Compare(a.Role, b.Role)
	case "class":
		return strings.Compare(a.Class.String, b.Class.String)
	case "created_at":
		switch {
		case a.CreatedAt.Before(b.CreatedAt):
			return -1
		case a.CreatedAt.After(b.CreatedAt):
			return 1
		}
	}
	return 0
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
