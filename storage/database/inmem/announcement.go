package inmem

import (
	"context"
	"sort"

	"github.com/trezcool/council/core/announcement"
)

type announcementRepository struct {
	db *announcementTable
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *DB) announcement.Repository {
	return &announcementRepository{db: db.announcements}
}

func (repo *announcementRepository) CreateAnnouncement(_ context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = newID()
	repo.db.rows = append(repo.db.rows, &a)
	return a, nil
}

func (repo *announcementRepository) GetAnnouncement(_ context.Context, id string) (announcement.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, a := range repo.db.rows {
		if a.ID == id {
			return *a, nil
		}
	}
	return announcement.Announcement{}, announcement.ErrNotFound
}

func (repo *announcementRepository) QueryAnnouncements(_ context.Context) ([]announcement.Announcement, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	list := make([]announcement.Announcement, 0, len(repo.db.rows))
	for i := len(repo.db.rows) - 1; i >= 0; i-- { // newest first
		list = append(list, *repo.db.rows[i])
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Pinned && !list[j].Pinned })
	return list, nil
}

func (repo *announcementRepository) UpdateAnnouncement(_ context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, orig := range repo.db.rows {
		if orig.ID == a.ID {
			repo.db.rows[i] = &a
			return a, nil
		}
	}
	return announcement.Announcement{}, announcement.ErrNotFound
}

func (repo *announcementRepository) DeleteAnnouncement(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for i, a := range repo.db.rows {
		if a.ID == id {
			repo.db.rows = append(repo.db.rows[:i], repo.db.rows[i+1:]...)
			return nil
		}
	}
	return announcement.ErrNotFound
}
