package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/council/core/announcement"
)

type announcementRepository struct {
	db *sqlx.DB
}

var _ announcement.Repository = (*announcementRepository)(nil) // interface compliance check

func NewAnnouncementRepository(db *sqlx.DB) announcement.Repository {
	return &announcementRepository{db: db}
}

func (repo *announcementRepository) CreateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	a.ID = newID()
	q := `INSERT INTO announcement (id, author_id, title, body, pinned, created_at, updated_at)
		VALUES (:id, :author_id, :title, :body, :pinned, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, a); err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return a, nil
}

func (repo *announcementRepository) GetAnnouncement(ctx context.Context, id string) (announcement.Announcement, error) {
	if !validID(id) {
		return announcement.Announcement{}, announcement.ErrNotFound
	}
	var a announcement.Announcement
	if err := repo.db.GetContext(ctx, &a, "SELECT * FROM announcement WHERE id = $1", id); err != nil {
		return announcement.Announcement{}, trapNoRowsErr(err, announcement.ErrNotFound, "finding announcement")
	}
	return a, nil
}

func (repo *announcementRepository) QueryAnnouncements(ctx context.Context) ([]announcement.Announcement, error) {
	list := make([]announcement.Announcement, 0)
	q := "SELECT * FROM announcement ORDER BY pinned DESC, created_at DESC"
	if err := repo.db.SelectContext(ctx, &list, q); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}
	return list, nil
}

func (repo *announcementRepository) UpdateAnnouncement(ctx context.Context, a announcement.Announcement) (announcement.Announcement, error) {
	q := "UPDATE announcement SET title = :title, body = :body, pinned = :pinned, updated_at = :updated_at WHERE id = :id"
	res, err := repo.db.NamedExecContext(ctx, q, a)
	if err != nil {
		return announcement.Announcement{}, errors.Wrap(err, "updating announcement")
	}
	if err = checkAffected(res, announcement.ErrNotFound); err != nil {
		return announcement.Announcement{}, err
	}
	return a, nil
}

func (repo *announcementRepository) DeleteAnnouncement(ctx context.Context, id string) error {
	if !validID(id) {
		return announcement.ErrNotFound
	}
	res, err := repo.db.ExecContext(ctx, "DELETE FROM announcement WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	return checkAffected(res, announcement.ErrNotFound)
}
