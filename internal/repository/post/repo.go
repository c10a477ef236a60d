package post

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/prok/internal/model"
)

var ErrPostNotFound = errors.New("post not found")

// Repository provides CRUD operations for posts in the database.
type Repository struct {
	db *dbpg.DB
}

// NewRepository creates a new Repository with the given DB connection.
func NewRepository(db *dbpg.DB) *Repository {
	return &Repository{db: db}
}

// CreatePost inserts a new post and returns it with the generated ID and timestamp.
func (r *Repository) CreatePost(ctx context.Context, p model.Post) (model.Post, error) {
	query := `
		INSERT INTO posts (user_id, content, media_url, media_thumbnail, category, tags, visibility)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
    `

	err := r.db.QueryRowContext(
		ctx, query, p.UserID, p.Content, p.MediaURL, p.MediaThumbnail, p.Category, pq.Array(p.Tags), p.Visibility,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return model.Post{}, fmt.Errorf("create: failed to create post: %w", err)
	}

	return p, nil
}

// GetPost retrieves a post by ID.
func (r *Repository) GetPost(ctx context.Context, id uuid.UUID) (model.Post, error) {
	query := `
		SELECT id, user_id, content, media_url, media_thumbnail, category, tags,
		       visibility, likes_count, views_count, created_at
		FROM posts
		WHERE id = $1
    `

	p, err := scanPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Post{}, ErrPostNotFound
		}

		return model.Post{}, fmt.Errorf("get: failed to get post: %w", err)
	}

	return p, nil
}

// DeletePost deletes a post owned by userID.
func (r *Repository) DeletePost(ctx context.Context, id, userID uuid.UUID) error {
	query := `
		DELETE FROM posts WHERE id = $1 AND user_id = $2
    `

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete: failed to delete post: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete: failed to get number of rows affected: %w", err)
	}

	if n == 0 {
		return ErrPostNotFound
	}

	return nil
}

// Latest returns up to limit public posts, newest first.
func (r *Repository) Latest(ctx context.Context, limit int) ([]model.Post, error) {
	query := `
		SELECT id, user_id, content, media_url, media_thumbnail, category, tags,
		       visibility, likes_count, views_count, created_at
		FROM posts
		WHERE visibility = 'public'
		ORDER BY created_at DESC
		LIMIT $1
    `

	rows, err := r.db.Master.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("latest: failed to query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]model.Post, 0, limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("latest: failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("latest: %w", err)
	}

	return posts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(s scanner) (model.Post, error) {
	var p model.Post
	var tags pq.StringArray

	err := s.Scan(
		&p.ID, &p.UserID, &p.Content, &p.MediaURL, &p.MediaThumbnail, &p.Category, &tags,
		&p.Visibility, &p.LikesCount, &p.ViewsCount, &p.CreatedAt,
	)
	if err != nil {
		return model.Post{}, err
	}
	p.Tags = []string(tags)

	return p, nil
}
