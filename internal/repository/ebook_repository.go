package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-teacher-portal/internal/models"
)

const ebookColumns = `id, title, author, subject, class_name, file_path, mime_type, size_bytes, uploaded_at, updated_at`

// EBookRepository persists e-book metadata.
type EBookRepository struct {
	db *sqlx.DB
}

// NewEBookRepository constructs the repository.
func NewEBookRepository(db *sqlx.DB) *EBookRepository {
	return &EBookRepository{db: db}
}

// List returns every e-book, newest upload first.
func (r *EBookRepository) List(ctx context.Context) ([]models.EBook, error) {
	query := `SELECT ` + ebookColumns + ` FROM ebooks ORDER BY uploaded_at DESC, title ASC`
	books := make([]models.EBook, 0)
	if err := r.db.SelectContext(ctx, &books, query); err != nil {
		return nil, fmt.Errorf("list ebooks: %w", err)
	}
	return books, nil
}

// FindByID loads one e-book; sql.ErrNoRows is returned when absent or when id is not a uuid.
func (r *EBookRepository) FindByID(ctx context.Context, id string) (*models.EBook, error) {
	query := `SELECT ` + ebookColumns + ` FROM ebooks WHERE id = $1`
	var book models.EBook
	if err := r.db.GetContext(ctx, &book, query, id); err != nil {
		return nil, missingOnBadID(err)
	}
	return &book, nil
}

// Create inserts a new e-book, assigning id and timestamps when unset.
func (r *EBookRepository) Create(ctx context.Context, book *models.EBook) error {
	if book.ID == "" {
		book.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if book.UploadedAt.IsZero() {
		book.UploadedAt = now
	}
	book.UpdatedAt = now
	const query = `INSERT INTO ebooks (` + ebookColumns + `)
	VALUES (:id, :title, :author, :subject, :class_name, :file_path, :mime_type, :size_bytes, :uploaded_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, book); err != nil {
		return fmt.Errorf("create ebook: %w", err)
	}
	return nil
}

// Update overwrites text fields and file metadata of an existing e-book.
func (r *EBookRepository) Update(ctx context.Context, book *models.EBook) error {
	book.UpdatedAt = time.Now().UTC()
	const query = `UPDATE ebooks SET title = :title, author = :author, subject = :subject, class_name = :class_name,
	file_path = :file_path, mime_type = :mime_type, size_bytes = :size_bytes, uploaded_at = :uploaded_at, updated_at = :updated_at
	WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, book)
	if err != nil {
		return fmt.Errorf("update ebook: %w", missingOnBadID(err))
	}
	return expectOneRow(res, "update ebook")
}

// Delete removes an e-book row.
func (r *EBookRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM ebooks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete ebook: %w", missingOnBadID(err))
	}
	return expectOneRow(res, "delete ebook")
}

func expectOneRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
