package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

const fileColumns = `owner_id, file_id, object_key, display_name, size, content_type, folder_id,
	created_at, updated_at, is_deleted, deleted_at, cached_url`

const insertFile = `
		INSERT INTO file_records (` + fileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*metadata.FileRecord, error) {
	var (
		r         metadata.FileRecord
		deletedAt sql.NullTime
	)
	err := row.Scan(&r.OwnerID, &r.FileID, &r.ObjectKey, &r.DisplayName, &r.Size, &r.ContentType,
		&r.FolderID, &r.CreatedAt, &r.UpdatedAt, &r.IsDeleted, &deletedAt, &r.CachedURL)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		r.DeletedAt = &t
	}
	return &r, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// GetFile selects one record by primary key.
func (s *SQLMetadataStore) GetFile(ctx context.Context, ownerID, fileID string) (*metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := `SELECT ` + fileColumns + ` FROM file_records WHERE owner_id=$1 AND file_id=$2`
	r, err := scanFile(s.db.QueryRowContext(ctx, query, ownerID, fileID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("file %s/%s: %w", ownerID, fileID, metadata.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to select file: %w", err)
	}
	return r, nil
}

// PutFile upserts a record by (owner_id, file_id).
func (s *SQLMetadataStore) PutFile(ctx context.Context, r *metadata.FileRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := metadata.ValidateFile(r); err != nil {
		return err
	}

	args := []any{
		r.OwnerID, r.FileID, r.ObjectKey, r.DisplayName, r.Size, r.ContentType, r.FolderID,
		r.CreatedAt, r.UpdatedAt, r.IsDeleted, nullTime(r.DeletedAt), r.CachedURL,
	}

	if s.dialect == DialectDuckDB {
		update := `
			UPDATE file_records SET
				object_key=$3, display_name=$4, size=$5, content_type=$6, folder_id=$7,
				created_at=$8, updated_at=$9, is_deleted=$10, deleted_at=$11, cached_url=$12
			WHERE owner_id=$1 AND file_id=$2`
		if err := s.upsertKeyless(ctx, update, args, insertFile, args); err != nil {
			return fmt.Errorf("failed to upsert file: %w", err)
		}
		return nil
	}

	query := insertFile + `
		ON CONFLICT (owner_id, file_id)
		DO UPDATE SET
			object_key = EXCLUDED.object_key,
			display_name = EXCLUDED.display_name,
			size = EXCLUDED.size,
			content_type = EXCLUDED.content_type,
			folder_id = EXCLUDED.folder_id,
			created_at = EXCLUDED.created_at,
			updated_at = EXCLUDED.updated_at,
			is_deleted = EXCLUDED.is_deleted,
			deleted_at = EXCLUDED.deleted_at,
			cached_url = EXCLUDED.cached_url
	`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}
	return nil
}

// UpdateFile builds a SET clause from the non-nil update fields and returns
// the updated row in the same statement (PostgreSQL) or a follow-up select
// (DuckDB).
func (s *SQLMetadataStore) UpdateFile(ctx context.Context, ownerID, fileID string, u metadata.FileUpdate) (*metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if u.ObjectKey != nil {
		set("object_key", *u.ObjectKey)
	}
	if u.DisplayName != nil {
		set("display_name", *u.DisplayName)
	}
	if u.IsDeleted != nil {
		set("is_deleted", *u.IsDeleted)
		if *u.IsDeleted {
			if u.DeletedAt != nil {
				set("deleted_at", nullTime(u.DeletedAt))
			}
		} else {
			set("deleted_at", sql.NullTime{})
		}
	}
	if u.CachedURL != nil {
		set("cached_url", *u.CachedURL)
	}
	if !u.UpdatedAt.IsZero() {
		set("updated_at", u.UpdatedAt)
	}

	if len(sets) == 0 {
		return s.GetFile(ctx, ownerID, fileID)
	}

	args = append(args, ownerID, fileID)

	if s.dialect == DialectDuckDB {
		return s.updateFileKeyless(ctx, ownerID, fileID, sets, args)
	}

	query := fmt.Sprintf(`UPDATE file_records SET %s WHERE owner_id=$%d AND file_id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args)-1, len(args), fileColumns)

	r, err := scanFile(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("file %s/%s: %w", ownerID, fileID, metadata.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to update file: %w", err)
	}
	return r, nil
}

func (s *SQLMetadataStore) updateFileKeyless(ctx context.Context, ownerID, fileID string, sets []string, args []any) (*metadata.FileRecord, error) {
	query := fmt.Sprintf(`UPDATE file_records SET %s WHERE owner_id=$%d AND file_id=$%d`,
		strings.Join(sets, ", "), len(args)-1, len(args))

	s.writeMu.Lock()
	res, err := s.db.ExecContext(ctx, query, args...)
	s.writeMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to update file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("file %s/%s: %w", ownerID, fileID, metadata.ErrRecordNotFound)
	}
	return s.GetFile(ctx, ownerID, fileID)
}

// DeleteFile removes one record; zero affected rows means it was absent.
func (s *SQLMetadataStore) DeleteFile(ctx context.Context, ownerID, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM file_records WHERE owner_id=$1 AND file_id=$2`, ownerID, fileID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("file %s/%s: %w", ownerID, fileID, metadata.ErrRecordNotFound)
	}
	return nil
}

// ScanFiles translates the filter into a WHERE clause.
func (s *SQLMetadataStore) ScanFiles(ctx context.Context, f metadata.FileFilter) ([]*metadata.FileRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		conds []string
		args  []any
	)
	where := func(cond string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.OwnerID != "" {
		where("owner_id=$%d", f.OwnerID)
	}
	if f.ObjectKey != "" {
		where("object_key=$%d", f.ObjectKey)
	}
	if f.KeyPrefix != "" {
		where("starts_with(object_key, $%d)", f.KeyPrefix)
	}
	if f.Deleted != nil {
		where("is_deleted=$%d", *f.Deleted)
	}
	if !f.DeletedBefore.IsZero() {
		where("is_deleted AND deleted_at < $%d", f.DeletedBefore)
	}

	query := `SELECT ` + fileColumns + ` FROM file_records`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*metadata.FileRecord
	for rows.Next() {
		r, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
