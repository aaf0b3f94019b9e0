package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
)

const folderColumns = `owner_id, folder_id, name, parent_folder_id, parent_path, created_at`

const insertFolder = `
		INSERT INTO folder_records (` + folderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6)`

func scanFolder(row rowScanner) (*metadata.FolderRecord, error) {
	var (
		f        metadata.FolderRecord
		parentID sql.NullString
	)
	if err := row.Scan(&f.OwnerID, &f.FolderID, &f.Name, &parentID, &f.ParentPath, &f.CreatedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := parentID.String
		f.ParentFolderID = &id
	}
	return &f, nil
}

// PutFolder upserts a folder by (owner_id, folder_id).
func (s *SQLMetadataStore) PutFolder(ctx context.Context, f *metadata.FolderRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := metadata.ValidateFolder(f); err != nil {
		return err
	}

	var parentID sql.NullString
	if f.ParentFolderID != nil {
		parentID = sql.NullString{String: *f.ParentFolderID, Valid: true}
	}

	args := []any{f.OwnerID, f.FolderID, f.Name, parentID, f.ParentPath, f.CreatedAt}

	if s.dialect == DialectDuckDB {
		update := `
			UPDATE folder_records SET name=$3, parent_folder_id=$4, parent_path=$5
			WHERE owner_id=$1 AND folder_id=$2`
		if err := s.upsertKeyless(ctx, update, args[:5], insertFolder, args); err != nil {
			return fmt.Errorf("failed to upsert folder: %w", err)
		}
		return nil
	}

	query := insertFolder + `
		ON CONFLICT (owner_id, folder_id)
		DO UPDATE SET
			name = EXCLUDED.name,
			parent_folder_id = EXCLUDED.parent_folder_id,
			parent_path = EXCLUDED.parent_path
	`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert folder: %w", err)
	}
	return nil
}

// GetFolder selects one folder by primary key.
func (s *SQLMetadataStore) GetFolder(ctx context.Context, ownerID, folderID string) (*metadata.FolderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query := `SELECT ` + folderColumns + ` FROM folder_records WHERE owner_id=$1 AND folder_id=$2`
	f, err := scanFolder(s.db.QueryRowContext(ctx, query, ownerID, folderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("folder %s/%s: %w", ownerID, folderID, metadata.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to select folder: %w", err)
	}
	return f, nil
}

// ScanFolders translates the filter into a WHERE clause.
func (s *SQLMetadataStore) ScanFolders(ctx context.Context, ff metadata.FolderFilter) ([]*metadata.FolderRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		conds []string
		args  []any
	)
	if ff.OwnerID != "" {
		args = append(args, ff.OwnerID)
		conds = append(conds, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if ff.ParentPath != nil {
		args = append(args, *ff.ParentPath)
		conds = append(conds, fmt.Sprintf("parent_path=$%d", len(args)))
	}
	if ff.Name != "" {
		args = append(args, ff.Name)
		conds = append(conds, fmt.Sprintf("name=$%d", len(args)))
	}

	query := `SELECT ` + folderColumns + ` FROM folder_records`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select folders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*metadata.FolderRecord
	for rows.Next() {
		f, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
