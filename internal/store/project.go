package store

import (
	"context"
	"database/sql"

	"github.com/taskboard/apiserver/types"
)

// ProjectRepository handles persistence for projects.
type ProjectRepository struct {
	*CRUD[types.Project]
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{
		db: db,
		CRUD: NewCRUD[types.Project](db, Mapping[types.Project]{
			Table: "projects",
			Columns: []string{
				"id", "name", "description", "owner_id",
				"created_at", "updated_at", "deleted_at",
			},
			Scan:       scanProject,
			Insertable: []string{"name", "description", "owner_id"},
			Patchable:  []string{"name", "description"},
		}),
	}
}

func scanProject(s RowScanner) (types.Project, error) {
	var p types.Project
	err := s.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.OwnerID,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.DeletedAt,
	)
	return p, err
}

// CreateWithOwner inserts a project together with the owner's accepted
// membership in one transaction, so a project can never exist without
// its owner being a member.
func (r *ProjectRepository) CreateWithOwner(ctx context.Context, name, description string, ownerID int) (types.Project, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Project{}, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	project, err := r.WithTx(tx).Create(ctx, Values{
		"name":        name,
		"description": description,
		"owner_id":    ownerID,
	})
	if err != nil {
		return types.Project{}, err
	}

	const memberQuery = `
		INSERT INTO project_members (project_id, user_id, status)
		VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, memberQuery, project.ID, ownerID, types.MemberAccepted); err != nil {
		return types.Project{}, err
	}

	if err := tx.Commit(); err != nil {
		return types.Project{}, err
	}
	return project, nil
}

// ListForUser returns live projects the user holds an accepted
// membership in, newest first, windowed by limit/offset.
func (r *ProjectRepository) ListForUser(ctx context.Context, userID, limit, offset int) ([]types.Project, int, error) {
	const countQuery = `
		SELECT COUNT(1)
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = $1 AND m.status = $2
		  AND m.deleted_at IS NULL AND p.deleted_at IS NULL`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, userID, types.MemberAccepted).Scan(&total); err != nil {
		return nil, 0, err
	}

	const listQuery = `
		SELECT p.id, p.name, p.description, p.owner_id, p.created_at, p.updated_at, p.deleted_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = $1 AND m.status = $2
		  AND m.deleted_at IS NULL AND p.deleted_at IS NULL
		ORDER BY p.created_at DESC
		LIMIT $3 OFFSET $4`
	rows, err := r.db.QueryContext(ctx, listQuery, userID, types.MemberAccepted, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	projects := make([]types.Project, 0, limit)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}
