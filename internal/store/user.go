package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/taskboard/apiserver/types"
)

// UserRepository handles persistence for users.
type UserRepository struct {
	*CRUD[types.User]
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{
		db: db,
		CRUD: NewCRUD[types.User](db, Mapping[types.User]{
			Table: "users",
			Columns: []string{
				"id", "email", "name", "avatar_url", "role", "password_hash",
				"created_at", "updated_at", "deleted_at",
			},
			Scan:       scanUser,
			Insertable: []string{"email", "name", "avatar_url", "role", "password_hash"},
			Patchable:  []string{"email", "name", "avatar_url", "role", "password_hash"},
		}),
	}
}

func scanUser(s RowScanner) (types.User, error) {
	var u types.User
	err := s.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.AvatarURL,
		&u.Role,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.DeletedAt,
	)
	return u, err
}

// FindByEmail fetches a live user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (types.User, bool, error) {
	return r.FindOne(ctx, Values{"email": email})
}

// Search matches live users whose name or email contains the term,
// case-insensitively, returning one page plus the total match count.
func (r *UserRepository) Search(ctx context.Context, term string, limit, offset int) ([]types.User, int, error) {
	const query = `
		SELECT id, email, name, avatar_url, role, password_hash,
		       created_at, updated_at, deleted_at
		FROM users
		WHERE deleted_at IS NULL AND (name ILIKE $1 OR email ILIKE $1)
		ORDER BY name ASC
		LIMIT $2 OFFSET $3`
	pattern := "%" + escapeLike(term) + "%"

	rows, err := r.db.QueryContext(ctx, query, pattern, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	const countQuery = `
		SELECT COUNT(*) FROM users
		WHERE deleted_at IS NULL AND (name ILIKE $1 OR email ILIKE $1)`
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, pattern).Scan(&total); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// escapeLike neutralizes LIKE/ILIKE metacharacters in a user-supplied
// search term so it matches literally. Postgres uses backslash as the
// default escape character.
func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}
