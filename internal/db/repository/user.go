package repository

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"expertmarket/internal/domain"
)

type UserRepo struct {
	db DBTX
}

func NewUserRepo(db DBTX) *UserRepo {
	return &UserRepo{db: db}
}

// WithTx returns a copy bound to the transaction.
func (r *UserRepo) WithTx(tx DBTX) *UserRepo {
	return &UserRepo{db: tx}
}

const userColumns = "id, email, name, role, created_at, updated_at"

func (r *UserRepo) Create(ctx context.Context, u *domain.User) (*domain.User, error) {
	id := u.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, role, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, u.Email, u.Name, string(u.Role), now, now)
	if err != nil {
		return nil, mapDBError(err)
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

// List returns users whose role is in visibleRoles, further narrowed by the
// filter. An empty visibleRoles yields no rows.
func (r *UserRepo) List(ctx context.Context, visibleRoles []domain.Role, filter domain.UserFilter) ([]domain.User, error) {
	if len(visibleRoles) == 0 {
		return nil, nil
	}

	var (
		where []string
		args  []any
	)
	placeholders := make([]string, len(visibleRoles))
	for i, role := range visibleRoles {
		placeholders[i] = "?"
		args = append(args, string(role))
	}
	where = append(where, "role IN ("+strings.Join(placeholders, ", ")+")")

	if len(filter.Roles) > 0 {
		ph := make([]string, len(filter.Roles))
		for i, role := range filter.Roles {
			ph[i] = "?"
			args = append(args, string(role))
		}
		where = append(where, "role IN ("+strings.Join(ph, ", ")+")")
	}
	if filter.Email != "" {
		where = append(where, "email = ?")
		args = append(args, filter.Email)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at`,
		args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	defer rows.Close() //nolint:errcheck

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, mapDBError(rows.Err())
}

func (r *UserRepo) Update(ctx context.Context, id string, req domain.UpdateUserRequest) (*domain.User, error) {
	var (
		sets []string
		args []any
	)
	if req.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *req.Name)
	}
	if req.Role != nil {
		sets = append(sets, "role = ?")
		args = append(args, string(*req.Role))
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id)

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return nil, mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, domain.ErrNotFound("user %s not found", id)
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) SetRole(ctx context.Context, id string, role domain.Role) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		string(role), time.Now().UTC(), id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("user %s not found", id)
	}
	return nil
}

func (r *UserRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound("user %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapDBError(err)
	}
	u.Role = domain.Role(role)
	return &u, nil
}
