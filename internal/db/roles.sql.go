package db

import "context"

const ensureRole = `INSERT INTO roles (name) VALUES (?) ON CONFLICT (name) DO NOTHING`

// EnsureRole inserts the role if no role with that name exists.
func (q *Queries) EnsureRole(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, ensureRole, name)
	return err
}

const getRoleByName = `SELECT id, name FROM roles WHERE name = ?`

func (q *Queries) GetRoleByName(ctx context.Context, name string) (Role, error) {
	row := q.db.QueryRowContext(ctx, getRoleByName, name)
	var i Role
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const listRoles = `SELECT id, name FROM roles ORDER BY id`

func (q *Queries) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := q.db.QueryContext(ctx, listRoles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Role
	for rows.Next() {
		var i Role
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
