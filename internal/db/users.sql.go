package db

import "context"

const createUser = `INSERT INTO users (username, password, instrument, role_id)
VALUES (?, ?, ?, ?)
RETURNING id, username, password, instrument, role_id`

type CreateUserParams struct {
	Username   string
	Password   string
	Instrument string
	RoleID     int64
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Username,
		arg.Password,
		arg.Instrument,
		arg.RoleID,
	)
	var i User
	err := row.Scan(
		&i.ID,
		&i.Username,
		&i.Password,
		&i.Instrument,
		&i.RoleID,
	)
	return i, err
}

const selectUserWithRole = `SELECT u.id, u.username, u.password, u.instrument, u.role_id, r.name
FROM users u
JOIN roles r ON r.id = u.role_id`

const getUserByID = selectUserWithRole + `
WHERE u.id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id int64) (UserWithRole, error) {
	row := q.db.QueryRowContext(ctx, getUserByID, id)
	return scanUserWithRole(row)
}

const getUserByUsername = selectUserWithRole + `
WHERE u.username = ?`

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (UserWithRole, error) {
	row := q.db.QueryRowContext(ctx, getUserByUsername, username)
	return scanUserWithRole(row)
}

const listUsers = selectUserWithRole + `
ORDER BY u.id`

func (q *Queries) ListUsers(ctx context.Context) ([]UserWithRole, error) {
	rows, err := q.db.QueryContext(ctx, listUsers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []UserWithRole
	for rows.Next() {
		i, err := scanUserWithRole(rows)
		if err != nil {
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

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanUserWithRole(s scanner) (UserWithRole, error) {
	var i UserWithRole
	err := s.Scan(
		&i.ID,
		&i.Username,
		&i.Password,
		&i.Instrument,
		&i.RoleID,
		&i.RoleName,
	)
	return i, err
}
