package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type PortalCredential struct {
	Shopdir   string
	AccountID string
	Password  string
	UpdatedAt int64
}

const createCredential = `-- name: CreateCredential :exec
INSERT INTO portal_credentials (shopdir, account_id, password, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (shopdir) DO UPDATE
SET account_id = excluded.account_id,
    password = excluded.password,
    updated_at = excluded.updated_at
`

type CreateCredentialParams struct {
	Shopdir   string
	AccountID string
	Password  string
	UpdatedAt int64
}

func (q *Queries) CreateCredential(ctx context.Context, arg CreateCredentialParams) error {
	_, err := q.db.ExecContext(ctx, createCredential,
		arg.Shopdir,
		arg.AccountID,
		arg.Password,
		arg.UpdatedAt,
	)
	return err
}

const getCredential = `-- name: GetCredential :one
SELECT shopdir, account_id, password, updated_at
FROM portal_credentials
WHERE shopdir = ?
`

func (q *Queries) GetCredential(ctx context.Context, shopdir string) (PortalCredential, error) {
	row := q.db.QueryRowContext(ctx, getCredential, shopdir)
	var i PortalCredential
	err := row.Scan(&i.Shopdir, &i.AccountID, &i.Password, &i.UpdatedAt)
	return i, err
}

const deleteCredential = `-- name: DeleteCredential :exec
DELETE FROM portal_credentials WHERE shopdir = ?
`

func (q *Queries) DeleteCredential(ctx context.Context, shopdir string) error {
	_, err := q.db.ExecContext(ctx, deleteCredential, shopdir)
	return err
}
