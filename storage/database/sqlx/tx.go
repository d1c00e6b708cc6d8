package sqlxrepos

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

type txKey struct{}

// executor is satisfied by both *sqlx.DB and *sqlx.Tx.
type executor interface {
	sqlx.ExtContext
}

type TxRunner struct {
	db *sqlx.DB
}

var _ core.TxRunner = (*TxRunner)(nil) // interface compliance check

func NewTxRunner(db *sqlx.DB) *TxRunner {
	return &TxRunner{db: db}
}

func (r *TxRunner) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx) // join the outer transaction
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
			return errors.Wrapf(err, "rolling back transaction: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

// getExec returns the transaction carried by ctx, if any, or db.
func getExec(ctx context.Context, db *sqlx.DB) executor {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// trapNoRowsErr maps the "no rows" error to notFoundErr.
func trapNoRowsErr(err error, notFoundErr error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFoundErr
	}
	return errors.Wrap(err, msg)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern returns an ILIKE pattern matching s literally anywhere in the value.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// orderBy renders an ORDER BY clause; fields must be whitelisted by the caller.
func orderBy(ordering []core.DBOrdering, prefix string) string {
	if len(ordering) == 0 {
		return ""
	}
	clause := " ORDER BY "
	for i, ord := range ordering {
		if i > 0 {
			clause += ", "
		}
		clause += prefix + ord.String()
	}
	return clause
}
