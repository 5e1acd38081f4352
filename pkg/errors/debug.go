package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain into log fields. Storage fields are
// filled from pgx, lib/pq or SQLite constraint messages, whichever matches.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`
	Retryable  bool   `json:"retryable,omitempty"`
	Details    any    `json:"details,omitempty"`

	Chain []string `json:"chain,omitempty"`

	Storage StorageFault `json:"storage,omitempty"`
}

// StorageFault names the database constraint behind an error, if any.
type StorageFault struct {
	Driver     string `json:"driver,omitempty"`
	SQLState   string `json:"sql_state,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

func (s StorageFault) IsZero() bool {
	return s == StorageFault{}
}

// Fields returns the dump as a flat map for structured logging.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.TopMessage,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.Retryable {
		fields["error_retryable"] = true
	}
	if !d.Storage.IsZero() {
		fields["db_driver"] = d.Storage.Driver
		fields["db_state"] = d.Storage.SQLState
		fields["db_constraint"] = d.Storage.Constraint
		fields["db_table"] = d.Storage.Table
	}
	return fields
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
		d.Retryable = MetadataFor(te.Code()).Retryable
		d.Details = te.Details()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.Storage = storageFault(err)
	return d
}

func storageFault(err error) StorageFault {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return StorageFault{
			Driver:     "pgx",
			SQLState:   pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return StorageFault{
			Driver:     "pq",
			SQLState:   string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
		}
	}

	// sqlite: "UNIQUE constraint failed: payment_intents.intent_code"
	msg := err.Error()
	for _, kind := range []string{"UNIQUE", "CHECK", "NOT NULL", "FOREIGN KEY"} {
		marker := kind + " constraint failed: "
		idx := strings.Index(msg, marker)
		if idx < 0 {
			continue
		}
		target := strings.TrimSpace(msg[idx+len(marker):])
		fault := StorageFault{Driver: "sqlite", Constraint: target, Detail: kind}
		if table, column, ok := strings.Cut(target, "."); ok {
			fault.Table, fault.Column = table, column
		}
		return fault
	}
	return StorageFault{}
}
