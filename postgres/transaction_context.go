package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jinzhu/gorm"
	log "github.com/public-forge/go-logger"
)

type contextKey string

// TransactionContextKey is used as the context key to store transaction contexts.
const TransactionContextKey = contextKey("TransactionContextKey")

// Errors related to transaction handling.
var (
	ErrTxWasRollbacked  = errors.New("the transaction has been rollbacked")               // ErrTxWasRollbacked occurs when a rollback has already been performed.
	ErrNotInTransaction = errors.New("not in a transaction, Begin() has not been called") // ErrNotInTransaction occurs when a transaction is expected but not started.
)

type (
	// ITransactionContext runs a unit of work on the factory's shared connection.
	// Nested callers share one transaction; only the caller that opened it may commit.
	//
	//	txContext, ctx := GetTransactionContext(ctx, factory)
	//	id, err := txContext.Begin()
	//	if err != nil { return err }
	//	defer txContext.Rollback()
	//	txContext.Provider().Create(&row)
	//	return txContext.Commit(id)
	ITransactionContext interface {
		Begin() (uuid.UUID, error) // Begins a transaction, or joins the running one, and returns the caller's id.
		Commit(uuid.UUID) error    // Commits if id belongs to the caller that started the transaction.
		Rollback() error           // Rolls back the transaction at any nesting level.
		Provider() *gorm.DB        // Returns the transaction, or the shared connection outside a transaction.
	}

	transactionContext struct {
		ctx             context.Context
		logger          log.Logger
		factory         *Factory
		tx              *gorm.DB
		transactionUUID *uuid.UUID
		rollbacked      bool
	}
)

// GetTransactionContext returns the transaction context stored in ctx, or creates
// one bound to factory and returns it with a derived context carrying it.
func GetTransactionContext(ctx context.Context, factory *Factory) (ITransactionContext, context.Context) {
	if txContext, found := ctx.Value(TransactionContextKey).(ITransactionContext); found {
		return txContext, ctx
	}

	txContext := newTransactionContext(ctx, log.FromContext(ctx), factory)
	return txContext, context.WithValue(ctx, TransactionContextKey, txContext)
}

// Begin starts a transaction on the shared connection, opening the connection if
// needed. Inside a running transaction it only hands out a new id.
func (c *transactionContext) Begin() (id uuid.UUID, err error) {
	if c.wasRollbacked() {
		err = ErrTxWasRollbacked
		return
	}

	id, err = uuid.NewRandom()
	if err != nil {
		return
	}

	if c.inTransaction() {
		c.logger.Debugf("use existing transaction: %v", c.transactionUUID)
		return
	}

	db, err := c.factory.Connect(c.ctx)
	if err != nil {
		c.logger.Errorf("cannot begin transaction (%v): %s", id, err)
		return
	}

	tx := db.Begin()
	if err = tx.Error; err != nil {
		c.logger.Errorf("cannot begin transaction (%v): %s", id, err)
		return
	}

	c.tx = tx
	c.transactionUUID = &id
	c.logger.Debugf("new transaction: %v", c.transactionUUID)
	return
}

// Provider returns the handle for database operations: the transaction when one
// is running, otherwise the shared connection. It returns nil after a rollback
// or when the connection cannot be opened.
func (c *transactionContext) Provider() *gorm.DB {
	if c.wasRollbacked() {
		c.logger.Error("transaction has been rolled back!")
		return nil
	}

	if c.inTransaction() {
		return c.tx
	}

	db, err := c.factory.Connect(c.ctx)
	if err != nil {
		c.logger.Errorf("no connection for provider: %s", err)
		return nil
	}
	return db
}

// Commit finalizes the transaction if id belongs to the caller that started it.
// Commits from nested callers are no-ops.
func (c *transactionContext) Commit(id uuid.UUID) error {
	if c.wasRollbacked() {
		return ErrTxWasRollbacked
	}

	if !c.inTransaction() {
		return ErrNotInTransaction
	}

	if *c.transactionUUID != id {
		return nil
	}

	defer c.dispose()

	if err := c.tx.Commit().Error; err != nil {
		c.logger.Errorf("cannot commit transaction: %v; err: %s", c.transactionUUID, err)
		return err
	}

	return nil
}

// Rollback cancels the transaction and marks the context as rolled back.
// Without a running transaction it does nothing.
func (c *transactionContext) Rollback() error {
	if c.wasRollbacked() {
		return ErrTxWasRollbacked
	}
	if !c.inTransaction() {
		c.logger.Debug("no active transaction to roll back")
		return nil
	}

	defer c.disposeAfterRollback()

	if err := c.tx.Rollback().Error; err != nil {
		c.logger.Errorf("cannot rollback (%v): %s", c.transactionUUID, err)
		return err
	}

	return nil
}

func (c *transactionContext) inTransaction() bool {
	return c.tx != nil && c.transactionUUID != nil
}

func (c *transactionContext) dispose() {
	c.logger.Debugf("disposing transaction (%v)", c.transactionUUID)
	c.tx = nil
	c.transactionUUID = nil
}

func (c *transactionContext) disposeAfterRollback() {
	c.rollbacked = true
	c.dispose()
}

func (c *transactionContext) wasRollbacked() bool {
	return c.rollbacked
}

func newTransactionContext(ctx context.Context, logger log.Logger, factory *Factory) *transactionContext {
	return &transactionContext{ctx: ctx, logger: logger, factory: factory}
}

var _ ITransactionContext = (*transactionContext)(nil)
