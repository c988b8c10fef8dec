package repository

import (
	"context"
	"fmt"

	"guildwatch/database"
	"guildwatch/events"
	"guildwatch/service"

	"github.com/jackc/pgx/v5"
)

// unitOfWork implements the service.UnitOfWork interface
type unitOfWork struct {
	db       *database.DB
	eventBus *events.Bus
	tx       pgx.Tx
	ctx      context.Context

	txBus          *events.TransactionalBus
	guildRepo      service.GuildRepository
	playerRepo     service.PlayerRepository
	membershipRepo service.MembershipRepository
	violationRepo  service.ViolationRepository
}

type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:       db,
		eventBus: eventBus,
	}
}

// Create returns an unstarted UnitOfWork
func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		db:       f.db,
		eventBus: f.eventBus,
	}
}

// Begin starts a new transaction and binds repositories to it
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx
	u.txBus = events.NewTransactionalBus(u.eventBus)
	u.guildRepo = NewGuildRepositoryWithTx(tx)
	u.playerRepo = NewPlayerRepositoryWithTx(tx)
	u.membershipRepo = NewMembershipRepositoryWithTx(tx)
	u.violationRepo = NewViolationRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Events are best-effort once the database transaction has committed
	_ = u.txBus.Flush(u.ctx)

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	u.txBus.Discard()

	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// GuildRepository returns the guild repository for this unit of work
func (u *unitOfWork) GuildRepository() service.GuildRepository {
	if u.guildRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.guildRepo
}

// PlayerRepository returns the player repository for this unit of work
func (u *unitOfWork) PlayerRepository() service.PlayerRepository {
	if u.playerRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.playerRepo
}

// MembershipRepository returns the membership repository for this unit of work
func (u *unitOfWork) MembershipRepository() service.MembershipRepository {
	if u.membershipRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.membershipRepo
}

// ViolationRepository returns the violation repository for this unit of work
func (u *unitOfWork) ViolationRepository() service.ViolationRepository {
	if u.violationRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.violationRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.txBus == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.txBus
}
