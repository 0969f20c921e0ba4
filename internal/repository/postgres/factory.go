package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	repo "github.com/redirex/shipglobal-backend/internal/repository"
)

type Repositories struct {
	Users        repo.Users
	Companies    repo.Companies
	Ledger       repo.Ledger
	Transactions repo.Transactions
	Imports      repo.Imports
	Outbox       repo.Outbox
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Users:        &usersRepo{pool},
		Companies:    &companiesRepo{pool},
		Ledger:       &ledgerRepo{pool},
		Transactions: &transactionsRepo{pool},
		Imports:      &importsRepo{pool},
		Outbox:       &outboxRepo{pool},
	}
}
