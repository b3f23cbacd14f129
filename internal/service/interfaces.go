package service

import (
	"context"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type PasswordHasher interface {
	HashPassword(password string) (string, error)
	ComparePassword(password string, hashedPassword string) bool
}

type UserRepository interface {
	CreateUser(ctx context.Context, user repoargs.CreateUser) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByID(ctx context.Context, id int64) (*domain.User, error)
}

type AccountRepository interface {
	Create(ctx context.Context, userID int64, currency string) (*domain.Account, error)
	Get(ctx context.Context, userID int64) (*domain.Account, error)
	// Lock читает счет и блокирует его строку до конца транзакции.
	Lock(ctx context.Context, userID int64) (*domain.Account, error)
	UpdateSnapshot(ctx context.Context, userID int64, balance domain.Balance) error
	SetFrozen(ctx context.Context, userID int64, frozen bool, reason string) error
}

// EventPublisher доставляет уведомления пользователям.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}
