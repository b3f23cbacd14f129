package uow

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks
import (
	"context"
)

type TX interface {
	Get(name RepositoryName) (Repository, error)
}

// UOW единица работы: выполняет функцию в транзакции и выдает репозитории вне транзакции.
// Регистрация репозиториев остается на конкретной реализации.
type UOW interface {
	Do(ctx context.Context, fn func(ctx context.Context, tx TX) error) error
	GetRepository(name RepositoryName) (Repository, error)
}
