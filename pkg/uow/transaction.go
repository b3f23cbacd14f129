package uow

import (
	"github.com/jackc/pgx/v5"
)

// Transaction выдает репозитории, привязанные к открытой транзакции pgx.
type Transaction struct {
	repositories map[RepositoryName]RepositoryFactory
	tx           pgx.Tx
	built        map[RepositoryName]Repository
}

func NewTransaction(tx pgx.Tx, repositories map[RepositoryName]RepositoryFactory) *Transaction {
	return &Transaction{
		repositories: repositories,
		tx:           tx,
		built:        make(map[RepositoryName]Repository, len(repositories)),
	}
}

// Get возвращает репозиторий или ошибку ErrRepositoryNotRegistered. Репозиторий создается один раз
// на транзакцию.
func (t *Transaction) Get(name RepositoryName) (Repository, error) {
	if repo, ok := t.built[name]; ok {
		return repo, nil
	}
	factory, ok := t.repositories[name]
	if !ok {
		return nil, NotRegistered(name)
	}
	repo := factory(t.tx)
	t.built[name] = repo
	return repo, nil
}

// GetAs возвращает зарегистрированный репозиторий с именем name, приведенный к типу T,
// или ошибки ErrRepositoryNotRegistered, ErrInvalidRepositoryType.
func GetAs[T any](t TX, name RepositoryName) (T, error) {
	repo, err := t.Get(name)
	var res T
	if err != nil {
		return res, err //nolint:wrapcheck
	}
	res, ok := repo.(T)
	if !ok {
		return res, &RepositoryError{Name: name, Err: ErrInvalidRepositoryType}
	}
	return res, nil
}
