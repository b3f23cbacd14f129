package uow

import (
	"errors"
	"fmt"
)

var (
	ErrRepositoryNotRegistered     = errors.New("unit of work: no repository with this name")
	ErrRepositoryAlreadyRegistered = errors.New("unit of work: repository name is taken")
	ErrInvalidRepositoryType       = errors.New("unit of work: repository has another type")

	// ErrTxConflict транзакцию не удалось зафиксировать из-за конкурентной транзакции. Операцию можно
	// повторить целиком.
	ErrTxConflict = errors.New("unit of work: transaction lost a race")
)

// RepositoryError ошибка поиска или регистрации репозитория с указанием его имени.
type RepositoryError struct {
	Name RepositoryName
	Err  error
}

func (e *RepositoryError) Error() string {
	return fmt.Sprintf("%s (%q)", e.Err, e.Name)
}

func (e *RepositoryError) Unwrap() error {
	return e.Err
}

// NotRegistered возвращает ErrRepositoryNotRegistered для репозитория name.
func NotRegistered(name RepositoryName) error {
	return &RepositoryError{Name: name, Err: ErrRepositoryNotRegistered}
}
