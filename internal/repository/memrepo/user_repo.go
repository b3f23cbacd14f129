package memrepo

import (
	"context"
	"strings"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
)

type UserRepository struct {
	base
}

// CreateUser создает юзера. В случае конфликта юзернейма или почты возвращает ошибку domain.ErrDuplicateKey.
func (r *UserRepository) CreateUser(_ context.Context, args repoargs.CreateUser) (*domain.User, error) {
	var user domain.User
	err := r.write(func(d *data) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Username, args.Username) ||
				(args.Email != "" && strings.EqualFold(u.Email, args.Email)) {
				return errorf(domain.ErrDuplicateKey, "creating user %s", args.Username)
			}
		}
		d.userSeq++
		now := r.s.now()
		user = domain.User{
			ID:        d.userSeq,
			CreatedAt: now,
			UpdatedAt: now,
			Username:  args.Username,
			Email:     args.Email,
			Password:  args.Password,
			Role:      args.Role,
		}
		d.users[user.ID] = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindUserByUsername(_ context.Context, username string) (*domain.User, error) {
	var user *domain.User
	err := r.read(func(d *data) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Username, username) {
				user = &u
				return nil
			}
		}
		return errorf(domain.ErrRecordNotFound, "finding user by username %s", username)
	})
	return user, err
}

func (r *UserRepository) FindUserByID(_ context.Context, id int64) (*domain.User, error) {
	var user *domain.User
	err := r.read(func(d *data) error {
		u, ok := d.users[id]
		if !ok {
			return errorf(domain.ErrRecordNotFound, "finding user by id %d", id)
		}
		user = &u
		return nil
	})
	return user, err
}
