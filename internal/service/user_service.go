package service

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/fsdevblog/groph-auction/internal/domain"
	"github.com/fsdevblog/groph-auction/internal/repository/repoargs"
	"github.com/fsdevblog/groph-auction/internal/service/tokens"
	"github.com/fsdevblog/groph-auction/pkg/uow"
)

type UserService struct {
	uow      uow.UOW
	userRepo UserRepository
	hasher   PasswordHasher
	opts     Options
}

func NewUserService(u uow.UOW, hasher PasswordHasher, opts Options) (*UserService, error) {
	userRepo, userRepoErr := uow.GetRepositoryAs[UserRepository](u, uow.RepositoryName(repoargs.UserRepoName))
	if userRepoErr != nil {
		return nil, userRepoErr //nolint:wrapcheck
	}
	return &UserService{
		uow:      u,
		userRepo: userRepo,
		hasher:   hasher,
		opts:     opts.withDefaults(),
	}, nil
}

type RegisterUserArgs struct {
	Username string
	Email    string
	Password string
}

type LoginUserArgs struct {
	Username string
	Password string
}

// Register создает пользователя и его счет в одной транзакции. После успешного создания генерирует jwt token.
// Возвращает 3 значения: созданный юзер, токен и ошибку.
func (s *UserService) Register(ctx context.Context, args RegisterUserArgs) (*domain.User, string, error) {
	password, hashErr := s.hasher.HashPassword(args.Password)
	if hashErr != nil {
		return nil, "", fmt.Errorf("registering user: %s", hashErr.Error())
	}

	role := domain.RoleUser
	if slices.ContainsFunc(s.opts.AdminUsernames, func(name string) bool {
		return strings.EqualFold(name, args.Username)
	}) {
		role = domain.RoleAdmin
	}

	var user *domain.User
	txErr := s.uow.Do(ctx, func(c context.Context, tx uow.TX) error {
		userRepo, userRepoErr := uow.GetAs[UserRepository](tx, uow.RepositoryName(repoargs.UserRepoName))
		if userRepoErr != nil {
			return userRepoErr //nolint:wrapcheck
		}
		accountRepo, accountRepoErr := uow.GetAs[AccountRepository](tx, uow.RepositoryName(repoargs.AccountRepoName))
		if accountRepoErr != nil {
			return accountRepoErr //nolint:wrapcheck
		}

		var userErr error
		user, userErr = userRepo.CreateUser(c, repoargs.CreateUser{
			Username: args.Username,
			Email:    args.Email,
			Password: password,
			Role:     role,
		})
		if userErr != nil {
			return userErr //nolint:wrapcheck
		}
		if _, accErr := accountRepo.Create(c, user.ID, s.opts.Currency); accErr != nil {
			return accErr //nolint:wrapcheck
		}
		return nil
	})
	if txErr != nil {
		return nil, "", fmt.Errorf("registering user: %w", txErr)
	}

	token, tokenErr := tokens.GenerateUserJWT(user.ID, user.Role, s.opts.TokenExpire, s.opts.JWTSecret)
	if tokenErr != nil {
		return nil, "", fmt.Errorf("registering user: %w", tokenErr)
	}
	return user, token, nil
}

// Login проверяет пароль пользователя и выдает jwt token.
func (s *UserService) Login(ctx context.Context, args LoginUserArgs) (*domain.User, string, error) {
	user, err := s.userRepo.FindUserByUsername(ctx, args.Username)
	if err != nil {
		return nil, "", fmt.Errorf("login user: %w", err)
	}
	if !s.hasher.ComparePassword(args.Password, user.Password) {
		return nil, "", fmt.Errorf("login user: %w", domain.ErrPasswordMissMatch)
	}
	token, tokenErr := tokens.GenerateUserJWT(user.ID, user.Role, s.opts.TokenExpire, s.opts.JWTSecret)
	if tokenErr != nil {
		return nil, "", fmt.Errorf("login user: %w", tokenErr)
	}
	return user, token, nil
}
