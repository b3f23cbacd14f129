package repoargs

import "github.com/fsdevblog/groph-auction/internal/domain"

type CreateUser struct {
	Username string
	Email    string
	Password string
	Role     domain.RoleType
}
