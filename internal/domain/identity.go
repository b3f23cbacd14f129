package domain

// Identity аутентифицированный пользователь запроса.
type Identity struct {
	UserID int64
	Role   RoleType
}

// CanAdministrate сообщает, доступны ли пользователю административные операции.
func (i Identity) CanAdministrate() bool {
	return i.Role == RoleAdmin
}
