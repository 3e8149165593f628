package auth

import "context"

func (m *Middleware) GetUser(ctx context.Context) User {
	if s := stateFrom(ctx); s != nil {
		return s.user
	}
	return User{}
}

func (m *Middleware) IsRole(ctx context.Context, role Role) bool {
	u := m.GetUser(ctx)
	if u.Username == "" {
		return false
	}
	return u.Role.Name == role.Name || (m.adminRole != "" && u.Role.Name == m.adminRole)
}

func (m *Middleware) IsAdmin(ctx context.Context) bool {
	u := m.GetUser(ctx)
	return u.Username != "" && m.adminRole != "" && u.Role.Name == m.adminRole
}

func (m *Middleware) IsUser(ctx context.Context, username string) bool {
	u := m.GetUser(ctx)
	if u.Username == "" {
		return false
	}
	return u.Username == username || (m.adminRole != "" && u.Role.Name == m.adminRole)
}

func (m *Middleware) IsAuthenticated(ctx context.Context) bool {
	return m.GetUser(ctx).Username != ""
}
