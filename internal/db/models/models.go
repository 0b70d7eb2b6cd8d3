package models

// All returns every model in migration order.
func All() []any {
	return []any{
		&Setting{},
		&Permission{},
		&Role{},
		&RolePermission{},
		&User{},
		&SecurityEvent{},
		&Page{},
	}
}
