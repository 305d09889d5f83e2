package cont

import (
	"context"

	"citywords/entity"
)

type ctxKey string

const AdminDataKey ctxKey = "adminData"

func PutAdmin(c context.Context, admin *entity.AdminUser) context.Context {
	return context.WithValue(c, AdminDataKey, *admin)
}

func GetAdmin(c context.Context) *entity.AdminUser {
	admin, ok := c.Value(AdminDataKey).(entity.AdminUser)
	if !ok {
		return &entity.AdminUser{}
	}
	return &admin
}
