package rls

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// WithTenant scopes the current PostgreSQL transaction to one tenant so row level
// security policies on tenant tables apply. Other dialects have no equivalent and
// are left untouched.
func WithTenant(tx *gorm.DB, tenantID snowflake.ID) error {
	if tx == nil || tx.Dialector == nil || tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec(
		"SELECT set_config('app.current_tenant_id', ?, true)",
		fmt.Sprintf("%d", int64(tenantID)),
	).Error
}
