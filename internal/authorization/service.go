package authorization

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

const (
	ObjectInventory = "inventory"
	ObjectOrder     = "order"
	ObjectReorder   = "reorder"
	ObjectMember    = "member"
	ObjectAuditLog  = "audit_log"
)

const (
	ActionInventoryView   = "inventory.view"
	ActionInventoryCreate = "inventory.create"
	ActionInventoryUpdate = "inventory.update"
	ActionInventoryAdjust = "inventory.adjust"
	ActionInventoryDelete = "inventory.delete"

	ActionOrderView       = "order.view"
	ActionOrderCreate     = "order.create"
	ActionOrderTransition = "order.transition"

	ActionReorderView   = "reorder.view"
	ActionReorderCreate = "reorder.create"
	ActionReorderUpdate = "reorder.update"
	ActionReorderSweep  = "reorder.sweep"

	ActionMemberView   = "member.view"
	ActionMemberManage = "member.manage"

	ActionAuditLogView = "audit_log.view"
)

// Principal is the authenticated caller as established from the bearer token.
type Principal struct {
	UserID     snowflake.ID
	GlobalRole string
}

// Access is the outcome of resolving a principal against one tenant.
type Access struct {
	TenantID      snowflake.ID
	UserID        snowflake.ID
	Role          string
	ViaGlobalRole bool
}

type Service interface {
	Resolve(ctx context.Context, principal Principal, requestedTenantID string) (Access, error)
	Authorize(ctx context.Context, access Access, object string, action string) error
}
