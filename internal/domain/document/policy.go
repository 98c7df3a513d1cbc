package document

import (
	"fmt"

	"doctrack/internal/domain/user"
)

type Action string

const (
	ActionCreate      Action = "create"
	ActionEdit        Action = "edit"
	ActionSetStatus   Action = "set_status"
	ActionSetWins     Action = "set_wins"
	ActionEditNotes   Action = "edit_notes"
	ActionForward     Action = "forward"
	ActionReceive     Action = "receive"
	ActionReturn      Action = "return"
	ActionDelete      Action = "delete"
	ActionRestore     Action = "restore"
	ActionPurge       Action = "purge"
	ActionBulkReceive Action = "bulk_receive"
	ActionBulkDelete  Action = "bulk_delete"
	ActionBulkStatus  Action = "bulk_status"
	ActionImport      Action = "import"
	ActionExport      Action = "export"
)

var (
	anyone    = map[user.Role]bool{user.RoleUser: true, user.RoleAdmin: true}
	adminOnly = map[user.Role]bool{user.RoleAdmin: true}
	userOnly  = map[user.Role]bool{user.RoleUser: true}
)

// permissions is the single role matrix every mutating path consults,
// single-item and bulk alike.
var permissions = map[Action]map[user.Role]bool{
	ActionCreate:      anyone,
	ActionEdit:        anyone,
	ActionSetStatus:   anyone,
	ActionSetWins:     anyone,
	ActionEditNotes:   anyone,
	ActionForward:     userOnly,
	ActionReceive:     adminOnly,
	ActionReturn:      adminOnly,
	ActionDelete:      adminOnly,
	ActionRestore:     adminOnly,
	ActionPurge:       adminOnly,
	ActionBulkReceive: adminOnly,
	ActionBulkDelete:  adminOnly,
	ActionBulkStatus:  adminOnly,
	ActionImport:      adminOnly,
	ActionExport:      adminOnly,
}

// CanPerform reports whether role may run action. doc is the target record
// when there is one; forwarding a document that was already acknowledged is
// refused here as well so bulk paths see the same answer as single ones.
func CanPerform(role user.Role, action Action, doc *Document) bool {
	if !permissions[action][role] {
		return false
	}
	if action == ActionForward && doc != nil && doc.AdminStatus == AdminReceived {
		return false
	}
	return true
}

// Authorize is CanPerform with a reason attached.
func Authorize(role user.Role, action Action, doc *Document) error {
	if !permissions[action][role] {
		return fmt.Errorf("%w: %s is not allowed for role %q", ErrForbidden, action, role)
	}
	if !CanPerform(role, action, doc) {
		return ErrAlreadyReceived
	}
	return nil
}
