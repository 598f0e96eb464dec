package security

import "strings"

// SuperAdminProfile bypasses every permission check.
const SuperAdminProfile int64 = 1

// protectedObjects are the business objects that manage the security model
// itself. No profile other than the super-admin may ever be granted access to
// them, regardless of what the store contains.
var protectedObjects = map[string]struct{}{
	"userbo":    {},
	"personbo":  {},
	"profilebo": {},
	"methodbo":  {},
	"objectbo":  {},
}

// IsProtectedObject reports whether objectName is management-reserved.
// The comparison is case-insensitive; grants are stored case-sensitively but
// protection must not be dodged by casing.
func IsProtectedObject(objectName string) bool {
	if objectName == "" {
		return false
	}
	_, ok := protectedObjects[strings.ToLower(objectName)]
	return ok
}
