package rbac

// RolePermissions is the default policy. Roles are lower-case; see NormalizeRole.
var RolePermissions = map[string][]string{
	"student": {
		"score:view",
	},
	"teacher": {
		"score:*",
	},
	"admin": {
		"*", // everything
	},
}

const (
	PermScoreView      = "score:view"
	PermScoreViewAny   = "score:view-any"
	PermScoreViewClass = "score:view-class"
	PermScoreCalculate = "score:calculate"
)
