package rbac

// Default policy for the portal's two roles.
var RolePermissions = map[string][]string{
	"student": {
		"exam:view",
		"attempt:create",
		"attempt:answer",
		"attempt:submit",
		"attempt:view-own",
		"history:view-own",
		"profile:view",
		"profile:update",
	},
	"admin": {
		"*", // everything
	},
}
