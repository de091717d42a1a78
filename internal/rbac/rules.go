package rbac

const (
	RoleUser  = "user"
	RoleGuest = "guest"
	RoleAdmin = "admin"
)

// Guests may only take tests they were linked to and look at their own
// results and profile.
var RolePermissions = map[string][]string{
	RoleGuest: {
		"test:view_link",
		"attempt:*",
		"profile:view",
	},
	RoleUser: {
		"test:*",
		"question:*",
		"attempt:*",
		"stats:*",
		"profile:*",
	},
	RoleAdmin: {
		"*",
	},
}
