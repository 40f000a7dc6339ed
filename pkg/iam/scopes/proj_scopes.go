package scopes

// ============================================================================
// DOMAIN-SPECIFIC SCOPES - AI provider gateway
// ============================================================================

const (
	ScopeChannelsRead  = "channels:read"
	ScopeChannelsWrite = "channels:write"
	ScopeChannelsAdmin = "channels:*"

	ScopeProvidersRead  = "providers:read"
	ScopeProvidersWrite = "providers:write"
	ScopeProvidersAdmin = "providers:*"

	ScopeUsersRead  = "users:read"
	ScopeUsersWrite = "users:write"
	ScopeUsersAdmin = "users:*"

	ScopeRolesRead  = "roles:read"
	ScopeRolesWrite = "roles:write"
	ScopeRolesAdmin = "roles:*"

	ScopeAPIKeysRead  = "api_keys:read"
	ScopeAPIKeysWrite = "api_keys:write"

	ScopeInvitationsRead  = "invitations:read"
	ScopeInvitationsWrite = "invitations:write"

	ScopeCompletionsCreate = "completions:create"
)

// DomainScopeCategories organizes domain-specific scopes by the resource
// they govern, for rendering a permission picker in an admin console.
var DomainScopeCategories = map[string][]string{
	"channels": {
		ScopeChannelsRead,
		ScopeChannelsWrite,
		ScopeChannelsAdmin,
	},
	"providers": {
		ScopeProvidersRead,
		ScopeProvidersWrite,
		ScopeProvidersAdmin,
	},
	"users": {
		ScopeUsersRead,
		ScopeUsersWrite,
		ScopeUsersAdmin,
	},
	"roles": {
		ScopeRolesRead,
		ScopeRolesWrite,
		ScopeRolesAdmin,
	},
	"api_keys": {
		ScopeAPIKeysRead,
		ScopeAPIKeysWrite,
	},
	"invitations": {
		ScopeInvitationsRead,
		ScopeInvitationsWrite,
	},
	"completions": {
		ScopeCompletionsCreate,
	},
}

// DomainScopeDescriptions provides human-readable descriptions for domain
// scopes, shown next to each permission when an admin assigns a role.
var DomainScopeDescriptions = map[string]string{
	ScopeChannelsRead:      "View configured provider channels and their health",
	ScopeChannelsWrite:     "Create, update, and delete provider channels",
	ScopeChannelsAdmin:     "Full control over provider channels",
	ScopeProvidersRead:     "View provider account configuration",
	ScopeProvidersWrite:    "Configure provider accounts and credentials",
	ScopeProvidersAdmin:    "Full control over provider accounts",
	ScopeUsersRead:         "View users within the tenant",
	ScopeUsersWrite:        "Create, update, and deactivate users",
	ScopeUsersAdmin:        "Full control over users within the tenant",
	ScopeRolesRead:         "View roles and their permission sets",
	ScopeRolesWrite:        "Create and modify roles",
	ScopeRolesAdmin:        "Full control over roles within the tenant",
	ScopeAPIKeysRead:       "View API keys",
	ScopeAPIKeysWrite:      "Create, update, and revoke API keys",
	ScopeInvitationsRead:   "View pending invitations",
	ScopeInvitationsWrite:  "Create and revoke invitations",
	ScopeCompletionsCreate: "Call the chat-completions proxy",
}

// DomainScopeGroups defines common role bundles assembled from domain
// scopes, matching the hierarchy rbac.Role.Level already enforces.
var DomainScopeGroups = map[string][]string{
	"viewer": {
		ScopeChannelsRead,
		ScopeProvidersRead,
		ScopeUsersRead,
		ScopeRolesRead,
		ScopeAPIKeysRead,
		ScopeInvitationsRead,
		ScopeCompletionsCreate,
	},
	"developer": {
		ScopeChannelsRead,
		ScopeProvidersRead,
		ScopeAPIKeysRead,
		ScopeAPIKeysWrite,
		ScopeCompletionsCreate,
	},
	"admin": {
		ScopeChannelsAdmin,
		ScopeProvidersAdmin,
		ScopeUsersAdmin,
		ScopeRolesAdmin,
		ScopeAPIKeysWrite,
		ScopeInvitationsWrite,
		ScopeCompletionsCreate,
	},
}
