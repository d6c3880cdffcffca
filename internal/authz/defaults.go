package authz

// Permission catalog for the platform.
const (
	PermCompaniesRead   Permission = "companies:read"
	PermCompaniesWrite  Permission = "companies:write"
	PermUsersRead       Permission = "users:read"
	PermUsersWrite      Permission = "users:write"
	PermRolesRead       Permission = "roles:read"
	PermPermissionsRead Permission = "permissions:read"
	PermProductsRead    Permission = "products:read"
	PermProductsWrite   Permission = "products:write"
	PermWarehousesRead  Permission = "warehouses:read"
	PermWarehousesWrite Permission = "warehouses:write"
	PermSettingsRead    Permission = "settings:read"
	PermSettingsWrite   Permission = "settings:write"
	PermAuditRead       Permission = "audit:read"
)

// DefaultCatalog lists every valid permission token.
func DefaultCatalog() []Permission {
	return []Permission{
		PermCompaniesRead,
		PermCompaniesWrite,
		PermUsersRead,
		PermUsersWrite,
		PermRolesRead,
		PermPermissionsRead,
		PermProductsRead,
		PermProductsWrite,
		PermWarehousesRead,
		PermWarehousesWrite,
		PermSettingsRead,
		PermSettingsWrite,
		PermAuditRead,
	}
}

// DefaultConfig returns the standard rank order and role grants.
func DefaultConfig() Config {
	return Config{
		Ranks: map[Role]int{
			RoleSuperAdmin:   100,
			RoleCompanyAdmin: 80,
			RoleManager:      60,
			RoleEmployee:     40,
			RoleViewer:       20,
		},
		Catalog: DefaultCatalog(),
		Grants: map[Role][]Permission{
			RoleSuperAdmin: DefaultCatalog(),
			RoleCompanyAdmin: {
				PermCompaniesRead,
				PermUsersRead,
				PermUsersWrite,
				PermRolesRead,
				PermPermissionsRead,
				PermProductsRead,
				PermProductsWrite,
				PermWarehousesRead,
				PermWarehousesWrite,
				PermSettingsRead,
				PermSettingsWrite,
				PermAuditRead,
			},
			RoleManager: {
				PermCompaniesRead,
				PermUsersRead,
				PermRolesRead,
				PermProductsRead,
				PermProductsWrite,
				PermWarehousesRead,
				PermWarehousesWrite,
				PermAuditRead,
			},
			RoleEmployee: {
				PermCompaniesRead,
				PermProductsRead,
				PermProductsWrite,
				PermWarehousesRead,
			},
			RoleViewer: {
				PermCompaniesRead,
				PermProductsRead,
				PermWarehousesRead,
			},
		},
	}
}
