package auth

import "strings"

type StaffPermission string

const (
	PermOrders     StaffPermission = "orders"
	PermMeals      StaffPermission = "meals"
	PermCategories StaffPermission = "categories"
	PermPackages   StaffPermission = "packages"
	PermCustomers  StaffPermission = "customers"
	PermUsers      StaffPermission = "users"
	PermUploads    StaffPermission = "uploads"
)

var apiPermissionMap = map[string]StaffPermission{
	"/api/admin/orders":     PermOrders,
	"/api/admin/meals":      PermMeals,
	"/api/admin/categories": PermCategories,
	"/api/admin/packages":   PermPackages,
	"/api/admin/customers":  PermCustomers,
	"/api/admin/users":      PermUsers,
	"/api/admin/upload":     PermUploads,
}

// GetPermissionForAPI maps a request path to the staff permission guarding
// it, longest prefix winning. Nil means the route needs no permission.
func GetPermissionForAPI(path string) *StaffPermission {
	var bestPath string
	var bestPerm *StaffPermission
	for keyPath, perm := range apiPermissionMap {
		if !strings.HasPrefix(path, keyPath) {
			continue
		}
		if bestPerm == nil || len(keyPath) > len(bestPath) {
			bestPath = keyPath
			permCopy := perm
			bestPerm = &permCopy
		}
	}
	return bestPerm
}
