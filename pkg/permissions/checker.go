// Package permissions checks granted permissions against a required one
// with support for wildcards.
//
// Permission Format:
//   - "*" - Full access (all permissions)
//   - "resource.*" - All actions on a resource (e.g., "payroll.*")
//   - "resource.action" - Specific action (e.g., "payroll.read")
//   - "resource.subresource.action" - Nested permission (e.g., "payroll.runs.approve")
package permissions

import (
	"strings"
)

// Payroll permissions
const (
	PayrollRunsCreate  = "payroll.runs.create"
	PayrollRunsRead    = "payroll.runs.read"
	PayrollRunsApprove = "payroll.runs.approve"
)

// HasPermission checks if the user's permissions include the required permission.
// Supports wildcard matching:
//   - "*" matches everything
//   - "payroll.*" matches "payroll.runs.read", "payroll.runs.approve", etc.
//   - Exact match for specific permissions
func HasPermission(userPerms []string, required string) bool {
	if required == "" {
		return true
	}

	for _, p := range userPerms {
		if p == "*" || p == required {
			return true
		}
		if strings.HasSuffix(p, ".*") {
			prefix := strings.TrimSuffix(p, ".*")
			if strings.HasPrefix(required, prefix+".") {
				return true
			}
		}
	}
	return false
}

// Parse splits a comma-separated permission header value, dropping blanks.
func Parse(header string) []string {
	var perms []string
	for _, p := range strings.Split(header, ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms = append(perms, p)
		}
	}
	return perms
}
