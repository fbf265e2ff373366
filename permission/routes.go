package permission

import "strings"

// Actions derived from HTTP verbs.
const (
	ActionRead   = "READ"
	ActionCreate = "CREATE"
	ActionUpdate = "UPDATE"
	ActionDelete = "DELETE"
)

var actionByMethod = map[string]string{
	"GET":    ActionRead,
	"POST":   ActionCreate,
	"PUT":    ActionUpdate,
	"DELETE": ActionDelete,
}

// resourceByPrefix is checked in order; longer prefixes first so that a
// nested mount cannot be shadowed by a shorter one.
var resourceByPrefix = []struct {
	prefix   string
	resource string
}{
	{"/v1/permissions", "PERMISSION"},
	{"/v1/businesses", "BUSINESS"},
	{"/v1/sessions", "SESSION"},
	{"/v1/users", "USER"},
	{"/v1/roles", "ROLE"},
	{"/v1/audit", "AUDIT"},
}

// Name composes the canonical permission token for a resource and action,
// e.g. Name("USER", ActionRead) == "USER_READ".
func Name(resource, action string) string {
	return strings.ToUpper(resource) + "_" + strings.ToUpper(action)
}

// Required derives the permission demanded by (method, path), or ok=false
// when the verb or path maps to no protected resource.
func Required(method, path string) (string, bool) {
	action, ok := actionByMethod[strings.ToUpper(method)]
	if !ok {
		return "", false
	}
	for _, entry := range resourceByPrefix {
		if strings.HasPrefix(path, entry.prefix) {
			return Name(entry.resource, action), true
		}
	}
	return "", false
}
