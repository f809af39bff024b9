package domain

import "strings"

// Collection prefixes for record identifiers. Identifiers have the form
// "<collection>/<key>", e.g. "employees/john".
const (
	CollectionEmployees          = "employees"
	CollectionDepartments        = "departments"
	CollectionPolicies           = "hrpolicies"
	CollectionVacations          = "vacationrequests"
	CollectionPayStubs           = "paystubs"
	CollectionIssues             = "hrissues"
	CollectionSignatureDocuments = "signaturedocuments"
)

// QualifiedID returns key prefixed with its collection. Keys that already
// carry the prefix are returned unchanged.
func QualifiedID(collection, key string) string {
	prefix := collection + "/"
	if strings.HasPrefix(key, prefix) {
		return key
	}
	return prefix + key
}

// EmployeeID returns the qualified employee identifier for key.
func EmployeeID(key string) string {
	return QualifiedID(CollectionEmployees, key)
}
