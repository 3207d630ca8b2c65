package reactor

import "strings"

// Separator joins a service name and a local action name.
const Separator = "."

// Qualify returns name unchanged when it already contains the separator, else service + "." + name.
func Qualify(service, name string) string {
	if strings.Contains(name, Separator) {
		return name
	}
	return service + Separator + name
}

// ValidateLocalName rejects action keys that are empty or already namespaced.
func ValidateLocalName(service, name string) error {
	if name == "" || strings.Contains(name, Separator) {
		return &NamingError{Service: service, Name: name}
	}
	return nil
}

// SplitQualified returns the service and local part of a qualified name.
func SplitQualified(qualified string) (service, local string) {
	i := strings.Index(qualified, Separator)
	if i < 0 {
		return "", qualified
	}
	return qualified[:i], qualified[i+1:]
}
