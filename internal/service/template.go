package service

import "strings"

// RenderTemplate substitutes the named placeholders {name}, {plan} and
// {status} into a notification template. Unknown placeholders pass
// through untouched.
func RenderTemplate(tmpl, name, plan, status string) string {
	return strings.NewReplacer(
		"{name}", name,
		"{plan}", plan,
		"{status}", status,
	).Replace(tmpl)
}

// NameFromContactKey derives a display name from the local part of an
// email-style contact key ("ana@example.com" -> "ana")
func NameFromContactKey(contactKey string) string {
	if at := strings.Index(contactKey, "@"); at > 0 {
		return contactKey[:at]
	}
	return contactKey
}
