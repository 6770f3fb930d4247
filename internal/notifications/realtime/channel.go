package realtime

import "strings"

// Channel names are pure functions of their inputs so independent producers
// and consumers agree without coordination. Subjects follow the transport's
// dot-separated token convention:
//
//	notifications.<org>.user.<userID>
//	notifications.<org>.order.<orderCode>

const subjectPrefix = "notifications"

// UserChannel returns the personal subscription channel for a user within
// an organization.
func UserChannel(organizationID, userID string) string {
	return subjectPrefix + "." + token(organizationID) + ".user." + token(userID)
}

// OrderChannel returns the broadcast channel for clients subscribed by
// order code rather than by user.
func OrderChannel(organizationID, orderCode string) string {
	return subjectPrefix + "." + token(organizationID) + ".order." + token(orderCode)
}

// token makes an identifier safe for use as a single subject token.
// Identifiers are UUIDs and order codes in practice; the replacement only
// guards against separator and wildcard characters leaking into the subject
// hierarchy.
func token(s string) string {
	return strings.NewReplacer(
		".", "-",
		" ", "-",
		"*", "-",
		">", "-",
	).Replace(s)
}
