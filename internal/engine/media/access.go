package media

import "gifable/internal/platform/models"

// CanAccess decides whether a principal may see a media record. Public media
// is visible to everyone, private media only to its owner or an admin. Pure
// function, no I/O.
func CanAccess(m *models.Media, user *models.User) bool {
	if m.IsPublic {
		return true
	}
	if user == nil {
		return false
	}
	return user.IsAdmin || m.UserID == user.ID
}
