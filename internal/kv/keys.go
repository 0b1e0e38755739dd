package kv

// 持久化键布局：各存储独占各自的键，互不争用
const (
	KeyProfileName   = "profileName"
	KeyProfilePhoto  = "profilePhoto"
	KeyNotifications = "notificationsEnabled"
	KeySaved         = "saved_spots"
	KeyOverrides     = "spot_overrides"
	KeyStories       = "stories"
)

// AllKeys：导出与重置覆盖的全部键
func AllKeys() []string {
	return []string{KeyProfileName, KeyProfilePhoto, KeyNotifications, KeySaved, KeyOverrides, KeyStories}
}
