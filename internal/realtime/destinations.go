package realtime

import "fmt"

// BroadcastTopic is the single shared destination visible to every subscriber.
const BroadcastTopic = "/topic/notifications"

// UserTopic builds a per-user private destination, e.g.
// /user/01ABC/topic/results.
func UserTopic(userID, name string) string {
	return fmt.Sprintf("/user/%s/topic/%s", userID, name)
}

// Per-user topic names.
const (
	TopicNotifications = "notifications"
	TopicResults       = "results"
	TopicAppointments  = "appointments"
)
