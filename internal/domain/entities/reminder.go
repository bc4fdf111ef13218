package entities

// ReminderKind distinguishes care reminders.
type ReminderKind string

const (
	ReminderWatering    ReminderKind = "watering"
	ReminderFertilizing ReminderKind = "fertilizing"
)

// Reminder is a recurring care notification for one plant.
type Reminder struct {
	PlantID   string       `json:"plantId"`
	PlantName string       `json:"plantName"`
	Kind      ReminderKind `json:"kind"`
	// Schedule is a five-field cron expression.
	Schedule string `json:"schedule"`
}
