package realtime

import (
	"encoding/json"
	"log/slog"
	"time"
)

// Envelope is the structure every server-initiated event is wrapped in
// before it reaches a client.
type Envelope struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp string      `json:"timestamp"`
}

// Event names carried in the envelope.
const (
	EventNewResult                = "NEW_RESULT"
	EventNewAppointment           = "NEW_APPOINTMENT"
	EventAppointmentStatusChanged = "APPOINTMENT_STATUS_CHANGED"
)

// Publisher is the server-to-client publish API. All methods are
// fire-and-forget: failures are logged, never returned, so real-time
// delivery can never break the business operation that triggered it.
type Publisher struct {
	hub *Hub
}

func NewPublisher(hub *Hub) *Publisher {
	return &Publisher{hub: hub}
}

func (p *Publisher) publish(destination string, env Envelope) {
	env.Timestamp = time.Now().UTC().Format(time.RFC3339)
	payload, err := json.Marshal(Frame{
		Command:     CommandMessage,
		Destination: destination,
		Body:        mustMarshal(env),
	})
	if err != nil {
		slog.Warn("could not marshal realtime event", "destination", destination, "err", err)
		return
	}
	p.hub.Publish(destination, payload)
}

func mustMarshal(v interface{}) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

// NotifyUser delivers a generic notification event to the user's private
// notifications destination.
func (p *Publisher) NotifyUser(userID, title, message, eventType string) {
	p.publish(UserTopic(userID, TopicNotifications), Envelope{
		Event:   eventType,
		Data:    map[string]string{"title": title},
		Message: message,
	})
}

// Broadcast delivers an event to the shared destination every subscriber sees.
func (p *Publisher) Broadcast(title, message, eventType string) {
	p.publish(BroadcastTopic, Envelope{
		Event:   eventType,
		Data:    map[string]string{"title": title},
		Message: message,
	})
}

// NotifyResultReady tells a patient a new test result is available.
func (p *Publisher) NotifyResultReady(patientID string, result interface{}) {
	p.publish(UserTopic(patientID, TopicResults), Envelope{
		Event:   EventNewResult,
		Data:    result,
		Message: "New test result available",
	})
}

// NotifyNewAppointment tells a patient an appointment was scheduled.
func (p *Publisher) NotifyNewAppointment(patientID string, appointment interface{}) {
	p.publish(UserTopic(patientID, TopicAppointments), Envelope{
		Event:   EventNewAppointment,
		Data:    appointment,
		Message: "New appointment scheduled",
	})
}

// NotifyAppointmentStatusChanged tells a patient an appointment changed state.
func (p *Publisher) NotifyAppointmentStatusChanged(patientID, status, appointmentID string) {
	p.publish(UserTopic(patientID, TopicAppointments), Envelope{
		Event: EventAppointmentStatusChanged,
		Data: map[string]string{
			"appointmentId": appointmentID,
			"status":        status,
		},
		Message: "Appointment status updated",
	})
}
