package mqtt

import "fmt"

// TopicRoot is the first level of every topic published by the core.
const TopicRoot = "parkinglot"

// Topics builds topics for a single lot.
//
//	topics := mqtt.NewTopics("lot-001")
//	topics.SlotState("A1") // "parkinglot/lot-001/slot/A1/state"
type Topics struct {
	lot string
}

// NewTopics returns topic builders scoped to lotID.
func NewTopics(lotID string) Topics {
	return Topics{lot: lotID}
}

func (t Topics) base() string {
	return fmt.Sprintf("%s/%s", TopicRoot, t.lot)
}

// SlotState returns the retained state topic for one slot.
//
// Example: parkinglot/lot-001/slot/A1/state
func (t Topics) SlotState(slotNumber string) string {
	return fmt.Sprintf("%s/slot/%s/state", t.base(), slotNumber)
}

// Event returns the topic for reservation lifecycle events.
//
// Example: parkinglot/lot-001/event/reservation.checked_in
func (t Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", t.base(), eventType)
}

// SystemStatus returns the online/offline status topic.
//
// Example: parkinglot/lot-001/system/status
func (t Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", t.base())
}

// AllSlotStates returns a wildcard matching every slot state topic.
func (t Topics) AllSlotStates() string {
	return fmt.Sprintf("%s/slot/+/state", t.base())
}

// AllEvents returns a wildcard matching every event topic.
func (t Topics) AllEvents() string {
	return fmt.Sprintf("%s/event/#", t.base())
}
