package events

import "time"

// AutomationAction is the command carried by ToggleAutomation.
type AutomationAction string

const (
	AutomationEnable  AutomationAction = "ENABLE"
	AutomationDisable AutomationAction = "DISABLE"
	AutomationQuery   AutomationAction = "QUERY"
)

// ToggleAutomation requests a state change (or a query) from the
// Automation State manager.
type ToggleAutomation struct {
	BaseEvent
	Action      AutomationAction
	Reason      string
	RequestedBy string
}

func (ToggleAutomation) Kind() Kind { return KindToggleAutomation }

// AutomationStateChanged is published whenever the automation manager's
// state is queried or actually changes.
type AutomationStateChanged struct {
	BaseEvent
	Enabled       bool
	PreviousState *bool
	Reason        string
	ChangedAt     time.Time
}

func (AutomationStateChanged) Kind() Kind { return KindAutomationStateChanged }
