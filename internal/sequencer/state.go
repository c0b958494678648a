package sequencer

// State is a position in the lookup protocol
type State int

const (
	Idle State = iota
	PointerCaptured
	PreviousWindowRecorded
	AppInvoked
	SimpleSettled
	SpecialCaseTriggered
	SpecialSettled
	FocusRestored
	PointerRestored
	Done
	Failed
)

var stateNames = [...]string{
	Idle:                   "idle",
	PointerCaptured:        "pointer_captured",
	PreviousWindowRecorded: "previous_window_recorded",
	AppInvoked:             "app_invoked",
	SimpleSettled:          "simple_settled",
	SpecialCaseTriggered:   "special_case_triggered",
	SpecialSettled:         "special_settled",
	FocusRestored:          "focus_restored",
	PointerRestored:        "pointer_restored",
	Done:                   "done",
	Failed:                 "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transitions follow s
func (s State) Terminal() bool {
	return s == Done || s == Failed
}

// Step names one operation of the protocol
type Step string

const (
	StepCapturePointer Step = "capture_pointer"
	StepRecordPrevious Step = "record_previous"
	StepOpenLookup     Step = "open_lookup"
	StepSettle         Step = "settle"
	StepActivateApp    Step = "activate_app"
	StepSpecialHotkey  Step = "special_hotkey"
	StepSpecialWait    Step = "special_wait"
	StepRestoreFocus   Step = "restore_focus"
	StepRestorePointer Step = "restore_pointer"
)
