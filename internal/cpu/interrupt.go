package cpu

// setInterruptTrigger changes, per source bit, whether CrInterruptTrigger
// treats that interrupt line as level- or edge-triggered. (O1): a
// level-to-edge transition clears any latched state for that bit so a
// stale level reading doesn't reappear as a phantom edge; an edge-to-level
// transition leaves the live wire (interruptLevel) authoritative starting
// from the next poll, without manufacturing an edge of its own.
func (t *Thread) setInterruptTrigger(newLevelTriggered uint32) {
	leavingLevel := t.isLevelTriggered &^ newLevelTriggered
	t.interruptLatched &^= leavingLevel
	t.isLevelTriggered = newLevelTriggered
}
