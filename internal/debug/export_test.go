package debug

// ResetProcessReserve drops the process-wide reserve between tests.
func ResetProcessReserve() {
	processReserve.release()
}
