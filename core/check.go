package core

// Check is the one-call entry point of the connectivity probe: it sends
// count echo requests to address, an IPv4 literal, spaced intervalMs
// milliseconds apart, and reports whether a strict majority of them were
// answered in time. Counts below MinCount are raised to MinCount.
//
// Any failure along the way is logged and degrades to a verdict computed
// from whatever replies had been counted so far, never a panic.
func Check(address string, count int, intervalMs int) bool {
	settings := DefaultSettings()
	settings.Count = count
	settings.Interval = intervalMs

	session, err := NewSession(address, settings)
	if err != nil {
		NewLogger(settings.LoggingLevel).Errorf("Could not create probe session: %s", err)
		return false
	}

	if err := session.Run(); err != nil {
		session.logger.Errorf("Probe session aborted: %s", err)
	}

	return session.Verdict()
}
