package daemon

// AutostartCheck is what the login trigger needs to know before starting
// the daemon.
type AutostartCheck struct {
	ServiceEnabled    bool
	Configured        bool
	DetectorAvailable bool
}

// ShouldAutostart requires all three conditions and otherwise names the
// first one that is missing.
func ShouldAutostart(c AutostartCheck) (bool, string) {
	switch {
	case !c.ServiceEnabled:
		return false, "service is disabled (run `livestatus enable`)"
	case !c.Configured:
		return false, "server URL or auth key not configured"
	case !c.DetectorAvailable:
		return false, "foreground detection is unavailable in this session"
	}
	return true, ""
}
