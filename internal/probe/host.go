package probe

// Host names one remote machine. Alias is the display key and, unless Target
// is set, also the SSH config alias used to dial it.
type Host struct {
	Alias  string
	Target string
}

// DialTarget returns what the SSH transport should dial.
func (h Host) DialTarget() string {
	if h.Target != "" {
		return h.Target
	}
	return h.Alias
}

// Local is the pseudo-host used for commands run on this machine.
var Local = Host{Alias: "local"}
