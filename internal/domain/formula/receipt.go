package formula

import "time"

// Actor identifies who performed an install.
type Actor struct {
	// Hostname is the machine name where the install ran.
	Hostname string `json:"hostname"`
	// Username is the system user who ran the install.
	Username string `json:"username"`
}

// Clone returns a deep copy of the actor.
func (a *Actor) Clone() *Actor {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// Receipt records a completed install.
type Receipt struct {
	// Name is the formula name.
	Name string `json:"name"`
	// Version is the installed formula version.
	Version string `json:"version"`
	// Arch is the architecture whose variant was installed.
	Arch Architecture `json:"arch"`
	// Path is the installed binary.
	Path string `json:"path"`
	// SourceURL is the artifact the binary came from.
	SourceURL string `json:"source_url"`
	// SHA256 is the verified artifact digest.
	SHA256 string `json:"sha256"`
	// InstalledAt is when the binary was put in place.
	InstalledAt time.Time `json:"installed_at"`
	// InstalledBy is the user who ran the install, if known.
	InstalledBy *Actor `json:"installed_by,omitempty"`
}

// Clone returns a copy of the receipt to avoid leaking internal references.
func (r *Receipt) Clone() *Receipt {
	cloned := *r
	cloned.InstalledBy = r.InstalledBy.Clone()

	return &cloned
}
