package formula

// Stage is a step of the install state machine:
// Loading → Fetching → Verifying → Installing → Reporting → Done.
// A failure in any stage is terminal.
type Stage int

const (
	// StageLoading reads and validates the manifest.
	StageLoading Stage = iota
	// StageFetching downloads the artifact for the host architecture.
	StageFetching
	// StageVerifying compares the artifact digest with the manifest.
	StageVerifying
	// StageInstalling places the binary into the bin directory.
	StageInstalling
	// StageReporting prints the caveats.
	StageReporting
	// StageDone marks a successful run.
	StageDone
)

// String returns the lowercase stage name used in logs and errors.
func (s Stage) String() string {
	switch s {
	case StageLoading:
		return "loading"
	case StageFetching:
		return "fetching"
	case StageVerifying:
		return "verifying"
	case StageInstalling:
		return "installing"
	case StageReporting:
		return "reporting"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Next returns the stage that follows s; StageDone is its own successor.
func (s Stage) Next() Stage {
	if s >= StageDone {
		return StageDone
	}

	return s + 1
}
