package errors

// Process exit codes returned by the command line.
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitConfiguration    = 2
	ExitSourceValidation = 3
	ExitStorage          = 4
)

// ExitCode maps an error to the process exit status. A nil error maps to
// ExitOK and unknown failures map to ExitFailure.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	switch CategoryOf(err) {
	case CategoryConfiguration:
		return ExitConfiguration
	case CategorySourceValidation, CategoryFileIO:
		return ExitSourceValidation
	case CategoryStorage:
		return ExitStorage
	default:
		return ExitFailure
	}
}
