// Package exitcodes contains the process exit codes a11yverify can finish with.
package exitcodes

// ExitCode is a process exit code.
type ExitCode uint8

// Codes 2..9 are left to the shell and cobra usage errors.
const (
	Generic          ExitCode = 1
	AssertionFailed  ExitCode = 10
	LaunchFailed     ExitCode = 11
	NavigationFailed ExitCode = 12
	ArtifactFailed   ExitCode = 13
	InvalidConfig    ExitCode = 14
)
