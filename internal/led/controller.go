package led

// Controller drives board status LEDs. Implementations own the board
// specific LED device names and trigger handling.
type Controller interface {
	// Set switches one LED. ledType is a logical name from Available
	// ("system", "user", "act"). pattern is one of Patterns or a raw
	// kernel trigger name; an empty pattern leaves the trigger alone.
	Set(ledType string, enabled bool, pattern string) error

	// Available lists the logical LED names this board exposes.
	Available() []string

	// Patterns lists the symbolic patterns Set accepts.
	Patterns() []string
}
