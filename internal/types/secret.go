package types

// SecretString holds a sensitive value and redacts it from logs and
// formatted output. Call Reveal only at the point of use.
type SecretString string

// String implements fmt.Stringer, always returning a redaction marker.
func (SecretString) String() string { return "[REDACTED]" }

// GoString prevents %#v from leaking the value.
func (SecretString) GoString() string { return "[REDACTED]" }

// MarshalJSON redacts the value in JSON output.
func (SecretString) MarshalJSON() ([]byte, error) { return []byte(`"[REDACTED]"`), nil }

// Reveal returns the underlying secret value.
func (s SecretString) Reveal() string { return string(s) }
