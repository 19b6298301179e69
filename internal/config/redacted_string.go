package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
)

// RedactedString is a string that does not reveal its value when it is printed, logged or serialized
type RedactedString string

func (r RedactedString) String() string {
	return fmt.Sprintf("<redacted-%d-chars>", len(r))
}

func (r RedactedString) GoString() string {
	return r.String()
}

func (r RedactedString) LogValue() slog.Value {
	return slog.StringValue(r.String())
}

func (r RedactedString) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r RedactedString) MarshalBinary() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r RedactedString) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}
