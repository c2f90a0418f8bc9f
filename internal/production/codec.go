// Package production provides production integrations for smartstate:
// snapshot codecs, a class registry, file persistence, change publishing
// and schema visualization.
package production

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/comalice/smartstate"
)

// Format names a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// ErrUnknownFormat is returned for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown snapshot format")

// ParseFormat accepts a format name or file extension, with or without the
// leading dot.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// FormatFromPath infers the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(filepath.Ext(path))
	if err != nil {
		return FormatJSON
	}
	return f
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// Envelope is a snapshot tagged with the class that produced it.
type Envelope struct {
	Class   string         `json:"class" yaml:"class" toml:"class"`
	Version string         `json:"version,omitempty" yaml:"version,omitempty" toml:"version,omitempty"`
	SavedAt time.Time      `json:"saved_at" yaml:"saved_at" toml:"saved_at"`
	Config  any            `json:"config,omitempty" yaml:"config,omitempty" toml:"config,omitempty"`
	State   map[string]any `json:"state" yaml:"state" toml:"state"`
}

// NewEnvelope captures the committed state of s.
func NewEnvelope(s *smartstate.State) Envelope {
	snap := s.ToJSON()
	class := s.Class()
	return Envelope{
		Class:   class.Name(),
		Version: class.Schema().Version,
		SavedAt: time.Now().UTC().Truncate(time.Second),
		Config:  snap.Config,
		State:   snap.State,
	}
}

// Snapshot strips the class tag.
func (e Envelope) Snapshot() smartstate.Snapshot {
	return smartstate.Snapshot{Config: e.Config, State: e.State}
}

// Encode serializes env in format f.
func Encode(env Envelope, f Format) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch f {
	case FormatJSON:
		data, err = json.MarshalIndent(env, "", "  ")
	case FormatYAML:
		data, err = yaml.Marshal(env)
	case FormatTOML:
		data, err = toml.Marshal(env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return nil, fmt.Errorf("%s marshal: %w", f, err)
	}
	return data, nil
}

// Decode parses data in format f. Numbers in State and Config come back as
// float64 whatever the format, matching what JSON produces.
func Decode(data []byte, f Format) (Envelope, error) {
	var env Envelope
	var err error
	switch f {
	case FormatJSON:
		err = json.Unmarshal(data, &env)
	case FormatYAML:
		err = yaml.Unmarshal(data, &env)
	case FormatTOML:
		err = toml.Unmarshal(data, &env)
	default:
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	if err != nil {
		return Envelope{}, fmt.Errorf("%s unmarshal: %w", f, err)
	}
	for k, v := range env.State {
		env.State[k] = normalizeValue(v)
	}
	env.Config = normalizeValue(env.Config)
	return env, nil
}

// normalizeValue converts integers to float64 and YAML's map[any]any to
// map[string]any, recursively.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = normalizeValue(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = normalizeValue(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[fmt.Sprint(k)] = normalizeValue(e)
		}
		return out
	}
	return v
}
