package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"gopkg.in/yaml.v3"
	sigsyaml "sigs.k8s.io/yaml"
)

type Mode string

const (
	ModeJSON  Mode = "json"
	ModeYAML  Mode = "yaml"
	ModeTable Mode = "table"
)

// ParseMode parses an output mode. def is used for the empty string.
func ParseMode(raw string, def Mode) (Mode, error) {
	switch raw {
	case "":
		return def, nil
	case string(ModeJSON):
		return ModeJSON, nil
	case string(ModeYAML):
		return ModeYAML, nil
	case string(ModeTable):
		return ModeTable, nil
	default:
		return "", fmt.Errorf("invalid output mode: %s", raw)
	}
}

func InitStyles() {
	if os.Getenv("NO_COLOR") != "" {
		pterm.DisableColor()
	}
}

// EmitJSON writes value as indented JSON with sorted map keys.
func EmitJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func EmitYAML(w io.Writer, value any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()
	return encoder.Encode(value)
}

// EmitText writes an already serialized JSON document in the requested
// mode. JSON is passed through unchanged.
func EmitText(w io.Writer, data []byte, mode Mode) error {
	if mode != ModeYAML {
		if !bytes.HasSuffix(data, []byte("\n")) {
			data = append(data, '\n')
		}
		_, err := w.Write(data)
		return err
	}
	converted, err := sigsyaml.JSONToYAML(data)
	if err != nil {
		return fmt.Errorf("failed to convert inventory to YAML: %w", err)
	}
	_, err = w.Write(converted)
	return err
}

// Emit writes value in the requested structured mode.
func Emit(w io.Writer, value any, mode Mode) error {
	if mode == ModeYAML {
		return EmitYAML(w, value)
	}
	return EmitJSON(w, value)
}
