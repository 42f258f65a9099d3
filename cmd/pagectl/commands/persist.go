package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/pagekit/pkg/persist"
)

func getCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get [key[=default] ...]",
		Short: "Read values; with no keys every stored value is returned",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePairs(args, false)
			if err != nil {
				return err
			}
			data, err := opts.client().Get(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

func setCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "set key=value [key=value ...]",
		Short: "Write values; a value of null deletes the key",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := parsePairs(args, true)
			if err != nil {
				return err
			}
			data, err := opts.client().Set(cmd.Context(), payload)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), data)
		},
	}
}

// parsePairs turns key=value arguments into a payload. Values that parse
// as JSON keep their JSON type; anything else is a string. A bare key maps
// to null unless a value is required.
func parsePairs(args []string, requireValue bool) (persist.Payload, error) {
	payload := make(persist.Payload, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if key == "" {
			return nil, fmt.Errorf("invalid argument %q: empty key", arg)
		}
		if !ok {
			if requireValue {
				return nil, fmt.Errorf("invalid argument %q: want key=value", arg)
			}
			payload[key] = nil
			continue
		}
		payload[key] = parseValue(raw)
	}
	return payload, nil
}

func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
