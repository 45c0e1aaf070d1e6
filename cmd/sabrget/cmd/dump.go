package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/sabrgo/internal/sabr/ump"
	"github.com/jmylchreest/sabrgo/internal/sabr/wire"
)

// dumpFormat selects dumpCmd's output encoding.
var dumpFormat string

// dumpedPart is one decoded part, grounded on
// original_source/utils/read_sabr_response.py's per-part field dump — this
// is its Go-idiomatic, structured-output equivalent rather than a line-by-
// line port of its print statements.
type dumpedPart struct {
	Index   int    `json:"index" yaml:"index"`
	Type    string `json:"type" yaml:"type"`
	Size    int    `json:"size" yaml:"size"`
	Decoded any    `json:"decoded,omitempty" yaml:"decoded,omitempty"`
}

var dumpCmd = &cobra.Command{
	Use:   "dump <captured-response-file>",
	Short: "Decode a captured UMP response body and print its parts",
	Long: `dump reads a raw SABR response body saved from a captured request
(e.g. via mitmproxy) and prints every UMP part it contains: its type, size,
and, for part types this client understands, its decoded protobuf fields.

This mirrors read_sabr_response.py/mitmweb_umpdebug.py: a standalone way to
inspect a server response without re-running a live session.`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&dumpFormat, "format", "yaml", "output format: yaml or json")
	rootCmd.AddCommand(dumpCmd)
}

func runDump(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading captured response: %w", err)
	}

	parts, err := decodeDumpParts(data)
	if err != nil {
		return err
	}

	switch dumpFormat {
	case "json":
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(parts)
	case "yaml", "":
		out, err := yaml.Marshal(parts)
		if err != nil {
			return fmt.Errorf("marshaling parts: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	default:
		return fmt.Errorf("unknown --format %q (want yaml or json)", dumpFormat)
	}
}

// decodeDumpParts parses every UMP part in data (via ump.Parts, the
// convenience collector the codec sets aside for exactly this use) and
// decodes the ones this client has a wire.Message for. Parts of a type this
// client only passes through live (e.g. SELECTABLE_FORMATS,
// PLAYBACK_DEBUG_INFO) are still listed, just without a Decoded value,
// matching handlers.go's own informational-passthrough list.
func decodeDumpParts(data []byte) ([]dumpedPart, error) {
	rawParts, err := ump.Parts(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing captured response: %w", err)
	}

	out := make([]dumpedPart, len(rawParts))
	for i, part := range rawParts {
		dp := dumpedPart{Index: i, Type: part.Type.String(), Size: int(part.Size)}
		if decoded, ok := decodePartPayload(part); ok {
			dp.Decoded = decoded
		} else if part.Type == ump.PartMedia || part.Type == ump.PartMediaEnd {
			if len(part.Data) > 0 {
				dp.Decoded = map[string]any{"header_id": part.Data[0]}
			}
		}
		out[i] = dp
	}
	return out, nil
}

// decodePartPayload decodes the part types this client models in
// internal/sabr/wire (the same set handlers.go's dispatchPart acts on,
// minus the MEDIA/MEDIA_END framing handled separately above).
func decodePartPayload(part ump.Part) (any, bool) {
	switch part.Type {
	case ump.PartMediaHeader:
		var m wire.MediaHeader
		return &m, tryUnmarshal(&m, part.Data)
	case ump.PartFormatInitializationMeta:
		var m wire.FormatInitializationMetadata
		return &m, tryUnmarshal(&m, part.Data)
	case ump.PartLiveMetadata:
		var m wire.LiveMetadata
		return &m, tryUnmarshal(&m, part.Data)
	case ump.PartStreamProtectionStatus:
		var m wire.StreamProtectionStatus
		return &m, tryUnmarshal(&m, part.Data)
	case ump.PartSabrRedirect:
		var m wire.SabrRedirect
		return &m, tryUnmarshal(&m, part.Data)
	case ump.PartNextRequestPolicy:
		var m wire.NextRequestPolicy
		return &m, tryUnmarshal(&m, part.Data)
	case ump.PartSabrSeek:
		var m wire.SabrSeek
		return &m, tryUnmarshal(&m, part.Data)
	case ump.PartSabrError:
		var m wire.SabrError
		return &m, tryUnmarshal(&m, part.Data)
	default:
		return nil, false
	}
}

type unmarshaler interface {
	Unmarshal([]byte) error
}

func tryUnmarshal(m unmarshaler, data []byte) bool {
	return m.Unmarshal(data) == nil
}
