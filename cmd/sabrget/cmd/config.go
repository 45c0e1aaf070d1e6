package cmd

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/sabrgo/internal/config"
	"github.com/jmylchreest/sabrgo/pkg/bytesize"
	"github.com/jmylchreest/sabrgo/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
	Long:  `Commands for managing sabrget configuration.`,
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the default configuration",
	Long: `Dump the default configuration values in YAML format.

This shows all available configuration options with their default values.
You can redirect this output to a file to create a configuration template,
then fill in session.server_abr_streaming_url and a format selection:

  sabrget config dump > sabrget.yaml

Configuration can be set via:
  - Config file (sabrget.yaml, $HOME/.sabrget.yaml, /etc/sabrget/sabrget.yaml)
  - Environment variables (SABRGO_SESSION_HTTP_RETRIES, SABRGO_LOGGING_LEVEL, etc.)
  - Command-line flags (for some options)

Environment variables use the SABRGO_ prefix and underscores for nesting.
Example: session.http_retries -> SABRGO_SESSION_HTTP_RETRIES`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

// toMap converts a struct to a map, formatting durations and sizes for human readability.
func toMap(v any) map[string]any {
	result := make(map[string]any)
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Get mapstructure tag or use the field name
		key := fieldType.Tag.Get("mapstructure")
		if key == "" {
			key = fieldType.Name
		}

		// Handle different types
		switch v := field.Interface().(type) {
		case time.Duration:
			result[key] = duration.Format(v)
		case config.Duration:
			result[key] = v.String()
		case config.ByteSize:
			result[key] = v.String()
		case int64:
			if contains(key, "size", "bytes") {
				result[key] = bytesize.Format(bytesize.Size(v))
			} else {
				result[key] = v
			}
		default:
			switch field.Kind() {
			case reflect.Struct:
				result[key] = toMap(field.Interface())
			case reflect.Slice:
				if field.Len() == 0 {
					result[key] = []any{}
				} else {
					result[key] = field.Interface()
				}
			default:
				result[key] = field.Interface()
			}
		}
	}
	return result
}

func contains(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if len(s) >= len(sub) {
			for i := 0; i <= len(s)-len(sub); i++ {
				if s[i:i+len(sub)] == sub {
					return true
				}
			}
		}
	}
	return false
}

func runConfigDump(cmd *cobra.Command, args []string) error {
	cfg := config.Defaults()

	cfgMap := toMap(cfg)

	yamlData, err := yaml.Marshal(cfgMap)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	fmt.Println("# sabrget configuration file")
	fmt.Println("# ==========================")
	fmt.Println("#")
	fmt.Println("# session.server_abr_streaming_url and at least one of")
	fmt.Println("# session.audio_selection / session.video_selection are required")
	fmt.Println("# and have no default - fill them in before use.")
	fmt.Println("#")
	fmt.Println("# Duration format: 30s, 5m, 1h, 30d")
	fmt.Println("# Size format: 5MB, 1GB")
	fmt.Println("#")
	fmt.Println("# Environment variable overrides use the SABRGO_ prefix:")
	fmt.Println("#   SABRGO_SESSION_HTTP_RETRIES, SABRGO_SESSION_HOST_FALLBACK_THRESHOLD")
	fmt.Println("#   SABRGO_STORAGE_OUTPUT_DIR, SABRGO_STORAGE_PROGRESS_DIR")
	fmt.Println("#   SABRGO_LOGGING_LEVEL, SABRGO_LOGGING_FORMAT")
	fmt.Println("#")
	fmt.Println("")
	fmt.Print(string(yamlData))

	return nil
}
