package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/camnode/camnode/internal/logging"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// envPrefix namespaces the environment variables read by LoadConfig.
const envPrefix = "CAMNODE_"

// optionField is one assignable field of the options struct together
// with where its value may come from.
type optionField struct {
	value    reflect.Value
	tomlPath string // dot path into the TOML tree, "" when absent
	envKey   string // suffix after envPrefix, "" when absent
	cliSet   bool   // an explicit CLI flag pins the current value
}

// LoadConfig fills opts from a TOML file and CAMNODE_-prefixed
// environment variables. Precedence is CLI > env > file: fields whose
// flag was passed on the command line are left alone, and environment
// values overwrite file values.
func LoadConfig(opts any, cmd *cobra.Command) error {
	fields, configPath := collectFields(opts, cmd)

	if configPath != "" {
		if err := applyFile(fields, configPath); err != nil {
			return err
		}
	}
	applyEnv(fields)
	return nil
}

// collectFields flattens the options struct into assignable fields with
// their toml paths and env keys, marking those pinned by explicit CLI
// flags. The field named Config carries the config file path.
func collectFields(opts any, cmd *cobra.Command) ([]optionField, string) {
	cliSet := make(map[string]bool)
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed {
				cliSet[f.Name] = true
			}
		})
	}

	v := reflect.ValueOf(opts).Elem()
	t := v.Type()

	fields := make([]optionField, 0, v.NumField())
	var configPath string
	for i := 0; i < v.NumField(); i++ {
		sf := t.Field(i)
		if sf.Name == "Config" {
			configPath = v.Field(i).String()
		}
		fields = append(fields, optionField{
			value:    v.Field(i),
			tomlPath: sf.Tag.Get("toml"),
			envKey:   sf.Tag.Get("env"),
			cliSet:   cliSet[flagName(sf.Name)],
		})
	}
	return fields, configPath
}

// applyFile overlays values from the TOML file. A missing file is not
// an error, a file that fails to parse is.
func applyFile(fields []optionField, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	var tree map[string]any
	if err := toml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("failed to parse TOML config: %w", err)
	}

	for _, f := range fields {
		if f.cliSet || f.tomlPath == "" {
			continue
		}
		if value := lookupPath(tree, f.tomlPath); value != nil {
			assign(f.value, value)
		}
	}
	return nil
}

// applyEnv overlays environment variables onto fields not pinned by
// the CLI.
func applyEnv(fields []optionField) {
	for _, f := range fields {
		if f.cliSet || f.envKey == "" {
			continue
		}
		if raw := os.Getenv(envPrefix + f.envKey); raw != "" {
			assignString(f.value, raw)
		}
	}
}

// flagName derives the CLI flag for a struct field the way humacli
// names its generated flags: LoggingLevel -> logging-level.
func flagName(field string) string {
	var b strings.Builder
	for i, r := range field {
		if i > 0 && unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// lookupPath walks a parsed TOML tree by dot-separated path. Missing
// or non-table intermediate keys yield nil.
func lookupPath(tree map[string]any, path string) any {
	keys := strings.Split(path, ".")
	for _, key := range keys[:len(keys)-1] {
		next, ok := tree[key].(map[string]any)
		if !ok {
			return nil
		}
		tree = next
	}
	return tree[keys[len(keys)-1]]
}

// assign copies a decoded TOML value into a field when the types line
// up. Mismatches are skipped, not failed: the file may carry tables
// this options struct does not know about.
func assign(field reflect.Value, value any) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		if s, ok := value.(string); ok {
			field.SetString(s)
		}
	case reflect.Bool:
		if b, ok := value.(bool); ok {
			field.SetBool(b)
		}
	case reflect.Int:
		switch n := value.(type) {
		case int64:
			field.SetInt(n)
		case int:
			field.SetInt(int64(n))
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		if strs := toStringSlice(value); strs != nil {
			field.Set(reflect.ValueOf(strs))
		}
	}
}

// toStringSlice converts a decoded TOML array to []string, nil when
// any element is not a string.
func toStringSlice(value any) []string {
	arr, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil
		}
		out[i] = s
	}
	return out
}

// assignString parses an environment string into a field. Slices split
// on commas with surrounding space trimmed.
func assignString(field reflect.Value, raw string) {
	if !field.CanSet() {
		return
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(raw)
	case reflect.Bool:
		if b, err := strconv.ParseBool(raw); err == nil {
			field.SetBool(b)
		}
	case reflect.Int:
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			field.SetInt(n)
		}
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return
		}
		parts := strings.Split(raw, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		field.Set(reflect.ValueOf(parts))
	}
}

// LoadLoggingConfig reads just the [logging] table from the config
// file. Any problem (no path, missing file, bad TOML) yields defaults:
// logging must come up even when configuration is broken.
func LoadLoggingConfig(configPath string) logging.Config {
	cfg := logging.Config{
		Level:   "info",
		Format:  "text",
		Modules: make(map[string]string),
	}

	if configPath == "" {
		return cfg
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg
	}

	var file struct {
		Logging map[string]string `toml:"logging"`
	}
	if err := toml.Unmarshal(data, &file); err != nil {
		return cfg
	}

	// level and format are reserved keys, everything else names a
	// module whose level it sets.
	for key, value := range file.Logging {
		switch key {
		case "level":
			cfg.Level = value
		case "format":
			cfg.Format = value
		default:
			cfg.Modules[key] = value
		}
	}
	return cfg
}
