// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/askr/internal/config"
)

const configUsage = `askr config [show | path | get KEY | set KEY VALUE | keys]`

// HandleConfig handles "askr config".
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(args.JSON)
	case "path":
		return configPath(args.JSON)
	case "get":
		return configGet(args.ConfigKey, args.JSON)
	case "set":
		return configSet(args.ConfigKey, args.ConfigVal, args.JSON)
	case "keys":
		return configKeys(args.JSON)
	default:
		return ErrUnknownSubcommand("config", args.Subcommand, configUsage)
	}
}

// configShow prints the effective configuration, env overrides included.
func configShow(jsonMode bool) error {
	cfg, err := config.Load()
	if err != nil {
		return &ConfigError{Err: err}
	}
	if jsonMode {
		return NewJSONResponse("config show", cfg).Print()
	}
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	_, err = fmt.Fprint(stdout, colorize(buf.String(), "toml"))
	return err
}

func configPath(jsonMode bool) error {
	path, err := config.ActivePath()
	if err != nil {
		return &ConfigError{Err: err}
	}
	_, statErr := os.Stat(path)
	if jsonMode {
		return NewJSONResponse("config path", ConfigPathData{Path: path, Exists: statErr == nil}).Print()
	}
	fmt.Fprintln(stdout, path)
	return nil
}

func configGet(key string, jsonMode bool) error {
	if key == "" {
		return ErrMissingArgument("key", "askr config get reveal.delay_ms")
	}
	cfg, err := config.Load()
	if err != nil {
		return &ConfigError{Err: err}
	}
	val, err := cfg.Get(key)
	if err != nil {
		return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "askr config keys"}
	}
	if jsonMode {
		return NewJSONResponse("config get", ConfigValueData{Key: key, Value: val}).Print()
	}
	fmt.Fprintln(stdout, val)
	return nil
}

// configSet changes one key in the config file. Environment overrides are
// not written back.
func configSet(key, value string, jsonMode bool) error {
	if key == "" {
		return ErrMissingArgument("key", "askr config set reveal.delay_ms 50")
	}
	if strings.TrimSpace(value) == "" {
		return ErrMissingArgument("value", "askr config set "+key+" VALUE")
	}

	path, err := config.ActivePath()
	if err != nil {
		return &ConfigError{Err: err}
	}
	cfg, err := loadFileOnly(path)
	if err != nil {
		return &ConfigError{Err: err}
	}

	if err := cfg.Set(key, value); err != nil {
		return &ValidationError{Field: "key", Value: key, Reason: err.Error(), Example: "askr config keys"}
	}
	if err := cfg.Validate(); err != nil {
		return &ConfigError{Err: err}
	}

	if strings.HasSuffix(path, ".json") {
		err = config.SaveJSON(cfg, path)
	} else {
		err = config.SaveTOML(cfg, path)
	}
	if err != nil {
		return &ConfigError{Err: err}
	}

	val, _ := cfg.Get(key)
	if jsonMode {
		return NewJSONResponse("config set", ConfigValueData{Key: key, Value: val}).Print()
	}
	fmt.Fprintf(stdout, "%s %s = %v\n", SuccessStyle.Render("[OK]"), key, val)
	return nil
}

// loadFileOnly reads the file at path onto the defaults without applying
// environment overrides. A missing file yields the defaults.
func loadFileOnly(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if strings.HasSuffix(path, ".json") {
		return cfg, config.LoadJSON(cfg, path)
	}
	return cfg, config.LoadTOML(cfg, path)
}

func configKeys(jsonMode bool) error {
	keys := config.GetAllKeys()
	if jsonMode {
		return NewJSONResponse("config keys", keys).Print()
	}
	for _, k := range keys {
		fmt.Fprintln(stdout, k)
	}
	return nil
}
