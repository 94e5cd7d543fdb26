package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"
)

// envVarPrefix is the prefix for all yulsp environment variables.
const envVarPrefix = "YULSP_"

// envFieldType represents the type of a configuration field.
type envFieldType int

const (
	envTypeString envFieldType = iota
	envTypeBool
	envTypeInt
	envTypeDuration
)

// envMapping defines environment variable to config field mappings.
type envMapping struct {
	field string
	typ   envFieldType
}

// envMappings maps environment variable names (without prefix) to config fields.
var envMappings = map[string]envMapping{
	"SERVER_TRANSPORT":         {field: "server.transport", typ: envTypeString},
	"SERVER_ADDRESS":           {field: "server.address", typ: envTypeString},
	"SERVER_VERBOSITY":         {field: "server.verbosity", typ: envTypeInt},
	"SERVER_LOG_FILE":          {field: "server.log_file", typ: envTypeString},
	"SERVER_DEBUG":             {field: "server.debug", typ: envTypeBool},
	"LOOKUP_ENABLED":           {field: "lookup.enabled", typ: envTypeBool},
	"LOOKUP_ENDPOINT":          {field: "lookup.endpoint", typ: envTypeString},
	"LOOKUP_API_KEY":           {field: "lookup.api_key", typ: envTypeString},
	"LOOKUP_FUNCTION_QUERY_ID": {field: "lookup.function_query_id", typ: envTypeInt},
	"LOOKUP_CONTRACT_QUERY_ID": {field: "lookup.contract_query_id", typ: envTypeInt},
	"LOOKUP_FUNCTION_PARAM":    {field: "lookup.function_param", typ: envTypeString},
	"LOOKUP_CONTRACT_PARAM":    {field: "lookup.contract_param", typ: envTypeString},
	"LOOKUP_TIMEOUT":           {field: "lookup.timeout", typ: envTypeDuration},
	"LOOKUP_POLL_INTERVAL":     {field: "lookup.poll_interval", typ: envTypeDuration},
	"CACHE_ENABLED":            {field: "cache.enabled", typ: envTypeBool},
	"CACHE_PATH":               {field: "cache.path", typ: envTypeString},
	"CACHE_TTL":                {field: "cache.ttl", typ: envTypeDuration},
}

// ApplyEnv applies environment variable overrides to the configuration.
// Environment variables are prefixed with YULSP_ (e.g., YULSP_LOOKUP_TIMEOUT).
func ApplyEnv(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	suffixes := make([]string, 0, len(envMappings))
	for s := range envMappings {
		suffixes = append(suffixes, s)
	}
	sort.Strings(suffixes)

	for _, envSuffix := range suffixes {
		envVar := envVarPrefix + envSuffix
		value, ok := os.LookupEnv(envVar)
		if !ok || value == "" {
			continue
		}
		if err := applyEnvValue(cfg, envMappings[envSuffix], value, envVar); err != nil {
			return err
		}
	}

	return nil
}

// applyEnvValue applies a single environment variable value to the config.
func applyEnvValue(cfg *Config, mapping envMapping, value, envVar string) error {
	switch mapping.typ {
	case envTypeString:
		return setStringField(cfg, mapping.field, value)
	case envTypeBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for %s: %q (expected true/false/1/0)", envVar, value)
		}
		return setBoolField(cfg, mapping.field, b)
	case envTypeInt:
		i, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer for %s: %q", envVar, value)
		}
		return setIntField(cfg, mapping.field, i)
	case envTypeDuration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %q (expected e.g. 10s, 1h)", envVar, value)
		}
		return setDurationField(cfg, mapping.field, d)
	default:
		return fmt.Errorf("unknown field type for %s", envVar)
	}
}

// setStringField sets a string field on the config by field path.
func setStringField(cfg *Config, field, value string) error {
	switch field {
	case "server.transport":
		cfg.Server.Transport = value
	case "server.address":
		cfg.Server.Address = value
	case "server.log_file":
		cfg.Server.LogFile = value
	case "lookup.endpoint":
		cfg.Lookup.Endpoint = value
	case "lookup.api_key":
		cfg.Lookup.APIKey = value
	case "lookup.function_param":
		cfg.Lookup.FunctionParam = value
	case "lookup.contract_param":
		cfg.Lookup.ContractParam = value
	case "cache.path":
		cfg.Cache.Path = value
	default:
		return fmt.Errorf("unknown string field: %s", field)
	}
	return nil
}

// setBoolField sets a boolean field on the config by field path.
func setBoolField(cfg *Config, field string, value bool) error {
	switch field {
	case "server.debug":
		cfg.Server.Debug = value
	case "lookup.enabled":
		cfg.Lookup.Enabled = value
	case "cache.enabled":
		cfg.Cache.Enabled = value
	default:
		return fmt.Errorf("unknown bool field: %s", field)
	}
	return nil
}

// setIntField sets an integer field on the config by field path.
func setIntField(cfg *Config, field string, value int) error {
	switch field {
	case "server.verbosity":
		cfg.Server.Verbosity = value
	case "lookup.function_query_id":
		cfg.Lookup.FunctionQueryID = value
	case "lookup.contract_query_id":
		cfg.Lookup.ContractQueryID = value
	default:
		return fmt.Errorf("unknown int field: %s", field)
	}
	return nil
}

// setDurationField sets a duration field on the config by field path.
func setDurationField(cfg *Config, field string, value time.Duration) error {
	switch field {
	case "lookup.timeout":
		cfg.Lookup.Timeout.Duration = value
	case "lookup.poll_interval":
		cfg.Lookup.PollInterval.Duration = value
	case "cache.ttl":
		cfg.Cache.TTL.Duration = value
	default:
		return fmt.Errorf("unknown duration field: %s", field)
	}
	return nil
}
