package config

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaSource string

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaDef  cue.Value
	schemaErr  error
)

func loadSchema() (*cue.Context, cue.Value, error) {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		v := schemaCtx.CompileString(schemaSource, cue.Filename("schema.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compiling config schema: %w", err)
			return
		}
		schemaDef = v.LookupPath(cue.ParsePath("#Config"))
	})
	return schemaCtx, schemaDef, schemaErr
}

// schemaView is the shape the schema checks: plain values, durations in
// milliseconds, and no secrets.
type schemaView struct {
	Server struct {
		Transport string `json:"transport"`
		Address   string `json:"address"`
		Verbosity int    `json:"verbosity"`
		LogFile   string `json:"log_file"`
		Debug     bool   `json:"debug"`
	} `json:"server"`
	Lookup struct {
		Enabled         bool   `json:"enabled"`
		Endpoint        string `json:"endpoint"`
		APIKeySet       bool   `json:"api_key_set"`
		FunctionQueryID int    `json:"function_query_id"`
		ContractQueryID int    `json:"contract_query_id"`
		FunctionParam   string `json:"function_param"`
		ContractParam   string `json:"contract_param"`
		Timeout         int64  `json:"timeout"`
		PollInterval    int64  `json:"poll_interval"`
	} `json:"lookup"`
	Cache struct {
		Enabled bool   `json:"enabled"`
		Path    string `json:"path"`
		TTL     int64  `json:"ttl"`
	} `json:"cache"`
}

func viewOf(cfg *Config) schemaView {
	var v schemaView
	v.Server.Transport = cfg.Server.Transport
	v.Server.Address = cfg.Server.Address
	v.Server.Verbosity = cfg.Server.Verbosity
	v.Server.LogFile = cfg.Server.LogFile
	v.Server.Debug = cfg.Server.Debug

	v.Lookup.Enabled = cfg.Lookup.Enabled
	v.Lookup.Endpoint = cfg.Lookup.Endpoint
	v.Lookup.APIKeySet = cfg.Lookup.APIKey != ""
	v.Lookup.FunctionQueryID = cfg.Lookup.FunctionQueryID
	v.Lookup.ContractQueryID = cfg.Lookup.ContractQueryID
	v.Lookup.FunctionParam = cfg.Lookup.FunctionParam
	v.Lookup.ContractParam = cfg.Lookup.ContractParam
	v.Lookup.Timeout = cfg.Lookup.Timeout.Milliseconds()
	v.Lookup.PollInterval = cfg.Lookup.PollInterval.Milliseconds()

	v.Cache.Enabled = cfg.Cache.Enabled
	v.Cache.Path = cfg.Cache.Path
	v.Cache.TTL = cfg.Cache.TTL.Milliseconds()
	return v
}

// Validate checks cfg against the embedded CUE schema. Each violation is
// reported with its configuration path.
func Validate(cfg *Config) error {
	ctx, def, err := loadSchema()
	if err != nil {
		return err
	}

	v := def.Unify(ctx.Encode(viewOf(cfg)))
	err = v.Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var msgs []string
	for _, e := range cueerrors.Errors(err) {
		msg := e.Error()
		if path := strings.Join(e.Path(), "."); path != "" && !strings.HasPrefix(msg, path) {
			msg = path + ": " + msg
		}
		msgs = append(msgs, msg)
	}
	where := "configuration"
	if cfg.Path != "" {
		where = cfg.Path
	}
	return fmt.Errorf("invalid %s: %s", where, strings.Join(msgs, "; "))
}
