package yul

import (
	"strconv"
	"strings"
)

// Dialect is the set of built-in functions available to a Yul program.
type Dialect struct {
	Name     string
	builtins map[string]bool
	verbatim bool // accepts verbatim_<n>i_<m>o
}

// NewDialect builds a dialect from a list of built-in names.
func NewDialect(name string, builtins []string) *Dialect {
	d := &Dialect{Name: name, builtins: make(map[string]bool, len(builtins))}
	for _, b := range builtins {
		d.builtins[b] = true
	}
	return d
}

// IsBuiltin reports whether name is a built-in of the dialect.
func (d *Dialect) IsBuiltin(name string) bool {
	if d == nil {
		return false
	}
	if d.builtins[name] {
		return true
	}
	return d.verbatim && isVerbatim(name)
}

// isVerbatim matches verbatim_<n>i_<m>o with n, m in [0, 99].
func isVerbatim(name string) bool {
	rest, ok := strings.CutPrefix(name, "verbatim_")
	if !ok {
		return false
	}
	in, out, ok := strings.Cut(rest, "i_")
	if !ok {
		return false
	}
	out, ok = strings.CutSuffix(out, "o")
	if !ok {
		return false
	}
	return smallCount(in) && smallCount(out)
}

func smallCount(s string) bool {
	if s == "" || len(s) > 2 || (len(s) == 2 && s[0] == '0') {
		return false
	}
	n, err := strconv.Atoi(s)
	return err == nil && n >= 0 && n < 100
}

// EVM is the EVM dialect used by solc for Yul objects.
var EVM = func() *Dialect {
	d := NewDialect("evm", evmBuiltins)
	d.verbatim = true
	return d
}()

var evmBuiltins = []string{
	// arithmetic and bitwise
	"stop", "add", "sub", "mul", "div", "sdiv", "mod", "smod", "exp", "not",
	"lt", "gt", "slt", "sgt", "eq", "iszero", "and", "or", "xor", "byte",
	"shl", "shr", "sar", "addmod", "mulmod", "signextend", "keccak256",

	// memory, storage and transient storage
	"pc", "pop", "mload", "mstore", "mstore8", "sload", "sstore", "tload",
	"tstore", "msize", "mcopy", "gas",

	// execution context
	"address", "balance", "selfbalance", "caller", "callvalue",
	"calldataload", "calldatasize", "calldatacopy", "codesize", "codecopy",
	"extcodesize", "extcodecopy", "returndatasize", "returndatacopy",
	"extcodehash", "chainid", "basefee", "blobbasefee", "origin", "gasprice",
	"blockhash", "blobhash", "coinbase", "timestamp", "number", "difficulty",
	"prevrandao", "gaslimit",

	// calls and termination
	"create", "create2", "call", "callcode", "delegatecall", "staticcall",
	"return", "revert", "selfdestruct", "invalid",
	"log0", "log1", "log2", "log3", "log4",

	// object and linker support
	"datasize", "dataoffset", "datacopy", "setimmutable", "loadimmutable",
	"linkersymbol", "memoryguard",
}
