// Package lookup resolves 4-byte function selectors and contract addresses
// to human-readable names through a remote query service.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Service resolves selectors and addresses.
type Service interface {
	// FunctionSignature returns the text signature for a selector, for
	// example "balanceOf(address)" for 0x70a08231.
	FunctionSignature(ctx context.Context, selector string) (string, error)
	// ContractName returns the name of the contract deployed at address.
	ContractName(ctx context.Context, address string) (string, error)
}

// Operation names used in errors and cache keys.
const (
	OpFunctionSignature = "function_signature"
	OpContractName      = "contract_name"
)

var (
	// ErrNotFound means the service knows nothing about the key.
	ErrNotFound = errors.New("not found")
	// ErrNotConfigured means lookups are disabled or have no credentials.
	ErrNotConfigured = errors.New("signature lookup not configured")
	// ErrTimeout means the lookup did not finish in time.
	ErrTimeout = errors.New("lookup timed out")
	// ErrQueryFailed means the remote query failed or returned garbage.
	ErrQueryFailed = errors.New("query failed")
)

// Error is returned for every failed lookup.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// wrapError turns err into an *Error for op/key. Context deadlines become
// ErrTimeout.
func wrapError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var le *Error
	if errors.As(err, &le) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return &Error{Op: op, Key: key, Err: err}
}

// NormalizeKey lowercases a hex selector or address so that equivalent keys
// share cache entries and in-flight requests.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Disabled is the Service used when no lookup backend is configured.
type Disabled struct{}

func (Disabled) FunctionSignature(_ context.Context, selector string) (string, error) {
	return "", &Error{Op: OpFunctionSignature, Key: selector, Err: ErrNotConfigured}
}

func (Disabled) ContractName(_ context.Context, address string) (string, error) {
	return "", &Error{Op: OpContractName, Key: address, Err: ErrNotConfigured}
}
