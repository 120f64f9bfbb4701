package registry

import (
	"time"

	"github.com/charlesng35/weddingrsvp/pkg/crypto"
)

const (
	// CodeAlphabet is the character set invitation codes are drawn from.
	CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// DefaultCodeLength is the length of generated invitation codes.
	DefaultCodeLength = 6

	defaultCodeAttempts = 10
)

// CodeGenerator returns a candidate invitation code.
type CodeGenerator func() (string, error)

// Option customises a Store implementation.
type Option func(*options)

type options struct {
	generate     CodeGenerator
	codeLength   int
	codeAttempts int
	uniquePhone  bool
	now          func() time.Time
}

func newOptions(opts []Option) options {
	o := options{
		codeLength:   DefaultCodeLength,
		codeAttempts: defaultCodeAttempts,
		now:          time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.generate == nil {
		length := o.codeLength
		o.generate = func() (string, error) {
			return crypto.RandomString(CodeAlphabet, length)
		}
	}
	return o
}

// WithCodeLength overrides the generated code length.
func WithCodeLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.codeLength = n
		}
	}
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen CodeGenerator) Option {
	return func(o *options) {
		o.generate = gen
	}
}

// WithCodeAttempts bounds how many candidate codes Create tries.
func WithCodeAttempts(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.codeAttempts = n
		}
	}
}

// WithUniquePhone rejects guests whose phone number is already registered.
func WithUniquePhone(enabled bool) Option {
	return func(o *options) {
		o.uniquePhone = enabled
	}
}

// WithClock injects a custom clock, primarily for testing.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
