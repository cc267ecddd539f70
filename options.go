package envkernel

import (
	"fmt"
	"math/bits"
)

// tableOptions holds configuration resolved from TableOption values, in the
// style of eventloop/options.go's loopOptions/LoopOption pattern.
type tableOptions struct {
	capacity         int
	queueCapacity    int
	checkPermissions bool
	traceEnvs        bool
	traceSignals     bool
	logger           Logger
	spaceFactory     func() (AddressSpace, error)
}

// TableOption configures a Table at construction time.
type TableOption interface {
	applyTable(*tableOptions) error
}

type tableOptionFunc func(*tableOptions) error

func (f tableOptionFunc) applyTable(o *tableOptions) error { return f(o) }

// WithCapacity sets the number of slots N in the environment table. N must
// be a power of two (so that id = (generation << G) | index, with G =
// log2(N), per spec §3); the default is 64.
func WithCapacity(n int) TableOption {
	return tableOptionFunc(func(o *tableOptions) error {
		if n <= 0 || n&(n-1) != 0 {
			return fmt.Errorf("envkernel: capacity %d must be a positive power of two: %w", n, Inval)
		}
		o.capacity = n
		return nil
	})
}

// WithQueueCapacity sets the per-env signal queue capacity Q (spec §3
// "queue: bounded circular buffer... capacity Q (typical Q=16)"). Must be
// at least 2, since a full circular buffer always keeps one slot empty.
func WithQueueCapacity(q int) TableOption {
	return tableOptionFunc(func(o *tableOptions) error {
		if q < 2 {
			return fmt.Errorf("envkernel: queue capacity %d must be >= 2: %w", q, Inval)
		}
		o.queueCapacity = q
		return nil
	})
}

// WithPermissionChecks toggles the "must be self or child" permission check
// performed by resolve (spec §4.1). Tests may disable it — spec §9 notes
// source copies disagree on whether permission checks apply in test
// configurations; we make it an explicit, observable choice rather than a
// silent compile-time #ifdef.
func WithPermissionChecks(enabled bool) TableOption {
	return tableOptionFunc(func(o *tableOptions) error {
		o.checkPermissions = enabled
		return nil
	})
}

// WithTraceEnvs gates env alloc/free diagnostic emissions (spec §6).
func WithTraceEnvs(enabled bool) TableOption {
	return tableOptionFunc(func(o *tableOptions) error {
		o.traceEnvs = enabled
		return nil
	})
}

// WithTraceSignals gates signal send/delivery/wake diagnostic emissions (spec §6).
func WithTraceSignals(enabled bool) TableOption {
	return tableOptionFunc(func(o *tableOptions) error {
		o.traceSignals = enabled
		return nil
	})
}

// WithLogger installs a structured Logger; defaults to a no-op logger.
func WithLogger(l Logger) TableOption {
	return tableOptionFunc(func(o *tableOptions) error {
		o.logger = l
		return nil
	})
}

// WithAddressSpaceFactory overrides how allocate() obtains a fresh
// AddressSpace for a new env (spec §4.1 "allocate a fresh address space,
// propagate NO_MEM on failure"). The default constructs a NewFlatAddressSpace.
func WithAddressSpaceFactory(f func() (AddressSpace, error)) TableOption {
	return tableOptionFunc(func(o *tableOptions) error {
		if f == nil {
			return fmt.Errorf("envkernel: address space factory must not be nil: %w", Inval)
		}
		o.spaceFactory = f
		return nil
	})
}

func resolveTableOptions(opts []TableOption) (*tableOptions, error) {
	cfg := &tableOptions{
		capacity:         64,
		queueCapacity:    16,
		checkPermissions: true,
		logger:           NewNoOpLogger(),
		spaceFactory: func() (AddressSpace, error) {
			return NewFlatAddressSpace(), nil
		},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyTable(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// generationShift returns G, the number of low bits of an env id reserved
// for the table index, per spec §3 ("G is the log2 of table capacity N").
func generationShift(capacity int) uint {
	return uint(bits.Len(uint(capacity - 1)))
}
