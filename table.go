package envkernel

import "time"

// Table is the fixed-capacity array of environment slots with a free list
// and generation-stamped ids (spec §4.1, C1).
//
// Grounded on eventloop/registry.go's id-reuse-with-liveness-check idea
// (there: weak pointers + a ring buffer of ids; here: a fixed array plus an
// explicit free-list stack, since env slots are never garbage collected —
// they are explicitly freed) and on original_source/kern/env.c's
// env_alloc/env_free/envid2env.
type Table struct {
	capacity int
	genShift uint // G: low bits of an id reserved for the slot index

	slots []Environment
	gens  []uint32 // current generation stamped into slots[i], tracked
	// separately from Environment.id so a freed slot (id == 0) still
	// remembers the generation to bump on next allocate.

	free []int32 // stack of free slot indices; push/pop at the tail = "free-list head"

	curIndex int
	hasCur   bool

	opts *tableOptions
}

// NewTable constructs a Table with N slots, all initially FREE (spec §4.1
// env_init: "free list order at boot equals array order").
func NewTable(opts ...TableOption) (*Table, error) {
	cfg, err := resolveTableOptions(opts)
	if err != nil {
		return nil, err
	}

	t := &Table{
		capacity: cfg.capacity,
		genShift: generationShift(cfg.capacity),
		slots:    make([]Environment, cfg.capacity),
		gens:     make([]uint32, cfg.capacity),
		free:     make([]int32, cfg.capacity),
		opts:     cfg,
	}
	// Push so that popping (from the tail) yields index 0 first, matching
	// "allocate() returns envs[0]" on a fresh table.
	for i := 0; i < cfg.capacity; i++ {
		t.free[i] = int32(cfg.capacity - 1 - i)
		t.slots[i].status = StatusFree
		t.slots[i].queue = newSigQueue(cfg.queueCapacity)
	}
	return t, nil
}

// Capacity returns N, the number of slots.
func (t *Table) Capacity() int { return t.capacity }

// Current returns the RUNNING environment (curenv), or nil if none.
func (t *Table) Current() *Environment {
	if !t.hasCur {
		return nil
	}
	return &t.slots[t.curIndex]
}

func (t *Table) log(level LogLevel, category string, envID int32, msg string, fields map[string]any) {
	if t.opts.logger == nil || !t.opts.logger.IsEnabled(level) {
		return
	}
	t.opts.logger.Log(LogEntry{
		Level: level, Category: category, EnvID: envID, Message: msg,
		Fields: fields, Timestamp: time.Now(),
	})
}

func (t *Table) indexOf(id int32) int {
	return int(uint32(id) & uint32(t.capacity-1))
}

// Resolve implements spec §4.1 resolve(id, must_be_self_or_child). id == 0
// means "the calling environment".
func (t *Table) Resolve(id int32, mustBeSelfOrChild bool) (*Environment, error) {
	if id == 0 {
		cur := t.Current()
		if cur == nil {
			return nil, BadEnv
		}
		return cur, nil
	}

	idx := t.indexOf(id)
	env := &t.slots[idx]
	if env.status == StatusFree || env.id != id {
		return nil, BadEnv
	}

	if mustBeSelfOrChild && t.opts.checkPermissions {
		// With no current env there is no calling context to restrict
		// against (e.g. a test or kernel-internal caller driving Table
		// directly); the check only bites once some env is actually
		// running and targeting another that is neither itself nor its
		// own child.
		if cur := t.Current(); cur != nil && env != cur && env.parentID != cur.id {
			return nil, BadEnv
		}
	}

	return env, nil
}

// Allocate implements spec §4.1 allocate(parent_id, type): pop the free
// list head, allocate a fresh address space (propagating NoMem on failure
// while leaving the slot on the free list), then initialize the slot.
func (t *Table) Allocate(parentID int32, typ EnvType) (*Environment, error) {
	if len(t.free) == 0 {
		return nil, NoFreeEnv
	}

	idx := t.free[len(t.free)-1]
	env := &t.slots[idx]

	space, err := t.opts.spaceFactory()
	if err != nil || space == nil {
		return nil, NoMem
	}

	// Commit-last: only unlink from the free list after the address space
	// is known good (spec §7, "env_alloc only unlinks from the free list
	// after address-space init succeeds").
	t.free = t.free[:len(t.free)-1]

	gen := t.gens[idx] + 1
	if gen == 0 || (gen<<t.genShift) == 0 {
		// Skip generation zero so ids stay positive and nonzero (spec
		// §4.1 "bump generation... skip generation zero").
		gen = 1
	}
	t.gens[idx] = gen

	*env = Environment{
		id:       int32((gen << t.genShift) | uint32(idx)),
		status:   StatusRunnable,
		typ:      typ,
		parentID: parentID,
		space:    space,
		queue:    env.queue, // preserve the allocated buffer, just clear it
	}
	env.queue.clear()

	env.frame.Flags = flagInterruptEnable
	if typ == TypeFilesystem {
		env.frame.Flags |= iopl3
	}
	if typ == TypeUser || typ == TypeFilesystem {
		env.frame.CS = 3
		env.frame.DS, env.frame.ES, env.frame.SS = 3, 3, 3
	}

	if t.opts.traceEnvs {
		t.log(LevelInfo, "env", env.id, "new env", map[string]any{"parent": parentID, "type": typ.String()})
	}

	return env, nil
}

// Free implements spec §4.1 free(env): release the address space, relink
// the slot onto the free-list head, mark it FREE.
func (t *Table) Free(env *Environment) error {
	idx := t.indexOf(env.id)
	if &t.slots[idx] != env {
		return BadEnv
	}

	if env.space != nil {
		if err := env.space.Close(); err != nil {
			return err
		}
	}

	if t.hasCur && t.curIndex == idx {
		t.hasCur = false
	}

	env.status = StatusFree
	env.id = 0
	env.queue.clear()
	t.free = append(t.free, int32(idx))

	if t.opts.traceEnvs {
		t.log(LevelInfo, "env", int32(idx), "freed env", nil)
	}
	return nil
}

// setCurrent marks idx as curenv, used by the scheduler's run().
func (t *Table) setCurrent(idx int) {
	t.curIndex = idx
	t.hasCur = true
}

// clearCurrent clears curenv (used when halting with no runnable env).
func (t *Table) clearCurrent() {
	t.hasCur = false
}

// forEach iterates all N slots in index order, for scheduler scans and
// diagnostics.
func (t *Table) forEach(fn func(idx int, env *Environment)) {
	for i := range t.slots {
		fn(i, &t.slots[i])
	}
}

// ForEach exposes forEach to callers outside the package (monitor-style
// diagnostics, cmd/ demos): it visits every slot, including free ones, in
// index order.
func (t *Table) ForEach(fn func(idx int, env *Environment)) {
	t.forEach(fn)
}
