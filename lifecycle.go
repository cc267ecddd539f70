package envkernel

import (
	"bytes"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
)

// Layout constants for the simulated user stack (spec §4.2 "map the user
// stack"). These stand in for the real kernel's USTACKTOP/memlayout.h
// constants; only their relative placement (high, above any plausible
// LOAD segment) matters for this simulation.
const (
	userStackTop  = uintptr(0xeebfe000)
	userStackSize = uintptr(8 * 4096)
)

// Create implements spec §4.2 create(image_bytes, type): allocate an env,
// then load an ELF image into its address space. Any load failure is fatal
// (the freshly allocated slot is returned to the free list).
//
// kernelSymbols binds kernel-exported names (e.g. "envs", "thisenv") to the
// addresses create() writes into matching global-data symbols declared by
// the binary — spec §4.2's "bind kernel-exported symbols into user-space
// variables... by walking the symbol table".
func (t *Table) Create(parentID int32, typ EnvType, image []byte, kernelSymbols map[string]uintptr) (*Environment, error) {
	env, err := t.Allocate(parentID, typ)
	if err != nil {
		return nil, err
	}

	if err := t.loadELF(env, image, kernelSymbols); err != nil {
		_ = t.Free(env)
		return nil, err
	}

	if t.opts.traceEnvs {
		t.log(LevelInfo, "env", env.id, "created from image", map[string]any{"bytes": len(image)})
	}

	return env, nil
}

// loadELF validates and maps image into env's address space, grounded on
// spec §4.2's LOAD-segment walk. debug/elf does the magic/header/string-
// table-index validation spec.md describes; no example repo in the pack
// ships an importable ELF parser of its own (see DESIGN.md), so this is the
// one component that reaches for the standard library by necessity rather
// than by choice.
func (t *Table) loadELF(env *Environment, image []byte, kernelSymbols map[string]uintptr) error {
	f, err := elf.NewFile(bytes.NewReader(image))
	if err != nil {
		return fmt.Errorf("envkernel: %v: %w", err, InvalidExe)
	}
	defer f.Close()

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		if prog.Filesz > prog.Memsz {
			return fmt.Errorf("envkernel: segment filesz %d exceeds memsz %d: %w", prog.Filesz, prog.Memsz, InvalidExe)
		}

		buf := make([]byte, prog.Memsz) // memsz > filesz is BSS: left zero
		if _, err := io.ReadFull(prog.Open(), buf[:prog.Filesz]); err != nil {
			return fmt.Errorf("envkernel: reading LOAD segment: %v: %w", err, InvalidExe)
		}
		if err := env.space.WriteAt(uintptr(prog.Vaddr), buf); err != nil {
			return fmt.Errorf("envkernel: mapping LOAD segment at %#x: %v: %w", prog.Vaddr, err, NoMem)
		}
	}

	if err := env.space.WriteAt(userStackTop-userStackSize, make([]byte, userStackSize)); err != nil {
		return fmt.Errorf("envkernel: mapping user stack: %v: %w", err, NoMem)
	}
	env.frame.SP = userStackTop

	env.frame.IP = uintptr(f.Entry)

	if len(kernelSymbols) > 0 {
		if err := bindKernelSymbols(f, env.space, kernelSymbols); err != nil {
			return err
		}
	}

	return nil
}

// bindKernelSymbols walks the image's symbol table and, for each STT_OBJECT
// symbol whose name matches a key in kernelSymbols, writes that symbol's
// kernel-side address (as a little-endian 8-byte value) into the
// binary's global variable at the symbol's own virtual address — spec
// §4.2's symbol-binding step (e.g. binding a user "envs" array pointer to
// the kernel's live Table).
func bindKernelSymbols(f *elf.File, space AddressSpace, kernelSymbols map[string]uintptr) error {
	syms, err := f.Symbols()
	if err != nil {
		// A stripped binary has no symbol table; binding is simply a no-op.
		return nil
	}

	width := binary.Size(uint64(0))
	for _, sym := range syms {
		if elf.ST_TYPE(sym.Info) != elf.STT_OBJECT {
			continue
		}
		addr, ok := kernelSymbols[sym.Name]
		if !ok {
			continue
		}
		buf := make([]byte, width)
		binary.LittleEndian.PutUint64(buf, uint64(addr))
		if err := space.WriteAt(uintptr(sym.Value), buf); err != nil {
			return fmt.Errorf("envkernel: binding symbol %q: %v: %w", sym.Name, err, NoMem)
		}
	}
	return nil
}

// Destroy implements spec §4.2 destroy(env): free the env; if it was
// current, yield (Scheduler.Yield does not return to the destroyed env's
// context since it is no longer eligible); clear any transient
// "in_page_fault" flag.
func (t *Table) Destroy(sched *Scheduler, env *Environment) error {
	env.inPageFault = false

	wasCurrent := t.hasCur && &t.slots[t.indexOf(env.id)] == t.Current()

	env.status = StatusDying
	if err := t.Free(env); err != nil {
		return err
	}

	if wasCurrent && sched != nil {
		sched.Yield()
	}
	return nil
}
