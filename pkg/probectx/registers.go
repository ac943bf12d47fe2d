// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package probectx

import (
	"fmt"
	"strconv"
	"strings"
)

// NumRegisters is the number of general purpose registers in a frame.
const NumRegisters = 32

// Register indexes in trap frame order. The order is the RISC-V integer
// register numbering (x0..x31) and consumers decode trace output
// positionally, so it must never change.
const (
	RegZero = iota
	RegRA
	RegSP
	RegGP
	RegTP
	RegT0
	RegT1
	RegT2
	RegS0
	RegS1
	RegA0
	RegA1
	RegA2
	RegA3
	RegA4
	RegA5
	RegA6
	RegA7
	RegS2
	RegS3
	RegS4
	RegS5
	RegS6
	RegS7
	RegS8
	RegS9
	RegS10
	RegS11
	RegT3
	RegT4
	RegT5
	RegT6
)

// NumArgRegisters is the number of argument registers (a0..a7).
const NumArgRegisters = 8

var registerNames = [NumRegisters]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// ABI name aliases that are not in registerNames.
var registerAliases = map[string]int{
	"fp": RegS0,
}

// RegisterName returns the ABI name of register i.
func RegisterName(i int) string {
	if i < 0 || i >= NumRegisters {
		return fmt.Sprintf("x%d", i)
	}
	return registerNames[i]
}

// RegisterIndex resolves an ABI name ("a0"), an alias ("fp") or an
// architectural name ("x10") to a frame index.
func RegisterIndex(name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := range registerNames {
		if registerNames[i] == name {
			return i, nil
		}
	}
	if i, ok := registerAliases[name]; ok {
		return i, nil
	}
	if rest, ok := strings.CutPrefix(name, "x"); ok {
		i, err := strconv.Atoi(rest)
		if err == nil && i >= 0 && i < NumRegisters {
			return i, nil
		}
	}
	return -1, fmt.Errorf("unknown register %q", name)
}

// Registers is the general purpose register frame. Positional access
// (regs[i]) and the named accessors below address the same array.
type Registers [NumRegisters]uint64

func (r *Registers) Zero() uint64 { return r[RegZero] }
func (r *Registers) RA() uint64   { return r[RegRA] }
func (r *Registers) SP() uint64   { return r[RegSP] }
func (r *Registers) GP() uint64   { return r[RegGP] }
func (r *Registers) TP() uint64   { return r[RegTP] }
func (r *Registers) FP() uint64   { return r[RegS0] }
func (r *Registers) A0() uint64   { return r[RegA0] }
func (r *Registers) A1() uint64   { return r[RegA1] }

// Arg returns argument register a<n>, or 0 if n is not in 0..7.
func (r *Registers) Arg(n int) uint64 {
	if n < 0 || n >= NumArgRegisters {
		return 0
	}
	return r[RegA0+n]
}

// Ret returns the return value register. It is only meaningful on a
// RETURN_EXIT trigger.
func (r *Registers) Ret() uint64 {
	return r[RegA0]
}

// Named returns the value of the register called name.
func (r *Registers) Named(name string) (uint64, error) {
	i, err := RegisterIndex(name)
	if err != nil {
		return 0, err
	}
	return r[i], nil
}

// Set assigns register name. Only the host builds register frames.
func (r *Registers) Set(name string, v uint64) error {
	i, err := RegisterIndex(name)
	if err != nil {
		return err
	}
	r[i] = v
	return nil
}
