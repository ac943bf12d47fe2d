// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package trace

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cilium/probehost/pkg/probectx"
)

// Record type markers used by the register dumping programs.
const (
	RegisterRecordMarker = 'R'
	UserRecordMarker     = 'M'
)

var ErrMalformedRecord = errors.New("malformed record")

// ParseRegisterRecord decodes an "R" payload: the marker followed by the 32
// registers in frame order, each in decimal and terminated by a comma.
func ParseRegisterRecord(payload []byte) (probectx.Registers, error) {
	var regs probectx.Registers
	if len(payload) == 0 || payload[0] != RegisterRecordMarker {
		return regs, fmt.Errorf("%w: missing %q marker", ErrMalformedRecord, RegisterRecordMarker)
	}
	if err := parseRegisterList(string(payload[1:]), &regs, func(string) (string, error) {
		return "", nil
	}); err != nil {
		return regs, err
	}
	return regs, nil
}

// UserRecord is the decoded form of an "M" payload.
type UserRecord struct {
	Time uint64
	CPU  uint32
	Addr uint64
	PID  uint32
	Regs probectx.Registers
}

// ParseUserRecord decodes an "M" payload as emitted for USER_ENTRY
// triggers.
func ParseUserRecord(payload []byte) (*UserRecord, error) {
	s := string(payload)
	if len(s) == 0 || s[0] != UserRecordMarker {
		return nil, fmt.Errorf("%w: missing %q marker", ErrMalformedRecord, UserRecordMarker)
	}
	head, regs, ok := strings.Cut(s[1:], " Registers:")
	if !ok {
		return nil, fmt.Errorf("%w: no register list", ErrMalformedRecord)
	}
	rec := &UserRecord{}
	if _, err := fmt.Sscanf(head, " Time: %d vCPU: %d User Addr = %d PID: %d",
		&rec.Time, &rec.CPU, &rec.Addr, &rec.PID); err != nil {
		return nil, fmt.Errorf("%w: header: %w", ErrMalformedRecord, err)
	}
	i := 0
	err := parseRegisterList(regs, &rec.Regs, func(field string) (string, error) {
		name, val, ok := strings.Cut(strings.TrimSpace(field), ":")
		if !ok || name != "x"+strconv.Itoa(i) {
			return "", fmt.Errorf("%w: register %d labelled %q", ErrMalformedRecord, i, name)
		}
		i++
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// parseRegisterList reads NumRegisters comma terminated fields. value maps
// a field to its decimal part; an empty result means the field itself.
func parseRegisterList(s string, regs *probectx.Registers, value func(string) (string, error)) error {
	fields := strings.Split(s, ",")
	if len(fields) != probectx.NumRegisters+1 || fields[probectx.NumRegisters] != "" {
		return fmt.Errorf("%w: want %d registers", ErrMalformedRecord, probectx.NumRegisters)
	}
	for i := 0; i < probectx.NumRegisters; i++ {
		v, err := value(fields[i])
		if err != nil {
			return err
		}
		if v == "" {
			v = fields[i]
		}
		regs[i], err = strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: register %d: %w", ErrMalformedRecord, i, err)
		}
	}
	return nil
}
