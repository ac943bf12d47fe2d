// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package trace

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cilium/probehost/pkg/probectx"
)

func TestParseRegisterRecord(t *testing.T) {
	var b strings.Builder
	b.WriteString("R")
	for i := 0; i < probectx.NumRegisters; i++ {
		fmt.Fprintf(&b, "%d,", uint64(i)*1000)
	}
	regs, err := ParseRegisterRecord([]byte(b.String()))
	require.NoError(t, err)
	assert.Equal(t, uint64(10000), regs.A0())
	assert.Equal(t, uint64(31000), regs[probectx.RegT6])

	for _, bad := range []string{"", "M1,", "R1,2,3,", "R" + strings.Repeat("x,", 32)} {
		_, err := ParseRegisterRecord([]byte(bad))
		assert.ErrorIs(t, err, ErrMalformedRecord, bad)
	}
}

func TestParseUserRecord(t *testing.T) {
	var b strings.Builder
	b.WriteString("M Time: 123 vCPU: 2 User Addr = 4096 PID: 77 Registers:")
	for i := 0; i < probectx.NumRegisters; i++ {
		fmt.Fprintf(&b, " x%d:%d,", i, i+1)
	}
	rec, err := ParseUserRecord([]byte(b.String()))
	require.NoError(t, err)
	assert.Equal(t, uint64(123), rec.Time)
	assert.Equal(t, uint32(2), rec.CPU)
	assert.Equal(t, uint64(4096), rec.Addr)
	assert.Equal(t, uint32(77), rec.PID)
	assert.Equal(t, uint64(11), rec.Regs.A0())

	_, err = ParseUserRecord([]byte("M Time: 1"))
	assert.ErrorIs(t, err, ErrMalformedRecord)
	_, err = ParseUserRecord([]byte("M Time: x vCPU: 2 User Addr = 1 PID: 1 Registers: x0:1,"))
	assert.ErrorIs(t, err, ErrMalformedRecord)
	swapped := strings.Replace(b.String(), " x0:1,", " x1:1,", 1)
	_, err = ParseUserRecord([]byte(swapped))
	assert.ErrorIs(t, err, ErrMalformedRecord)
}
