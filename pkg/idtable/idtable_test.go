// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package idtable

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOps(t *testing.T) {
	idt := New[string]()
	assert.Equal(t, 0, idt.Len())

	e0 := idt.AddEntry("e0")
	e1 := idt.AddEntry("e1")
	e2 := idt.AddEntry("e2")
	assert.Equal(t, EntryID{0}, e0)
	assert.Equal(t, EntryID{2}, e2)
	assert.Equal(t, 3, idt.Len())

	v, err := idt.GetEntry(e1)
	require.NoError(t, err)
	assert.Equal(t, "e1", v)

	v, err = idt.RemoveEntry(e1)
	require.NoError(t, err)
	assert.Equal(t, "e1", v)
	assert.Equal(t, 2, idt.Len())

	_, err = idt.GetEntry(e1)
	assert.Error(t, err)
	_, err = idt.RemoveEntry(e1)
	assert.Error(t, err)
	_, err = idt.GetEntry(UninitializedEntryID)
	assert.Error(t, err)
	_, err = idt.GetEntry(EntryID{10})
	assert.Error(t, err)

	// the free slot is reused
	e3 := idt.AddEntry("e3")
	assert.Equal(t, e1, e3)

	var seen []string
	idt.ForEach(func(_ EntryID, s string) { seen = append(seen, s) })
	assert.Equal(t, []string{"e0", "e3", "e2"}, seen)
}
