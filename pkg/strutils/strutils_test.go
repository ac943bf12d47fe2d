// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package strutils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSize(t *testing.T) {
	var tests = []struct {
		str string
		err bool
		val int
	}{
		{"1K", false, 1024},
		{"256M", false, 256 * 1024 * 1024},
		{"10G", false, 10 * 1024 * 1024 * 1024},
		{"4096", false, 4096},
		{"10k", true, 0},
		{"abc", true, 0},
		{"abcM", true, 0},
		{"", true, 0},
	}

	for _, test := range tests {
		val, err := ParseSize(test.str)
		assert.Equal(t, test.val, val, test.str)
		assert.Equal(t, test.err, err != nil, test.str)
	}
}

func TestSizeWithSuffix(t *testing.T) {
	assert.Equal(t, "512", SizeWithSuffix(512))
	assert.Equal(t, "64K", SizeWithSuffix(64*1024+1))
	assert.Equal(t, "3M", SizeWithSuffix(3*1024*1024+5))
}

func TestCString(t *testing.T) {
	assert.Equal(t, "initproc", string(CStringBytes([]byte("initproc\x00junk"))))
	assert.Equal(t, "abc", string(CStringBytes([]byte("abc"))))
	assert.Equal(t, "ini", UTF8FromCBytes([]byte("ini\x00")))
	assert.Equal(t, "a�b", UTF8FromCBytes([]byte{'a', 0xff, 'b', 0}))
}
