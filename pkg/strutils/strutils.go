// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

package strutils

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// CStringBytes returns b up to, not including, its first NUL byte.
func CStringBytes(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}

// UTF8FromCBytes turns a C string written by a probe into a printable Go
// string. Probe memory is not guaranteed to hold valid utf-8, so invalid
// runes are replaced with '�'.
func UTF8FromCBytes(b []byte) string {
	return strings.ToValidUTF8(string(CStringBytes(b)), "�")
}

func ParseSize(str string) (int, error) {
	if str == "" {
		return 0, fmt.Errorf("empty size")
	}
	suffix := str[len(str)-1:]

	if !strings.Contains("KMG", suffix) {
		return strconv.Atoi(str)
	}

	val, err := strconv.Atoi(str[0 : len(str)-1])
	if err != nil {
		return 0, err
	}

	switch suffix {
	case "K":
		return val * 1024, nil
	case "M":
		return val * 1024 * 1024, nil
	case "G":
		return val * 1024 * 1024 * 1024, nil
	}

	// never reached
	return 0, nil
}

func SizeWithSuffix(size int) string {
	suffix := [4]string{"", "K", "M", "G"}

	i := 0
	for size > 1024 && i < 3 {
		size = size / 1024
		i++
	}

	return fmt.Sprintf("%d%s", size, suffix[i])
}
