// SPDX-License-Identifier: Apache-2.0
// Copyright Authors of Tetragon

// Package trace turns the fragments a probe emits into framed records for an
// external consumer.
//
// There are two ways to emit text. The template path (TracePrintk) replaces
// each "{}" with the next argument in decimal; "%" has no meaning there and
// is copied like any other byte. The raw path (PrintStr) copies bytes
// verbatim, so neither "{}" nor "%" is interpreted. Consumers of the printf
// family must never be handed template text: a "%d" that went through the
// template path reaches them unchanged.
package trace

import (
	"strconv"
	"strings"
)

const (
	// Placeholder is the argument marker of the template path.
	Placeholder = "{}"
	// MaxArgs is the number of arguments a template can consume. Further
	// placeholders are copied verbatim.
	MaxArgs = 3
)

// AppendTemplate renders tmpl with args into dst.
func AppendTemplate(dst []byte, tmpl string, args ...uint64) []byte {
	if len(args) > MaxArgs {
		args = args[:MaxArgs]
	}
	for len(args) > 0 {
		i := strings.Index(tmpl, Placeholder)
		if i < 0 {
			break
		}
		dst = append(dst, tmpl[:i]...)
		dst = strconv.AppendUint(dst, args[0], 10)
		tmpl = tmpl[i+len(Placeholder):]
		args = args[1:]
	}
	return append(dst, tmpl...)
}

// RenderTemplate is AppendTemplate into a fresh string.
func RenderTemplate(tmpl string, args ...uint64) string {
	return string(AppendTemplate(make([]byte, 0, len(tmpl)+8), tmpl, args...))
}

// CountPlaceholders returns the number of placeholders in tmpl.
func CountPlaceholders(tmpl string) int {
	return strings.Count(tmpl, Placeholder)
}
