// Copyright (C) 2020-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wrappers carries small error- and byte-plumbing helpers shared
// by the metrics and codec packages.
package wrappers

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// Errs accumulates errors across a sequence of fallible registrations so
// the caller can check once at the end instead of after every step.
type Errs struct {
	mu   sync.RWMutex
	errs []error
}

// Add appends err to the collection; nil is a no-op.
func (e *Errs) Add(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.errs = append(e.errs, err)
}

// Errored reports whether any error has been added.
func (e *Errs) Errored() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.errs) > 0
}

// Err collapses the collection into a single error, or nil if empty.
func (e *Errs) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	switch len(e.errs) {
	case 0:
		return nil
	case 1:
		return e.errs[0]
	default:
		return errors.New(e.locked())
	}
}

// Len returns the number of accumulated errors.
func (e *Errs) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.errs)
}

func (e *Errs) String() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.locked()
}

func (e *Errs) locked() string {
	if len(e.errs) == 0 {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d error", len(e.errs))
	if len(e.errs) != 1 {
		sb.WriteString("s")
	}
	sb.WriteString(" occurred:")
	for _, err := range e.errs {
		sb.WriteString("\n\t* ")
		sb.WriteString(err.Error())
	}
	return sb.String()
}

// Packer appends big-endian primitives to a byte slice, latching the
// first error so callers can pack a whole row and check Err once.
type Packer struct {
	Bytes []byte
	Err   error
}

// NewPacker returns a Packer with capacity for size bytes.
func NewPacker(size int) *Packer {
	return &Packer{Bytes: make([]byte, 0, size)}
}

// PackByte appends a single byte.
func (p *Packer) PackByte(b byte) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, b)
}

// PackShort appends a uint16 as 2 bytes.
func (p *Packer) PackShort(s uint16) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, byte(s>>8), byte(s))
}

// PackInt appends a uint32 as 4 bytes.
func (p *Packer) PackInt(i uint32) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, byte(i>>24), byte(i>>16), byte(i>>8), byte(i))
}

// PackLong appends a uint64 as 8 bytes.
func (p *Packer) PackLong(l uint64) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes,
		byte(l>>56), byte(l>>48), byte(l>>40), byte(l>>32),
		byte(l>>24), byte(l>>16), byte(l>>8), byte(l))
}

// PackBytes appends raw bytes verbatim.
func (p *Packer) PackBytes(bytes []byte) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, bytes...)
}
