// Copyright (C) 2021-2022  Ambassador Labs
//
// SPDX-License-Identifier: Apache-2.0

package env

import "fmt"

// Error is the domain error kind for everything that can go wrong discovering or loading an
// environment: a missing prefix, an environment with editable packages installed, uncached
// packages under a `raise` policy, and so on.
//
// It's a distinct type (rather than a sentinel or fmt.Errorf chain) so that callers driving a CLI
// can type-assert it to decide "this is a user-facing problem, print the message and exit" as
// opposed to an unexpected internal error.
type Error struct {
	msg string
}

func (e *Error) Error() string { return e.msg }

func errorf(format string, args ...interface{}) error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}
