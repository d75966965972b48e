// Copyright (c) 2025-2026 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package request builds chat-completion requests from conversation
// history and user-set parameters.
//
// The builder is pure construction: it validates inputs, normalizes an
// attached image into typed content parts, and attaches model-dependent
// optional fields decided by an ordered capability table keyed on
// model-identifier substrings. It performs no I/O and holds no state
// between calls.
package request
