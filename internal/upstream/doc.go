// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upstream submits questions to the answering service.
//
// The service is an opaque HTTP endpoint that accepts a JSON body of the form
// {"question": "..."} and answers either with a server-sent-event stream or,
// for older deployments, with a plain body. Ask reports which one it got so
// the caller can pick a decoder.
//
// Requests are not retried. A stalled stream can optionally be aborted by an
// idle watchdog (WithIdleTimeout).
package upstream
