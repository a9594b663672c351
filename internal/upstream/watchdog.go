// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upstream

import (
	"context"
	"errors"
	"io"
	"time"
)

// watchdog cancels the request when no bytes arrive for the idle window.
type watchdog struct {
	rc     io.ReadCloser
	ctx    context.Context
	cancel context.CancelCauseFunc
	idle   time.Duration
	timer  *time.Timer
}

func newWatchdog(ctx context.Context, rc io.ReadCloser, idle time.Duration, cancel context.CancelCauseFunc) *watchdog {
	w := &watchdog{rc: rc, ctx: ctx, cancel: cancel, idle: idle}
	w.timer = time.AfterFunc(idle, func() { cancel(ErrIdleTimeout) })
	return w
}

func (w *watchdog) Read(p []byte) (int, error) {
	n, err := w.rc.Read(p)
	if n > 0 {
		w.timer.Reset(w.idle)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		if errors.Is(context.Cause(w.ctx), ErrIdleTimeout) {
			return n, ErrIdleTimeout
		}
	}
	return n, err
}

func (w *watchdog) Close() error {
	w.timer.Stop()
	err := w.rc.Close()
	w.cancel(nil)
	return err
}
