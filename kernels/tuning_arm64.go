// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build arm64

package kernels

// NEON units are 128-bit: smaller KV tiles keep the working set inside the
// typically smaller L2 of ARM cores.
const (
	kvTileRows          = 64
	splitKVMinChunkRows = 1024
)
