// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build !amd64 && !arm64

package kernels

// Conservative defaults for architectures without tuned profiles.
const (
	kvTileRows          = 64
	splitKVMinChunkRows = 2048
)
