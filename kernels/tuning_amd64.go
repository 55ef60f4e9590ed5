// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

//go:build amd64

package kernels

// Tile sizes tuned for 256-bit and wider vector units: KV tiles sized so a
// tile of keys plus its score row stay inside L2 for the default head
// dimension of 128.
const (
	// kvTileRows is the number of key rows per online-softmax tile in
	// DecodeBlocked.
	kvTileRows = 128

	// splitKVMinChunkRows is the minimum key rows per split-KV chunk;
	// smaller chunks cost more in partial merges than they win back.
	splitKVMinChunkRows = 2048
)
