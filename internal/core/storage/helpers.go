package storage

import "blobmux/internal/core/storage/types"

var (
	// NewBlobValue builds a BlobValue with its content checksum computed
	NewBlobValue = types.NewBlobValue

	// ChecksumOf returns the hex-encoded checksum of content
	ChecksumOf = types.ChecksumOf
)
