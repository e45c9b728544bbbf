// Package util holds small helpers shared by the CLI and exporters.
package util

import (
	"crypto/md5"
	"encoding/hex"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Md5ThenHex digests a raw buffer, e.g. an image's sensor bytes, for logs and
// listings.
func Md5ThenHex(value []byte) string {
	sum := md5.Sum(value)
	return hex.EncodeToString(sum[:])
}

// HashUUID derives a stable UUID from the JSON form of value. Equal
// correction profiles give equal ids, so exported files can be traced back
// to the settings that made them. It returns "" when value cannot be
// marshalled.
func HashUUID(value any) string {
	raw, err := json.Marshal(value)
	if err != nil {
		return ""
	}
	sum := md5.Sum(raw)
	id, err := uuid.FromBytes(sum[:])
	if err != nil {
		return ""
	}
	return id.String()
}
