package util

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateSignature builds a compact sha1 hex signature over an activation
// or declaration. Used as the Value of history entities; the same parts always
// give the same signature.
func GenerateSignature(parts ...string) string {
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// CopyStringStringMap returns an independent copy of the given map. A nil
// input yields an empty, usable map.
func CopyStringStringMap(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for key, val := range src {
		dst[key] = val
	}
	return dst
}

// JoinIds renders an id list the way we store it in entity properties.
func JoinIds(ids []string) string {
	return strings.Join(ids, ",")
}

// JoinBools renders a bool list for entity properties, matching JoinIds.
func JoinBools(flags []bool) string {
	rendered := make([]string, len(flags))
	for i, f := range flags {
		rendered[i] = fmt.Sprintf("%t", f)
	}
	return strings.Join(rendered, ",")
}
