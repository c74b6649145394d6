// Package stage moves run inputs onto local disk and publishes the output root.
package stage

import (
	"fmt"
	"strings"
)

// Location schemes understood by the stager.
const (
	SchemeFile  = "file"
	SchemeS3    = "s3"
	SchemeHTTP  = "http"
	SchemeHTTPS = "https"
)

// ParseLocation splits a location into scheme and remainder.
// Bare paths have an empty scheme.
func ParseLocation(loc string) (scheme, rest string) {
	if i := strings.Index(loc, "://"); i > 0 {
		return strings.ToLower(loc[:i]), loc[i+3:]
	}
	return "", loc
}

// ParseS3 splits an s3://bucket/key location.
func ParseS3(loc string) (bucket, key string, err error) {
	scheme, rest := ParseLocation(loc)
	if scheme != SchemeS3 {
		return "", "", fmt.Errorf("not an s3 location: %q", loc)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 location %q has no bucket", loc)
	}
	return bucket, key, nil
}
