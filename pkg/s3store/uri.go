package s3store

import (
	"errors"
	"path"
	"strings"
)

// ParseS3URI parses an S3 URI (s3://bucket/key) into bucket and key components.
func ParseS3URI(uri string) (bucket, key string, err error) {
	if !strings.HasPrefix(uri, "s3://") {
		return "", "", errors.New("invalid S3 URI: must start with s3://")
	}

	parts := strings.SplitN(strings.TrimPrefix(uri, "s3://"), "/", 2)
	if parts[0] == "" {
		return "", "", errors.New("invalid S3 URI: missing bucket name")
	}

	bucket = parts[0]
	if len(parts) == 2 {
		key = parts[1]
	}
	return bucket, key, nil
}

// ParseObjectURI is like ParseS3URI but requires a non-empty object key.
func ParseObjectURI(uri string) (bucket, key string, err error) {
	bucket, key, err = ParseS3URI(uri)
	if err != nil {
		return "", "", err
	}
	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", errors.New("invalid S3 URI: missing object key")
	}
	return bucket, key, nil
}

// IsS3URI reports whether s looks like an s3:// URI.
func IsS3URI(s string) bool {
	return strings.HasPrefix(s, "s3://")
}

// JoinKey joins a key prefix and a name with exactly one slash.
func JoinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return path.Join(prefix, name)
}
