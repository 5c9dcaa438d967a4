// Package s3util provides the S3 plumbing for the frame-finder pipeline:
// source-object download to a transient local file, output existence checks,
// and output writes.
package s3util

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	"github.com/fpang/video-frame-finder/internal/fault"
)

// DownloadToTempFile downloads an S3 object to a new temporary file and
// returns the file path plus a cleanup function that removes it. The cleanup
// function never fails the caller; removal problems are logged.
//
// A missing object is a SOURCE_NOT_FOUND fault; any other read problem is
// STORAGE_UNAVAILABLE, left for the delivery mechanism's redelivery to retry.
func DownloadToTempFile(ctx context.Context, client *s3.Client, bucket, key string) (string, func(), error) {
	log.Debug().Str("bucket", bucket).Str("key", key).Msg("Downloading source object")

	tmpFile, err := os.CreateTemp("", "frame-src-*"+filepath.Ext(key))
	if err != nil {
		return "", nil, fault.Wrap(fault.KindStorageUnavailable, "create temp file", err)
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return "", nil, classifyGetError(bucket, key, err)
	}
	defer result.Body.Close()

	written := int64(0)
	buf := make([]byte, 32*1024)
	for {
		n, readErr := result.Body.Read(buf)
		if n > 0 {
			if _, writeErr := tmpFile.Write(buf[:n]); writeErr != nil {
				tmpFile.Close()
				os.Remove(tmpFile.Name())
				return "", nil, fault.Wrap(fault.KindStorageUnavailable, "write temp file", writeErr)
			}
			written += int64(n)
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			tmpFile.Close()
			os.Remove(tmpFile.Name())
			return "", nil, fault.Wrap(fault.KindStorageUnavailable, "read source object", readErr)
		}
	}
	tmpFile.Close()

	log.Debug().
		Str("bucket", bucket).
		Str("key", key).
		Int64("bytes", written).
		Str("localPath", tmpFile.Name()).
		Msg("Source object downloaded")

	cleanup := func() {
		if err := os.Remove(tmpFile.Name()); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", tmpFile.Name()).Msg("Failed to remove local artifact")
		} else {
			log.Debug().Str("path", tmpFile.Name()).Msg("Local artifact removed")
		}
	}
	return tmpFile.Name(), cleanup, nil
}

// classifyGetError separates a missing object from transient store trouble.
func classifyGetError(bucket, key string, err error) error {
	var noKey *s3types.NoSuchKey
	var noBucket *s3types.NoSuchBucket
	if errors.As(err, &noKey) || errors.As(err, &noBucket) {
		return fault.Wrap(fault.KindSourceNotFound, "object "+bucket+"/"+key+" does not exist", err)
	}
	return fault.Wrap(fault.KindStorageUnavailable, "source object read failed", err)
}
