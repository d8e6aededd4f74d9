package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// TailOptions controls a single Tail call. A negative Offset reads the last
// Limit lines of the file; a non-negative Offset reads forward from that
// byte position. When Follow is set and no lines are pending, Tail blocks up
// to Wait for new output before returning.
type TailOptions struct {
	Offset int64
	Limit  int
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read plus the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads log lines from path according to opts. A missing file is not an
// error; the result simply has no lines and offset zero, so callers can poll
// before the daemon has written anything.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	result := TailResult{Offset: opts.Offset}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			result.Offset = 0
			return result, nil
		}
		return result, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return result, fmt.Errorf("log path %q is a directory", path)
	}

	keep := 0
	if opts.Offset < 0 {
		keep = opts.Limit
	}
	lines, end, err := window(path, opts.Offset, keep)
	if err != nil {
		return result, err
	}
	result.Lines = lines
	result.Offset = end

	if opts.Follow && opts.Wait > 0 && len(lines) == 0 {
		return await(ctx, path, end, opts.Wait)
	}
	return result, nil
}

// Follow tails path starting with the last initialLimit lines (zero meaning
// the whole file), emitting every line through emit, then keeps polling for
// new output until ctx is done. Rotation hand-off happens via the pointer
// file: the daemon repoints spool.log at startup, and offsets past EOF reset
// to the end of the new file.
func Follow(ctx context.Context, path string, initialLimit int, emit func(string)) error {
	offset := int64(-1)
	limit := initialLimit
	if limit < 0 {
		limit = 0
	}
	if limit == 0 {
		offset = 0
	}

	for {
		result, err := Tail(ctx, path, TailOptions{
			Offset: offset,
			Limit:  limit,
			Follow: true,
			Wait:   time.Second,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		for _, line := range result.Lines {
			emit(line)
		}
		offset = result.Offset
		limit = 0

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}

// window reads path once and returns the requested slice of lines together
// with the offset the next call should resume from. A negative offset scans
// the whole file keeping only the trailing keep lines; otherwise lines are
// read forward from offset. A missing file yields no lines and offset zero.
func window(path string, offset int64, keep int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	size, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("measure log file: %w", err)
	}

	fromEnd := offset < 0
	if fromEnd && keep <= 0 {
		return nil, size, nil
	}
	if !fromEnd && offset >= size {
		// An offset past EOF means the pointer moved to a fresh file.
		return nil, size, nil
	}

	start := offset
	if fromEnd {
		start = 0
	}
	if _, err := file.Seek(start, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
		if fromEnd && len(lines) >= 2*keep {
			lines = append(lines[:0], lines[len(lines)-keep:]...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}
	if fromEnd && len(lines) > keep {
		lines = lines[len(lines)-keep:]
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("measure log file: %w", err)
	}
	return lines, end, nil
}

// await polls for lines past offset until some appear, wait elapses, or ctx
// is cancelled.
func await(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.NewTimer(wait)
	defer timeout.Stop()

	result := TailResult{Offset: offset}
	for {
		lines, end, err := window(path, result.Offset, 0)
		if err != nil {
			return result, err
		}
		result.Offset = end
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-timeout.C:
			return result, nil
		case <-ticker.C:
		}
	}
}
