package workload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/smallfile-go/smallfile/internal/barrier"
	"github.com/smallfile-go/smallfile/internal/buffer"
	"github.com/smallfile-go/smallfile/internal/params"
	"github.com/smallfile-go/smallfile/internal/syncfile"
	"github.com/smallfile-go/smallfile/internal/xattrs"
)

// ctimeSizeAttr is the special xattr name reserved for
// record_ctime_size / await-create.
const ctimeSizeAttr = "user.smallfile-ctime-size"

// barrierPoll mirrors the documented 0.3-0.5s poll bound for
// await-create's replication wait, which is not a barrier primitive
// itself but polls the filesystem the same way.
const barrierPoll = 400 * time.Millisecond

func ensureCreated(path string) error {
	err := syncfile.Touch(path)
	if errors.Is(err, syncfile.ErrAlreadyExists) {
		return nil
	}
	return err
}

// ensureDirs pre-creates every directory this worker's file set needs,
// outside the measured window, for the
// operations that write new files.
func (e *Engine) ensureDirs() error {
	switch e.Params.Operation {
	case params.OpCreate, params.OpMkdir, params.OpSwiftPut:
		if e.Params.DirsOnDemand && e.Params.Operation == params.OpCreate {
			return nil
		}
		dirs := e.Gen.AllDirs(e.Params.Iterations)
		for _, top := range e.Gen.TopDirs {
			for _, d := range dirs {
				if err := syncfile.EnsureDir(filepath.Join(top, "file_srcdir", d)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// dispatch runs one iteration of the configured operation against fileNum
// (0-based, matching pathgen's indexing).
func (e *Engine) dispatch(fileNum int) error {
	switch e.Params.Operation {
	case params.OpCreate:
		return e.opCreate(fileNum, os.O_CREATE|os.O_EXCL|os.O_WRONLY)
	case params.OpAppend:
		return e.opAppendOrOverwrite(fileNum, os.O_WRONLY, true)
	case params.OpOverwrite:
		return e.opAppendOrOverwrite(fileNum, os.O_WRONLY, false)
	case params.OpRead:
		return e.opRead(fileNum)
	case params.OpReaddir:
		return e.opReaddir(fileNum)
	case params.OpLsL:
		return e.opLsL(fileNum)
	case params.OpStat:
		_, err := os.Stat(e.filePath(fileNum))
		return err
	case params.OpChmod:
		return os.Chmod(e.filePath(fileNum), 0o644)
	case params.OpSymlink:
		return os.Symlink(e.filePath(fileNum), e.filePath(fileNum)+".sym")
	case params.OpDelete:
		return syncfile.EnsureRemoved(e.filePath(fileNum))
	case params.OpDeleteRenamed:
		return syncfile.EnsureRemoved(e.renamePath(fileNum))
	case params.OpRename:
		return os.Rename(e.filePath(fileNum), e.renamePath(fileNum))
	case params.OpMkdir:
		return syncfile.EnsureDir(e.filePath(fileNum) + ".dir")
	case params.OpRmdir:
		return syncfile.EnsureRemoved(e.filePath(fileNum) + ".dir")
	case params.OpSetxattr:
		return e.opSetxattr(fileNum)
	case params.OpGetxattr:
		return e.opGetxattr(fileNum)
	case params.OpSwiftPut:
		return e.opSwiftPut(fileNum)
	case params.OpSwiftGet:
		return e.opSwiftGet(fileNum)
	case params.OpAwaitCreate:
		return e.opAwaitCreate(fileNum)
	case params.OpCleanup:
		return e.opCleanup(fileNum)
	default:
		return fmt.Errorf("workload: unsupported operation %q", e.Params.Operation)
	}
}

func (e *Engine) filePath(fileNum int) string {
	return e.Gen.FilePath("file_srcdir", fileNum)
}

func (e *Engine) renamePath(fileNum int) string {
	return e.Gen.RenamePath("file_srcdir", "file_dstdir", fileNum)
}

func (e *Engine) recordSize() int {
	return e.effectiveRecordSizeKB() * 1024
}

func (e *Engine) offsetFor(fileNum int) int {
	return buffer.UniqueOffset(e.Gen.WorkerID, int64(fileNum))
}

func (e *Engine) seedPath() string {
	return e.Paths.ThreadReady(e.TmpDir, e.Gen.WorkerID) + ".seed"
}

// writeSeed persists the size (in KB) drawn for the file just created to
// the worker's single seed file, overwriting the previous value. Append
// and overwrite read back that one value for every file, so under the
// exponential distribution they do not reproduce each file's own size.
func (e *Engine) writeSeed(sizeKB int) error {
	return syncfile.WriteBytes(e.seedPath(), []byte(strconv.Itoa(sizeKB)))
}

func (e *Engine) readSeed() (int, error) {
	data, err := os.ReadFile(e.seedPath())
	if err != nil {
		return e.Params.TotalSizeKB, nil //nolint:nilerr // seed file is advisory; fall back to configured size
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func writeInChunks(f *os.File, large []byte, offset, totalBytes, recordSize int, fsync bool) error {
	remaining := totalBytes
	for remaining > 0 {
		n := recordSize
		if n > remaining {
			n = remaining
		}
		chunk := buffer.Slice(large, offset, n)
		if _, err := f.Write(chunk); err != nil {
			return err
		}
		remaining -= n
	}
	if fsync {
		return f.Sync()
	}
	return nil
}

func (e *Engine) opCreate(fileNum int, flags int) error {
	if e.Params.RecordCtimeSize && !e.Caps.XattrReady {
		return fmt.Errorf("workload: record-ctime-size requires xattr support, which this platform lacks")
	}

	path := e.filePath(fileNum)
	f, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, os.ErrNotExist) && e.Params.DirsOnDemand {
		if mkErr := syncfile.EnsureDir(filepath.Dir(path)); mkErr != nil {
			return mkErr
		}
		f, err = os.OpenFile(path, flags, 0o644)
	}
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	sizeKB := e.fileSizeKB()
	if err := e.writeSeed(sizeKB); err != nil {
		return err
	}
	offset := e.offsetFor(fileNum)
	if err := writeInChunks(f, e.largeBuf, offset, sizeKB*1024, e.recordSize(), e.Params.Fsync); err != nil {
		return err
	}

	if e.Params.RecordCtimeSize {
		if err := e.writeCtimeSizeAttr(int(f.Fd()), sizeKB); err != nil {
			return err
		}
	}
	return nil
}

// writeCtimeSizeAttr stamps the file's creation time and size into
// ctimeSizeAttr so a remote await-create poller can measure replication
// latency from creation to the size it expects showing up.
func (e *Engine) writeCtimeSizeAttr(fd int, sizeKB int) error {
	val := fmt.Sprintf("%d,%d", e.Caps.Clock.Now().Unix(), sizeKB)
	return xattrs.Set(fd, ctimeSizeAttr, []byte(val))
}

func (e *Engine) opAppendOrOverwrite(fileNum int, flags int, seekEnd bool) error {
	f, err := os.OpenFile(e.filePath(fileNum), flags, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if seekEnd {
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			return err
		}
	}

	sizeKB, err := e.readSeed()
	if err != nil {
		return err
	}
	offset := e.offsetFor(fileNum)
	return writeInChunks(f, e.largeBuf, offset, sizeKB*1024, e.recordSize(), e.Params.Fsync)
}

func (e *Engine) opRead(fileNum int) error {
	f, err := os.Open(e.filePath(fileNum))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	offset := e.offsetFor(fileNum)
	chunk := make([]byte, e.recordSize())
	total := 0
	for {
		n, err := f.Read(chunk)
		if n > 0 {
			if e.Params.VerifyRead {
				want := buffer.Slice(e.largeBuf, offset, n)
				if string(want) != string(chunk[:n]) {
					return fmt.Errorf("workload: read verification failed at file %d offset %d", fileNum, total)
				}
			}
			total += n
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) opReaddir(fileNum int) error {
	dir := filepath.Dir(e.filePath(fileNum))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("workload: readdir found no entries in %s", dir)
	}
	return nil
}

func (e *Engine) opLsL(fileNum int) error {
	dir := filepath.Dir(e.filePath(fileNum))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, ent := range entries {
		if _, err := ent.Info(); err != nil {
			return err
		}
	}
	return nil
}

func xattrName(i int, swift bool) string {
	if swift {
		return fmt.Sprintf("user.smallfile-all-%d", i)
	}
	return fmt.Sprintf("user.smallfile-%d", i)
}

func (e *Engine) opSetxattr(fileNum int) error {
	if !e.Caps.XattrReady {
		return fmt.Errorf("workload: xattrs unsupported on this platform")
	}
	f, err := os.OpenFile(e.filePath(fileNum), os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	fd := int(f.Fd())
	offset := e.offsetFor(fileNum)
	for i := 0; i < e.Params.XattrCount; i++ {
		val := buffer.Slice(e.largeBuf, offset, e.Params.XattrSize)
		if err := xattrs.Set(fd, xattrName(i, false), val); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) opGetxattr(fileNum int) error {
	if !e.Caps.XattrReady {
		return fmt.Errorf("workload: xattrs unsupported on this platform")
	}
	f, err := os.Open(e.filePath(fileNum))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	fd := int(f.Fd())
	offset := e.offsetFor(fileNum)
	for i := 0; i < e.Params.XattrCount; i++ {
		got, err := xattrs.Get(fd, xattrName(i, false), e.Params.XattrSize)
		if err != nil {
			return err
		}
		if e.Params.VerifyRead && !buffer.Verify(e.largeBuf, offset, got) {
			return fmt.Errorf("workload: getxattr verification failed for %s on file %d", xattrName(i, false), fileNum)
		}
	}
	return nil
}

func (e *Engine) opSwiftPut(fileNum int) error {
	if !e.Caps.XattrReady {
		return fmt.Errorf("workload: swift-put requires xattr/fallocate/fadvise support, which this platform lacks")
	}

	tmpPath := e.filePath(fileNum) + ".tmp"
	finalPath := e.filePath(fileNum)

	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	sizeKB := e.fileSizeKB()
	if err := e.writeSeed(sizeKB); err != nil {
		_ = f.Close()
		return err
	}
	totalBytes := sizeKB * 1024

	if err := xattrs.Fallocate(int(f.Fd()), int64(totalBytes)); err != nil {
		_ = f.Close()
		return err
	}

	offset := e.offsetFor(fileNum)
	if err := writeInChunks(f, e.largeBuf, offset, totalBytes, e.recordSize(), e.Params.Fsync); err != nil {
		_ = f.Close()
		return err
	}

	fd := int(f.Fd())
	for i := 0; i < e.Params.XattrCount; i++ {
		val := buffer.Slice(e.largeBuf, offset, e.Params.XattrSize)
		if err := xattrs.Set(fd, xattrName(i, true), val); err != nil {
			_ = f.Close()
			return err
		}
	}
	if e.Params.RecordCtimeSize {
		if err := e.writeCtimeSizeAttr(fd, sizeKB); err != nil {
			_ = f.Close()
			return err
		}
	}
	if err := xattrs.DropCache(fd, 0, int64(totalBytes)); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, finalPath)
}

func (e *Engine) opSwiftGet(fileNum int) error {
	if err := e.opRead(fileNum); err != nil {
		return err
	}
	if e.Params.XattrCount == 0 || !e.Caps.XattrReady {
		return nil
	}
	f, err := os.Open(e.filePath(fileNum))
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	fd := int(f.Fd())
	for i := 0; i < e.Params.XattrCount; i++ {
		if _, err := xattrs.Get(fd, xattrName(i, true), e.Params.XattrSize); err != nil {
			return err
		}
	}
	return nil
}

// opAwaitCreate polls for a file replicated asynchronously from another
// host, then, when xattrs are available, polls until its ctime/size
// xattr is readable and the file has reached the recorded size. It does
// not compute or record the replication latency.
func (e *Engine) opAwaitCreate(fileNum int) error {
	path := e.filePath(fileNum)
	for {
		if info, err := os.Stat(path); err == nil {
			_ = info
			break
		}
		if barrier.Aborted(e.Paths) {
			return ErrAborted
		}
		e.Caps.Sleeper.Sleep(barrierPoll)
	}

	if !e.Caps.XattrReady {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	for {
		val, err := xattrs.Get(int(f.Fd()), ctimeSizeAttr, 64)
		if err == nil {
			parts := strings.SplitN(strings.TrimRight(string(val), "\x00"), ",", 2)
			if len(parts) == 2 {
				if wantSize, convErr := strconv.ParseInt(parts[1], 10, 64); convErr == nil {
					if info, statErr := f.Stat(); statErr == nil && info.Size() >= wantSize*1024 {
						return nil
					}
				}
			}
		}
		if barrier.Aborted(e.Paths) {
			return ErrAborted
		}
		e.Caps.Sleeper.Sleep(barrierPoll)
	}
}

// opCleanup idempotently removes this file's artifacts: the file and its
// .tmp, .sym, .dir and renamed variants. Directories are left in place.
func (e *Engine) opCleanup(fileNum int) error {
	for _, p := range []string{
		e.filePath(fileNum),
		e.filePath(fileNum) + ".tmp",
		e.filePath(fileNum) + ".sym",
		e.filePath(fileNum) + ".dir",
		e.renamePath(fileNum),
	} {
		if err := syncfile.EnsureRemoved(p); err != nil {
			return err
		}
	}
	return nil
}
