package orchestrate

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/techcable-oss/supersrg/internal/classfile"
	"github.com/techcable-oss/supersrg/internal/mapping"
	"github.com/techcable-oss/supersrg/internal/ziputil"
)

// jarQueueCapacity bounds the in-flight (entryName, buffer) queue between
// workers and the single writer task (spec §4.6: "capacity ≈ 256").
const jarQueueCapacity = 256

// jarEntryResult is one decoded-or-passed-through jar entry ready to be
// written by the single writer task. taskID is the worker correlation ID
// surfaced in error diagnostics.
type jarEntryResult struct {
	taskID  uuid.UUID
	name    string
	srcName string
	buf     *bytes.Buffer
}

// RemapJar streams every entry of inPath through mapping m into outPath,
// remapping .class entries' constant pools and renaming them to their new
// internal name; every other entry passes through unchanged (spec §4.6
// "Parallel jar remap"). workers bounds concurrent entry processing;
// queueCapacity bounds the writer handoff channel, falling back to
// jarQueueCapacity when <= 0 (internal/config.Config.QueueCapacity's
// default). The output zip is written by a single goroutine that owns
// the archive.
func RemapJar(ctx context.Context, inPath, outPath string, m *mapping.Mapping, workers, queueCapacity int) error {
	if workers < 1 {
		workers = 1
	}
	if queueCapacity <= 0 {
		queueCapacity = jarQueueCapacity
	}

	zr, err := zip.OpenReader(inPath)
	if err != nil {
		return fmt.Errorf("open jar %s: %w", inPath, err)
	}
	defer zr.Close()

	outFile, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create jar %s: %w", outPath, err)
	}
	defer outFile.Close()
	zw := zip.NewWriter(outFile)

	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(int64(workers))
	results := make(chan jarEntryResult, queueCapacity)
	files := zr.File

	// One short-lived lock guards "pick the next entry + open its reader"
	// (spec §5: input jar readers not natively safe for concurrent entry
	// extraction must serialize that critical section).
	var openMu sync.Mutex

	g.Go(func() error {
		defer close(results)
		var workerGroup errgroup.Group
		for i := range files {
			i := i
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			workerGroup.Go(func() error {
				defer sem.Release(1)
				res, err := processJarEntry(&openMu, files[i], m)
				if err != nil {
					return fmt.Errorf("entry %q: %w", files[i].Name, err)
				}
				select {
				case results <- res:
					return nil
				case <-gctx.Done():
					return gctx.Err()
				}
			})
		}
		return workerGroup.Wait()
	})

	g.Go(func() error {
		used := make(map[string]struct{}, len(files))
		for res := range results {
			name := ziputil.EnsureUniqueName(res.name, used)
			err := ziputil.CopyFromReader(zw, name, bytes.NewReader(res.buf.Bytes()))
			putBuffer(res.buf)
			if err != nil {
				return fmt.Errorf("write entry %q (from %q, task %s): %w", name, res.srcName, res.taskID, err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func processJarEntry(openMu *sync.Mutex, f *zip.File, m *mapping.Mapping) (jarEntryResult, error) {
	taskID := uuid.New()

	openMu.Lock()
	rc, err := f.Open()
	openMu.Unlock()
	if err != nil {
		return jarEntryResult{}, fmt.Errorf("open: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return jarEntryResult{}, fmt.Errorf("read: %w", err)
	}

	if !strings.HasSuffix(f.Name, ".class") {
		buf := getBuffer()
		buf.Write(raw)
		return jarEntryResult{taskID: taskID, name: f.Name, srcName: f.Name, buf: buf}, nil
	}
	return remapClassEntry(taskID, f.Name, raw, m)
}

// remapClassEntry decodes and remaps a single class file's constant pool,
// deriving the output entry name from the class's (possibly remapped)
// internal name.
func remapClassEntry(taskID uuid.UUID, srcName string, raw []byte, m *mapping.Mapping) (jarEntryResult, error) {
	decoder, err := classfile.Decode(raw)
	if err != nil {
		return jarEntryResult{}, fmt.Errorf("decode: %w", err)
	}

	outName := srcName
	if thisClass, err := classfile.ThisClassInternalName(decoder); err == nil {
		if cm, ok := m.ClassMappings(thisClass); ok && cm.HasRemap() {
			outName = cm.RemappedName() + ".class"
		}
	}

	remapper := classfile.NewConstantPoolRemapper(m, decoder)
	buf := getBuffer()
	if err := remapper.Remap(buf); err != nil {
		putBuffer(buf)
		return jarEntryResult{}, fmt.Errorf("remap constant pool: %w", err)
	}
	// The constant pool decoder only spans the pool itself; copy the
	// remainder of the class file (access_flags through attributes)
	// unchanged after the rewritten pool.
	buf.Write(raw[decoder.End():])

	return jarEntryResult{taskID: taskID, name: outName, srcName: srcName, buf: buf}, nil
}
