// Package archive packs a job's bundle into a gzip-compressed tarball and unpacks it again.
package archive

import (
	"archive/tar"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/zerr"
)

// Packager implements ports.Packager.
type Packager struct{}

// NewPackager creates a new Packager.
func NewPackager() *Packager {
	return &Packager{}
}

// Pack writes <workspace>/<bundle> to w. Entry names are rooted at <bundle>/.
func (p *Packager) Pack(ctx context.Context, job *domain.Job, w io.Writer) error {
	root := filepath.Join(job.Workspace, job.Bundle)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return zerr.With(zerr.Wrap(domain.ErrBundleNotFound, "bundle missing from workspace"), "bundle", job.Bundle)
	}

	gz := gzip.NewWriter(w)
	tw := tar.NewWriter(gz)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return addEntry(tw, job.Workspace, path, d)
	})
	if walkErr != nil {
		return wrapArchive(walkErr, job.Bundle)
	}

	if err := tw.Close(); err != nil {
		return wrapArchive(err, job.Bundle)
	}
	if err := gz.Close(); err != nil {
		return wrapArchive(err, job.Bundle)
	}
	return nil
}

// Stream packs the bundle and hands it to onChunk in blocks of at most domain.ChunkSize bytes.
// The slice passed to onChunk is only valid for the duration of the call.
func (p *Packager) Stream(ctx context.Context, job *domain.Job, onChunk func([]byte) error) error {
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(p.Pack(ctx, job, pw))
	}()
	defer func() { _ = pr.Close() }()

	buf := make([]byte, domain.ChunkSize)
	for {
		n, err := pr.Read(buf)
		if n > 0 {
			if cbErr := onChunk(buf[:n]); cbErr != nil {
				_ = pr.CloseWithError(cbErr)
				return cbErr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Unpack extracts an archive produced by Pack below dest.
func (p *Packager) Unpack(r io.Reader, dest string) error {
	dest, err := filepath.Abs(dest)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrArchiveFailed, "failed to resolve destination"), "cause", err.Error())
	}
	if err := os.MkdirAll(dest, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrArchiveFailed, "failed to create destination"), "cause", err.Error())
	}

	gz, err := gzip.NewReader(r)
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrArchiveFailed, "not a gzip stream"), "cause", err.Error())
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return zerr.With(zerr.Wrap(domain.ErrArchiveFailed, "corrupt archive"), "cause", err.Error())
		}
		if err := extract(tr, hdr, dest); err != nil {
			return err
		}
	}
}

func addEntry(tw *tar.Writer, base, path string, d fs.DirEntry) error {
	info, err := d.Info()
	if err != nil {
		return err
	}

	var link string
	if info.Mode()&fs.ModeSymlink != 0 {
		if link, err = os.Readlink(path); err != nil {
			return err
		}
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return err
	}
	hdr.Name = filepath.ToSlash(rel)
	if d.IsDir() {
		hdr.Name += "/"
	}

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if !info.Mode().IsRegular() {
		return nil
	}

	f, err := os.Open(path) //nolint:gosec // path comes from walking the job's own workspace
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = io.Copy(tw, f)
	return err
}

func extract(tr *tar.Reader, hdr *tar.Header, dest string) error {
	target, err := within(dest, hdr.Name)
	if err != nil {
		return err
	}

	switch hdr.Typeflag {
	case tar.TypeDir:
		return mkdir(target)
	case tar.TypeReg:
		if err := mkdir(filepath.Dir(target)); err != nil {
			return err
		}
		return writeFile(target, tr, hdr.FileInfo().Mode().Perm())
	case tar.TypeSymlink:
		if filepath.IsAbs(hdr.Linkname) {
			return unsafeEntry(hdr.Name)
		}
		if _, err := within(dest, filepath.Join(filepath.Dir(hdr.Name), hdr.Linkname)); err != nil {
			return err
		}
		if err := mkdir(filepath.Dir(target)); err != nil {
			return err
		}
		if err := os.Symlink(hdr.Linkname, target); err != nil {
			return zerr.With(zerr.Wrap(domain.ErrArchiveFailed, "failed to create symlink"), "entry", hdr.Name)
		}
		return nil
	default:
		return nil
	}
}

// within resolves name below dest and rejects anything that would land outside of it.
func within(dest, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", unsafeEntry(name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", unsafeEntry(name)
	}
	return target, nil
}

func mkdir(path string) error {
	if err := os.MkdirAll(path, domain.DirPerm); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrArchiveFailed, "failed to create directory"), "path", path)
	}
	return nil
}

func writeFile(path string, r io.Reader, perm fs.FileMode) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm) //nolint:gosec // checked by within
	if err != nil {
		return zerr.With(zerr.Wrap(domain.ErrArchiveFailed, "failed to create file"), "path", path)
	}
	if _, err := io.Copy(f, r); err != nil { //nolint:gosec // archives come from our own workers
		_ = f.Close()
		return zerr.With(zerr.Wrap(domain.ErrArchiveFailed, "failed to write file"), "path", path)
	}
	if err := f.Close(); err != nil {
		return zerr.With(zerr.Wrap(domain.ErrArchiveFailed, "failed to close file"), "path", path)
	}
	return nil
}

func unsafeEntry(name string) error {
	return zerr.With(zerr.Wrap(domain.ErrUnsafeArchiveEntry, "archive entry escapes destination"), "entry", name)
}

func wrapArchive(err error, bundle string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return zerr.With(zerr.With(zerr.Wrap(domain.ErrArchiveFailed, "failed to pack bundle"), "bundle", bundle), "cause", err.Error())
}
