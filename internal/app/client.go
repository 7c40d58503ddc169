package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"go.trai.ch/cloudbuilder/internal/adapters/httpapi"
	"go.trai.ch/cloudbuilder/internal/core/domain"
	"go.trai.ch/cloudbuilder/internal/ui/output"
	"go.trai.ch/cloudbuilder/internal/ui/style"
	"go.trai.ch/zerr"
)

const artifactExt = ".tar.gz"

// BuildOptions configuration for the Build method.
type BuildOptions struct {
	// Server is the base URL of the orchestrator.
	Server     string
	Targets    []string
	Persistent bool
	// FragmentPath is the buildroot package fragment to submit.
	FragmentPath string
	// FilePaths are sent under their base names.
	FilePaths []string
	// Out is where the returned archive is written. Empty means <target>.tar.gz.
	Out      string
	Name     string
	Brand    string
	Category string
}

// Build submits a descriptor to the orchestrator, prints the session progress and
// writes the returned archive.
func (a *App) Build(ctx context.Context, opts BuildOptions) error {
	req, err := readBuildRequest(opts)
	if err != nil {
		return err
	}

	stream, err := httpapi.DialBuild(ctx, opts.Server, req)
	if err != nil {
		return err
	}
	defer func() { _ = stream.Close() }()

	p := newPrinter(a.out)
	var failed error
	for {
		frame, err := stream.Next(ctx)
		if errors.Is(err, io.EOF) {
			return failed
		}
		if err != nil {
			return err
		}

		switch frame.Type {
		case httpapi.FrameLog:
			p.log(frame.Target, frame.Text)
		case httpapi.FrameStatus:
			p.status(frame)
			if frame.Status == string(domain.StatusError) {
				failed = zerr.With(zerr.Wrap(domain.ErrBuildFailed, frame.Error), "target", frame.Target)
			}
		case httpapi.FrameArtifact:
			path := artifactPath(opts.Out, frame.Target)
			if err := os.WriteFile(path, frame.Data, domain.FilePerm); err != nil {
				return zerr.With(zerr.Wrap(err, "failed to write artifact"), "path", path)
			}
			p.line(style.Arrow, style.Iris, "wrote "+path)
		case httpapi.FrameSession:
			p.line(style.Dot, style.Iris, "stored as session "+frame.Session)
		}
	}
}

func readBuildRequest(opts BuildOptions) (httpapi.BuildRequest, error) {
	fragment, err := os.ReadFile(opts.FragmentPath)
	if err != nil {
		return httpapi.BuildRequest{}, zerr.With(zerr.Wrap(err, "failed to read fragment"), "path", opts.FragmentPath)
	}

	files := make(map[string]string, len(opts.FilePaths))
	for _, path := range opts.FilePaths {
		name := filepath.Base(path)
		if _, dup := files[name]; dup {
			return httpapi.BuildRequest{}, zerr.With(zerr.Wrap(domain.ErrInvalidFileName, "duplicate file name"), "file", name)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return httpapi.BuildRequest{}, zerr.With(zerr.Wrap(err, "failed to read file"), "path", path)
		}
		files[name] = string(data)
	}

	return httpapi.BuildRequest{
		Fragment:   string(fragment),
		Files:      files,
		Targets:    opts.Targets,
		Persistent: opts.Persistent,
		Name:       opts.Name,
		Brand:      opts.Brand,
		Category:   opts.Category,
	}, nil
}

// FetchOptions configuration for the Fetch method.
type FetchOptions struct {
	Server  string
	Session string
	Target  string
	// Out is where the archive is written. Empty means <target>.tar.gz.
	Out string
	// Extract unpacks the archive below this directory instead of writing it.
	Extract string
}

// Fetch downloads the stored archive of one target of a persistent chain.
func (a *App) Fetch(ctx context.Context, opts FetchOptions) error {
	data, err := httpapi.FetchChainArtifact(ctx, a.httpClient, opts.Server, opts.Session, opts.Target)
	if err != nil {
		return err
	}

	p := newPrinter(a.out)
	if opts.Extract != "" {
		if err := a.packager.Unpack(bytes.NewReader(data), opts.Extract); err != nil {
			return zerr.With(err, "session", opts.Session)
		}
		p.line(style.Check, style.Green, "extracted "+opts.Target+" into "+opts.Extract)
		return nil
	}

	path := artifactPath(opts.Out, opts.Target)
	if err := os.WriteFile(path, data, domain.FilePerm); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to write artifact"), "path", path)
	}
	p.line(style.Check, style.Green, "wrote "+path)
	return nil
}

func artifactPath(out, target string) string {
	if out != "" {
		return out
	}
	return target + artifactExt
}

type printer struct {
	out *termenv.Output
}

func newPrinter(w io.Writer) *printer {
	return &printer{out: output.New(w)}
}

func (p *printer) status(f httpapi.Frame) {
	switch domain.ChainStatus(f.Status) {
	case domain.StatusStarted:
		p.line(style.Dot, style.Iris, f.Target+" started")
	case domain.StatusFinished:
		p.line(style.Check, style.Green, f.Target+" finished")
	case domain.StatusError:
		msg := f.Error
		if f.Target != "" {
			msg = f.Target + ": " + msg
		}
		p.line(style.Cross, style.Red, msg)
	}
}

func (p *printer) log(target, text string) {
	prefix := p.out.String(target).Foreground(p.out.Color(string(style.Slate)))
	_, _ = fmt.Fprintf(p.out, "%s %s\n", prefix, text)
}

func (p *printer) line(icon string, color lipgloss.Color, msg string) {
	styled := p.out.String(icon + " " + msg).Foreground(p.out.Color(string(color)))
	_, _ = fmt.Fprintln(p.out, styled.String())
}
