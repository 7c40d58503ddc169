package domain

import (
	"bufio"
	"path/filepath"
	"regexp"
	"strings"

	"go.trai.ch/zerr"
)

// BundlesSuffix marks the fragment assignment that declares the package token and its bundle.
const BundlesSuffix = "_BUNDLES"

var validPackageNameRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// BuildDescriptor is the immutable input of one job: the build tool fragment plus the
// files to materialize into the workspace.
type BuildDescriptor struct {
	Fragment string
	Files    map[string]string
	// Package is the token prefixing every variable of the fragment.
	Package string
	// Bundle is the single output directory the build tool produces.
	Bundle string
}

// ParseDescriptor validates a submission and extracts the package token and bundle name.
func ParseDescriptor(fragment string, files map[string]string) (*BuildDescriptor, error) {
	if len(files) == 0 {
		return nil, ErrMissingFiles
	}

	for name := range files {
		if !IsPlainName(name) {
			return nil, zerr.With(zerr.Wrap(ErrInvalidFileName, "rejected descriptor file"), "file", name)
		}
	}

	token, values, ok := findBundles(fragment)
	if !ok || token == "" {
		return nil, ErrMissingPackageName
	}

	if !validPackageNameRegex.MatchString(token) {
		return nil, zerr.With(zerr.Wrap(ErrInvalidPackageName, "rejected descriptor"), "package", token)
	}

	bundles := strings.Fields(values)
	switch {
	case len(bundles) == 0:
		return nil, ErrMissingBundle
	case len(bundles) > 1:
		return nil, zerr.With(zerr.Wrap(ErrMultipleBundles, "rejected descriptor"), "bundles", strings.Join(bundles, " "))
	}

	if !IsPlainName(bundles[0]) {
		return nil, zerr.With(zerr.Wrap(ErrInvalidFileName, "rejected bundle"), "bundle", bundles[0])
	}

	copied := make(map[string]string, len(files))
	for name, content := range files {
		copied[name] = content
	}

	return &BuildDescriptor{
		Fragment: fragment,
		Files:    copied,
		Package:  token,
		Bundle:   bundles[0],
	}, nil
}

// findBundles returns the token and raw value of the first <TOKEN>_BUNDLES assignment.
func findBundles(fragment string) (token, values string, ok bool) {
	scanner := bufio.NewScanner(strings.NewReader(fragment))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "#") {
			continue
		}

		lhs, rhs, found := strings.Cut(line, "=")
		if !found {
			continue
		}

		// Accept make's "+=", ":=" and "?=" forms as well.
		lhs = strings.TrimSpace(strings.TrimRight(lhs, "+:?"))
		name, isBundles := strings.CutSuffix(lhs, BundlesSuffix)
		if !isBundles || strings.ContainsAny(lhs, " \t") {
			continue
		}
		return name, rhs, true
	}
	return "", "", false
}

// FragmentFor rewrites the fragment so every variable carries the job id instead of the
// package token as written. Only occurrences followed by an underscore are replaced.
func (d *BuildDescriptor) FragmentFor(id string) string {
	return strings.ReplaceAll(d.Fragment, d.Package+"_", strings.ToUpper(id)+"_")
}

// IsPlainName reports whether name is usable as a single path element.
func IsPlainName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}
