package domain

import (
	"errors"

	"go.trai.ch/zerr"
)

var (
	// ErrMissingFiles is returned when a descriptor carries no files.
	ErrMissingFiles = zerr.New("Missing files")

	// ErrMissingPackageName is returned when the fragment declares no <TOKEN>_BUNDLES assignment.
	ErrMissingPackageName = zerr.New("missing package name")

	// ErrInvalidPackageName is returned when the package token contains characters
	// other than letters, digits and underscores.
	ErrInvalidPackageName = zerr.New("package name can only contain alphanumeric characters and underscores")

	// ErrMissingBundle is returned when the bundle assignment lists no bundle.
	ErrMissingBundle = zerr.New("missing bundle name")

	// ErrMultipleBundles is returned when the bundle assignment lists more than one bundle.
	ErrMultipleBundles = zerr.New("only one bundle per descriptor is supported")

	// ErrInvalidFileName is returned when a descriptor file or bundle name is not a plain base name.
	ErrInvalidFileName = zerr.New("invalid file name")

	// ErrInvalidCategory is returned when a chain declares an unknown category.
	ErrInvalidCategory = zerr.New("invalid category")

	// ErrNoTargets is returned when a chain is started without targets.
	ErrNoTargets = zerr.New("no targets specified")

	// ErrUnknownTarget is returned when a chain references a target that is not configured.
	ErrUnknownTarget = zerr.New("unknown target")

	// ErrTooManyTargets is returned when a non-persistent chain names more than one target.
	ErrTooManyTargets = zerr.New("a non-persistent build takes exactly one target")

	// ErrJobNotFound is returned when a job id is not registered.
	ErrJobNotFound = zerr.New("job not found")

	// ErrJobBusy is returned when a job already has a running process or an open session.
	ErrJobBusy = zerr.New("job is busy")

	// ErrSessionNotFound is returned when a persisted chain session does not exist.
	ErrSessionNotFound = zerr.New("session not found")

	// ErrArtifactNotFound is returned when a persisted chain session has no archive for a target.
	ErrArtifactNotFound = zerr.New("artifact not found")

	// ErrBundleNotFound is returned when the build left no bundle directory in the workspace.
	ErrBundleNotFound = zerr.New("bundle not found")

	// ErrStorageUnavailable is returned when a workspace cannot be allocated.
	ErrStorageUnavailable = zerr.New("storage unavailable")

	// ErrProcessFailure is returned when the build tool exits with a non-zero status.
	ErrProcessFailure = zerr.New("build process failed")

	// ErrProcessKilled is returned when the build tool was killed before it exited.
	ErrProcessKilled = zerr.New("build process killed")

	// ErrEmptyCommand is returned when the build tool command line is empty.
	ErrEmptyCommand = zerr.New("empty build command")

	// ErrTargetFailed is returned when a chain target aborts.
	ErrTargetFailed = zerr.New("target failed")

	// ErrBuildAborted is returned when a relay session ends without completion.
	ErrBuildAborted = zerr.New("build aborted")

	// ErrProtocolViolation is returned when a relay peer sends an unexpected message.
	ErrProtocolViolation = zerr.New("relay protocol violation")

	// ErrBuildFailed is returned to the caller of a build session that ended with an error frame.
	ErrBuildFailed = zerr.New("build failed")

	// ErrSubmissionRejected is returned when a worker refuses a job submission.
	ErrSubmissionRejected = zerr.New("job submission rejected")

	// ErrWorkerRequestFailed is returned when a worker HTTP request fails.
	ErrWorkerRequestFailed = zerr.New("worker request failed")

	// ErrArchiveFailed is returned when an artifact archive cannot be written or read.
	ErrArchiveFailed = zerr.New("archive operation failed")

	// ErrUnsafeArchiveEntry is returned when an archive entry would escape its destination.
	ErrUnsafeArchiveEntry = zerr.New("archive entry escapes destination")

	// ErrStoreWriteFailed is returned when a chain artifact or metadata record cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write chain store")

	// ErrConfigReadFailed is returned when the config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrConfigInvalid is returned when the loaded configuration fails validation.
	ErrConfigInvalid = zerr.New("invalid configuration")
)

var validationErrors = []error{
	ErrMissingFiles,
	ErrMissingPackageName,
	ErrInvalidPackageName,
	ErrMissingBundle,
	ErrMultipleBundles,
	ErrInvalidFileName,
	ErrInvalidCategory,
	ErrNoTargets,
	ErrUnknownTarget,
	ErrTooManyTargets,
}

var notFoundErrors = []error{
	ErrJobNotFound,
	ErrSessionNotFound,
	ErrArtifactNotFound,
	ErrBundleNotFound,
}

// IsValidation reports whether err was caused by a malformed request.
func IsValidation(err error) bool {
	return isAny(err, validationErrors)
}

// IsNotFound reports whether err was caused by an unknown job, session or artifact.
func IsNotFound(err error) bool {
	return isAny(err, notFoundErrors)
}

// Reason returns the message of the validation or not-found sentinel behind err,
// or fallback when err is of neither kind. It is safe to show to callers.
func Reason(err error, fallback string) string {
	for _, list := range [][]error{validationErrors, notFoundErrors} {
		for _, target := range list {
			if errors.Is(err, target) {
				return target.Error()
			}
		}
	}
	if errors.Is(err, ErrStorageUnavailable) {
		return ErrStorageUnavailable.Error()
	}
	return fallback
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// TargetError reports which chain target aborted and why.
type TargetError struct {
	Target string
	Err    error
}

func (e *TargetError) Error() string {
	return ErrTargetFailed.Error() + ": " + e.Target + ": " + e.Err.Error()
}

// Unwrap exposes both ErrTargetFailed and the underlying cause to errors.Is.
func (e *TargetError) Unwrap() []error {
	return []error{ErrTargetFailed, e.Err}
}
