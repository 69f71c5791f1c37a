// Package json provides a JSON file transcript backend.
//
// The whole list lives in one file named after the storage key. Reads are
// validated against a JSON schema before decoding; writes go to a temporary
// file that is renamed into place. A file that fails validation is moved
// aside to <key>.json.corrupt on the next save, keeping the entries that
// still validate.
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	pkgerrors "github.com/AltairaLabs/PromptKiosk/pkg/errors"
	"github.com/AltairaLabs/PromptKiosk/runtime/logger"
	"github.com/AltairaLabs/PromptKiosk/runtime/persistence"
	"github.com/AltairaLabs/PromptKiosk/runtime/transcript"
)

const (
	component = "persistence.json"
	jsonExt   = ".json"
	filePerm  = 0o600
	dirPerm   = 0o750
)

// CorruptSuffix is appended to the file name when invalid content is moved aside.
const CorruptSuffix = ".corrupt"

var _ persistence.Backend = (*Backend)(nil)

// ErrInvalidContent is the cause reported when the file does not match the schema.
var ErrInvalidContent = errors.New("stored transcripts do not match schema")

var schemaLoader = gojsonschema.NewStringLoader(transcriptsSchema)

// Backend stores transcripts in <dir>/<key>.json.
type Backend struct {
	path string
	log  *slog.Logger
	mu   sync.Mutex
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used to report recovered content. The default
// is logger.DefaultLogger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Backend) {
		b.log = l
	}
}

// New creates a backend writing under dir. An empty key means persistence.DefaultKey.
func New(dir, key string, opts ...Option) *Backend {
	if key == "" {
		key = persistence.DefaultKey
	}
	b := &Backend{path: filepath.Join(dir, key+jsonExt)}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.DefaultLogger
	}
	b.log = b.log.With("component", component)
	return b
}

// Path returns the file the backend reads and writes.
func (b *Backend) Path() string {
	return b.path
}

// Load reads and validates the file. A missing file is an empty list.
func (b *Backend) Load(_ context.Context) ([]transcript.StoredTranscript, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.load()
}

func (b *Backend) load() ([]transcript.StoredTranscript, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []transcript.StoredTranscript{}, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Read", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []transcript.StoredTranscript{}, nil
	}

	if err := validate(data); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Validate", err).
			WithDetails(map[string]any{"path": b.path})
	}

	var list []transcript.StoredTranscript
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Decode",
			fmt.Errorf("%w: %v", ErrInvalidContent, err))
	}
	return list, nil
}

// salvage returns the entries of the file that validate on their own.
func (b *Backend) salvage() []transcript.StoredTranscript {
	data, err := os.ReadFile(b.path)
	if err != nil {
		return nil
	}
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil
	}

	kept := make([]transcript.StoredTranscript, 0, len(raws))
	for _, raw := range raws {
		entry := append(append([]byte{'['}, raw...), ']')
		if validate(entry) != nil {
			continue
		}
		var st transcript.StoredTranscript
		if err := json.Unmarshal(raw, &st); err != nil {
			continue
		}
		kept = append(kept, st)
	}
	return kept
}

// quarantine moves the invalid file aside and returns the entries worth keeping.
func (b *Backend) quarantine(ctx context.Context, cause error) ([]transcript.StoredTranscript, error) {
	kept := b.salvage()
	aside := b.path + CorruptSuffix
	if err := os.Rename(b.path, aside); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Quarantine", err)
	}
	b.log.ErrorContext(ctx, "stored transcripts were invalid, moved aside",
		"error", cause, "moved_to", aside, "kept", len(kept))
	return kept, nil
}

func validate(data []byte) error {
	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", ErrInvalidContent, strings.Join(msgs, "; "))
	}
	return nil
}

// Prepend writes t ahead of the stored list. Invalid content is moved aside
// (keeping the entries that still validate) so it does not block new saves.
// Any other read failure aborts the write.
func (b *Backend) Prepend(ctx context.Context, t transcript.StoredTranscript) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	existing, err := b.load()
	if err != nil {
		if !errors.Is(err, ErrInvalidContent) {
			return err
		}
		if existing, err = b.quarantine(ctx, err); err != nil {
			return err
		}
	}
	return b.write(append([]transcript.StoredTranscript{t}, existing...))
}

// Clear removes the file.
func (b *Backend) Clear(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := os.Remove(b.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Clear", err)
	}
	return nil
}

func (b *Backend) write(list []transcript.StoredTranscript) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Encode", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Write", err)
	}

	tmp, err := os.CreateTemp(dir, ".transcripts-*")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Write", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Write", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Write", err)
	}
	if err := tmp.Close(); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Write", err)
	}
	if err := os.Rename(tmpName, b.path); err != nil {
		return pkgerrors.Wrap(pkgerrors.ErrStorage, component, "Write", err)
	}
	return nil
}
