// Package gitstore provides a Git plumbing-based implementation of the dorae repositories.
package gitstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
	"gopkg.in/yaml.v3"

	"github.com/dorae/dorae/internal/domain"
	"github.com/dorae/dorae/internal/infra/crypto"
)

// Store keeps every document as a YAML blob referenced by its own ref.
//
// Data structure:
//
//	refs/<namespace>/
//	  initialized → blob marker
//	  tasks/<id>  → blob (task YAML, updates included)
//	  agents/<id> → blob (agent YAML, notes included)
//	  timers/<id> → blob (timer job YAML)
//	  snapshots/<seq> → tree {tasks/, agents/, timers/}
//
// With a sealer every blob is stored encrypted.
type Store struct {
	repo      *git.Repository
	ids       domain.IDGenerator
	sealer    *crypto.Sealer
	namespace string
	mu        sync.RWMutex
}

// Document kinds, used as ref path segments.
const (
	kindTasks  = "tasks"
	kindAgents = "agents"
	kindTimers = "timers"
)

var kinds = []string{kindTasks, kindAgents, kindTimers}

// Open opens the bare repository at path, creating it if it does not exist.
func Open(path, namespace string, ids domain.IDGenerator) (*Store, error) {
	repo, err := git.PlainOpen(path)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0o750); mkErr != nil {
			return nil, fmt.Errorf("create store directory: %w", mkErr)
		}
		repo, err = git.PlainInit(path, true)
	}
	if err != nil {
		return nil, fmt.Errorf("open git repository: %w", err)
	}
	return NewWithRepo(repo, namespace, ids), nil
}

// NewWithRepo creates a new Store with an existing repository instance.
func NewWithRepo(repo *git.Repository, namespace string, ids domain.IDGenerator) *Store {
	if namespace == "" {
		namespace = domain.AppName
	}
	return &Store{repo: repo, namespace: namespace, ids: ids}
}

// WithSealer makes the store encrypt blobs it writes and decrypt blobs it reads.
// Set it before first use; a store written without a sealer cannot be read with one.
func (s *Store) WithSealer(sealer *crypto.Sealer) *Store {
	s.sealer = sealer
	return s
}

// Tasks returns the task repository view of the store.
func (s *Store) Tasks() *TaskStore {
	return &TaskStore{s: s}
}

// Agents returns the agent repository view of the store.
func (s *Store) Agents() *AgentStore {
	return &AgentStore{s: s}
}

// Timers returns the timer repository view of the store.
func (s *Store) Timers() *TimerStore {
	return &TimerStore{s: s}
}

// refPrefix returns the ref prefix for this namespace.
func (s *Store) refPrefix() string {
	return "refs/" + s.namespace + "/"
}

func (s *Store) docRef(kind, id string) plumbing.ReferenceName {
	return plumbing.ReferenceName(s.refPrefix() + kind + "/" + id)
}

func (s *Store) initializedRef() plumbing.ReferenceName {
	return plumbing.ReferenceName(s.refPrefix() + "initialized")
}

func (s *Store) snapshotRef(seq int) plumbing.ReferenceName {
	return plumbing.ReferenceName(fmt.Sprintf("%ssnapshots/%03d", s.refPrefix(), seq))
}

// Initialize writes the initialized marker. It is idempotent.
func (s *Store) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.repo.Reference(s.initializedRef(), true)
	if err == nil {
		return nil
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("check initialized ref: %w", err)
	}

	hash, err := s.writeBlob([]byte("initialized"))
	if err != nil {
		return err
	}
	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(s.initializedRef(), hash)); err != nil {
		return fmt.Errorf("set initialized ref: %w", err)
	}
	return nil
}

// IsInitialized reports whether the initialized marker exists.
func (s *Store) IsInitialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := s.repo.Reference(s.initializedRef(), true)
	return err == nil
}

// readDoc reads the blob behind a document ref. found is false when the ref is absent.
func (s *Store) readDoc(kind, id string) (data []byte, found bool, err error) {
	ref, err := s.repo.Reference(s.docRef(kind, id), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s ref: %w", kind, err)
	}
	data, err = s.readBlob(ref.Hash())
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// writeDoc encodes v as YAML and points the document ref at it.
func (s *Store) writeDoc(kind, id string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", kind, id, err)
	}
	hash, err := s.writeBlob(data)
	if err != nil {
		return err
	}
	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(s.docRef(kind, id), hash)); err != nil {
		return fmt.Errorf("set %s ref: %w", kind, err)
	}
	return nil
}

// removeDoc deletes a document ref and reports whether it existed.
func (s *Store) removeDoc(kind, id string) (bool, error) {
	name := s.docRef(kind, id)
	if _, err := s.repo.Reference(name, true); err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get %s ref: %w", kind, err)
	}
	if err := s.repo.Storer.RemoveReference(name); err != nil {
		return false, fmt.Errorf("remove %s ref: %w", kind, err)
	}
	return true, nil
}

// docRefs returns the refs of one document kind keyed by ID.
func (s *Store) docRefs(kind string) (map[string]plumbing.Hash, error) {
	prefix := s.refPrefix() + kind + "/"
	refs, err := s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	out := make(map[string]plumbing.Hash)
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		if id, ok := strings.CutPrefix(string(ref.Name()), prefix); ok && id != "" {
			out[id] = ref.Hash()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// validRefSegment reports whether id can be used as one ref path component.
func validRefSegment(id string) bool {
	if id == "" || id == "@" || strings.HasPrefix(id, ".") || strings.HasSuffix(id, ".lock") ||
		strings.Contains(id, "..") || strings.Contains(id, "@{") {
		return false
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(" ~^:?*[\\/", r) {
			return false
		}
	}
	return true
}

// newID returns the preset ID when valid, or a generated one.
func (s *Store) newID(kind, preset string) (string, error) {
	id := preset
	if id == "" {
		id = s.ids.NewID()
	}
	if !validRefSegment(id) {
		return "", fmt.Errorf("%w: id %q is not usable as a ref name", domain.ErrInvalidInput, id)
	}
	if _, found, err := s.readDoc(kind, id); err != nil {
		return "", err
	} else if found {
		return "", fmt.Errorf("%s %s: %w", strings.TrimSuffix(kind, "s"), id, domain.ErrDuplicateID)
	}
	return id, nil
}

func (s *Store) writeBlob(data []byte) (plumbing.Hash, error) {
	if s.sealer != nil {
		data = s.sealer.Seal(data)
	}
	obj := s.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	writer, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("create blob writer: %w", err)
	}
	if _, writeErr := writer.Write(data); writeErr != nil {
		_ = writer.Close()
		return plumbing.ZeroHash, fmt.Errorf("write blob: %w", writeErr)
	}
	_ = writer.Close()

	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store blob: %w", err)
	}
	return hash, nil
}

func (s *Store) readBlob(hash plumbing.Hash) ([]byte, error) {
	blob, err := s.repo.BlobObject(hash)
	if err != nil {
		return nil, fmt.Errorf("get blob: %w", err)
	}
	reader, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("read blob: %w", err)
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read blob data: %w", err)
	}
	if s.sealer != nil {
		if data, err = s.sealer.Open(data); err != nil {
			return nil, fmt.Errorf("blob %s: %w", hash, err)
		}
	}
	return data, nil
}

// Snapshot identifies a saved copy of the whole store.
type Snapshot struct {
	Ref string
	Seq int
}

// SaveSnapshot records the current documents as a new snapshot.
func (s *Store) SaveSnapshot(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := 1
	snapshots, err := s.listSnapshotsLocked()
	if err != nil {
		return Snapshot{}, err
	}
	if len(snapshots) > 0 {
		seq = snapshots[len(snapshots)-1].Seq + 1
	}

	var root []object.TreeEntry
	for _, kind := range kinds {
		hash, err := s.buildKindTree(kind)
		if err != nil {
			return Snapshot{}, err
		}
		root = append(root, object.TreeEntry{Name: kind, Mode: filemode.Dir, Hash: hash})
	}
	treeHash, err := s.writeTree(root)
	if err != nil {
		return Snapshot{}, err
	}

	name := s.snapshotRef(seq)
	if err := s.repo.Storer.SetReference(plumbing.NewHashReference(name, treeHash)); err != nil {
		return Snapshot{}, fmt.Errorf("set snapshot ref: %w", err)
	}
	return Snapshot{Ref: string(name), Seq: seq}, nil
}

// ListSnapshots returns every snapshot, oldest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listSnapshotsLocked()
}

// RestoreSnapshot replaces every document with the contents of snapshot seq.
func (s *Store) RestoreSnapshot(ctx context.Context, seq int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ref, err := s.repo.Reference(s.snapshotRef(seq), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("%w: snapshot %d", domain.ErrNotFound, seq)
	}
	if err != nil {
		return fmt.Errorf("get snapshot ref: %w", err)
	}
	root, err := s.repo.TreeObject(ref.Hash())
	if err != nil {
		return fmt.Errorf("get snapshot tree: %w", err)
	}

	for _, kind := range kinds {
		current, err := s.docRefs(kind)
		if err != nil {
			return err
		}
		for id := range current {
			if err := s.repo.Storer.RemoveReference(s.docRef(kind, id)); err != nil {
				return fmt.Errorf("remove %s ref %s: %w", kind, id, err)
			}
		}

		entry, err := root.FindEntry(kind)
		if errors.Is(err, object.ErrEntryNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("find %s in snapshot: %w", kind, err)
		}
		tree, err := s.repo.TreeObject(entry.Hash)
		if err != nil {
			return fmt.Errorf("get %s tree: %w", kind, err)
		}
		for _, e := range tree.Entries {
			if err := s.repo.Storer.SetReference(plumbing.NewHashReference(s.docRef(kind, e.Name), e.Hash)); err != nil {
				return fmt.Errorf("restore %s ref %s: %w", kind, e.Name, err)
			}
		}
	}
	return nil
}

func (s *Store) listSnapshotsLocked() ([]Snapshot, error) {
	prefix := s.refPrefix() + "snapshots/"
	refs, err := s.repo.References()
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}

	var snapshots []Snapshot
	err = refs.ForEach(func(ref *plumbing.Reference) error {
		suffix, ok := strings.CutPrefix(string(ref.Name()), prefix)
		if !ok {
			return nil
		}
		seq, parseErr := strconv.Atoi(suffix)
		if parseErr != nil {
			return nil // Skip foreign refs
		}
		snapshots = append(snapshots, Snapshot{Ref: string(ref.Name()), Seq: seq})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(snapshots, func(a, b Snapshot) int { return a.Seq - b.Seq })
	return snapshots, nil
}

// buildKindTree creates a tree holding every document blob of one kind.
func (s *Store) buildKindTree(kind string) (plumbing.Hash, error) {
	refs, err := s.docRefs(kind)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	entries := make([]object.TreeEntry, 0, len(refs))
	for id, hash := range refs {
		entries = append(entries, object.TreeEntry{Name: id, Mode: filemode.Regular, Hash: hash})
	}
	return s.writeTree(entries)
}

func (s *Store) writeTree(entries []object.TreeEntry) (plumbing.Hash, error) {
	// Sort entries by name for consistent tree hash
	slices.SortFunc(entries, func(a, b object.TreeEntry) int {
		return strings.Compare(a.Name, b.Name)
	})
	tree := &object.Tree{Entries: entries}

	obj := s.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encode tree: %w", err)
	}
	hash, err := s.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("store tree: %w", err)
	}
	return hash, nil
}

var (
	_ domain.TaskRepository   = (*TaskStore)(nil)
	_ domain.AgentRepository  = (*AgentStore)(nil)
	_ domain.TimerRepository  = (*TimerStore)(nil)
	_ domain.StoreInitializer = (*Store)(nil)
)
