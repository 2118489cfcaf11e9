// Package datanode implements chatrelay's durable storage role: the
// on-disk record of every user and chatroom, and the two-phase-commit
// participant surface that keeps that record in agreement with every
// other data node.
package datanode

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/dreamware/chatrelay/internal/storage"
)

const (
	usersFile     = "users.txt"
	chatroomsFile = "chatrooms.txt"
	chatlogsDir   = "chatlogs"
)

// Store is the durable, append-mostly record a data node keeps on disk:
// users.txt and chatrooms.txt are append-only except for the full
// truncating rewrite chatrooms.txt gets on delete, and chatlogs/*.txt are
// pure append-only message logs. An in-memory cache (storage.MemoryStore,
// shared with the rest of this retrieval pack) mirrors both files so
// existence/ownership/credential checks never touch disk on the read
// path.
//
// Thread Safety: all methods are safe for concurrent use. usersFileMu and
// chatroomsFileMu serialize each file's own writes (append or rewrite), and
// chatlogsMu serializes chat-log appends, independently of the in-memory
// cache's own locking.
type Store struct {
	baseDir string
	log     *zap.Logger

	users     *storage.MemoryStore // username -> password
	chatrooms *storage.MemoryStore // chatroom -> owner

	usersFileMu     sync.Mutex
	chatroomsFileMu sync.Mutex
	chatlogsMu      sync.Mutex
}

// Open loads (or creates) the durable store rooted at baseDir, replaying
// users.txt and chatrooms.txt into the in-memory cache.
func Open(baseDir string, log *zap.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Join(baseDir, chatlogsDir), 0o755); err != nil {
		return nil, fmt.Errorf("creating chatlogs dir: %w", err)
	}

	s := &Store{
		baseDir:   baseDir,
		log:       log,
		users:     storage.NewMemoryStore(),
		chatrooms: storage.NewMemoryStore(),
	}

	if err := s.loadInto(usersFile, s.users); err != nil {
		return nil, fmt.Errorf("loading %s: %w", usersFile, err)
	}
	if err := s.loadInto(chatroomsFile, s.chatrooms); err != nil {
		return nil, fmt.Errorf("loading %s: %w", chatroomsFile, err)
	}

	return s, nil
}

// loadInto replays a ":"-separated key:value journal file into mem,
// splitting on the first colon only so a value may itself contain one.
func (s *Store) loadInto(name string, mem *storage.MemoryStore) error {
	f, err := os.OpenFile(filepath.Join(s.baseDir, name), os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			s.log.Warn("skipping malformed journal line", zap.String("file", name), zap.String("line", line))
			continue
		}
		mem.Put(key, []byte(value))
	}
	return scanner.Err()
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	return err
}

// UserExists reports whether username has been registered.
func (s *Store) UserExists(username string) bool {
	_, err := s.users.Get(username)
	return err == nil
}

// VerifyUser reports whether username/password is a valid credential
// pair.
func (s *Store) VerifyUser(username, password string) bool {
	stored, err := s.users.Get(username)
	if err != nil {
		return false
	}
	return string(stored) == password
}

// CreateUser durably records a new user. Callers must have already
// confirmed the username is free — this method does not re-check, since
// by the time a participant applies a committed CREATEUSER transaction,
// every participant agreed the user didn't already exist.
func (s *Store) CreateUser(username, password string) error {
	s.usersFileMu.Lock()
	defer s.usersFileMu.Unlock()

	if err := appendLine(filepath.Join(s.baseDir, usersFile), username+":"+password); err != nil {
		return fmt.Errorf("appending user record: %w", err)
	}
	s.users.Put(username, []byte(password))
	return nil
}

// ChatroomExists reports whether name has been created and not yet
// deleted.
func (s *Store) ChatroomExists(name string) bool {
	_, err := s.chatrooms.Get(name)
	return err == nil
}

// VerifyOwnership reports whether username owns chatroom name.
func (s *Store) VerifyOwnership(name, username string) bool {
	owner, err := s.chatrooms.Get(name)
	if err != nil {
		return false
	}
	return string(owner) == username
}

// CreateChatroom durably records a new chatroom, appending a single
// "name:owner" line (spec §6's on-disk format).
func (s *Store) CreateChatroom(name, owner string) error {
	s.chatroomsFileMu.Lock()
	defer s.chatroomsFileMu.Unlock()

	if err := appendLine(filepath.Join(s.baseDir, chatroomsFile), name+":"+owner); err != nil {
		return fmt.Errorf("appending chatroom record: %w", err)
	}
	s.chatrooms.Put(name, []byte(owner))
	return nil
}

// DeleteChatroom removes name from the durable record by rewriting
// chatrooms.txt with every surviving entry, since chatrooms.txt carries
// no tombstone format (spec §4.2/§6).
func (s *Store) DeleteChatroom(name string) error {
	s.chatroomsFileMu.Lock()
	defer s.chatroomsFileMu.Unlock()

	s.chatrooms.Delete(name)

	path := filepath.Join(s.baseDir, chatroomsFile)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("creating rewrite temp file: %w", err)
	}

	for _, room := range s.chatrooms.List() {
		owner, err := s.chatrooms.Get(room)
		if err != nil {
			continue
		}
		if _, err := fmt.Fprintf(f, "%s:%s\n", room, owner); err != nil {
			f.Close()
			return fmt.Errorf("writing rewrite temp file: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing rewrite temp file: %w", err)
	}
	return os.Rename(tmp, path)
}

// KnownChatrooms returns every chatroom name currently on durable record,
// in no particular order. A data node replays this list to the
// coordinator on registration so rooms it already knows about can be
// re-established on a chat node.
func (s *Store) KnownChatrooms() []string {
	return s.chatrooms.List()
}

// LogMessage appends one already-formatted chat line to
// chatlogs/<chatroom>.txt.
func (s *Store) LogMessage(chatroom, line string) error {
	s.chatlogsMu.Lock()
	defer s.chatlogsMu.Unlock()

	path := filepath.Join(s.baseDir, chatlogsDir, chatroom+".txt")
	if err := appendLine(path, line); err != nil {
		return fmt.Errorf("appending chat log line: %w", err)
	}
	return nil
}
