// Package scenario replays scripted sequences of allocator and diagram
// operations described in YAML documents.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/ddgroups/internal/config"
)

// Op names a scenario step.
type Op string

// Supported step operations.
const (
	OpReserve  Op = "reserve"
	OpRelease  Op = "release"
	OpDissolve Op = "dissolve"
	OpResync   Op = "resync"
	OpReorder  Op = "reorder"
	OpPermute  Op = "permute"
	OpEnable   Op = "enable"
	OpDisable  Op = "disable"
	OpSnapshot Op = "snapshot"
	OpRestore  Op = "restore"
	OpCanShare Op = "can_share"
	OpCheck    Op = "check"
	OpDump     Op = "dump"
)

// Sentinel errors for scenario documents.
var (
	// ErrEmptyDocument indicates a document without steps.
	ErrEmptyDocument = errors.New("scenario has no steps")
	// ErrUnknownName indicates a step referring to a handle or snapshot name never bound.
	ErrUnknownName = errors.New("unknown name")
	// ErrDuplicateName indicates a reserve step rebinding a live handle name.
	ErrDuplicateName = errors.New("handle name already bound")
	// ErrUnknownOp indicates a step with an unsupported op.
	ErrUnknownOp = errors.New("unknown op")
	// ErrExpectation indicates a step whose outcome differs from its expectation.
	ErrExpectation = errors.New("expectation not met")
)

// Document is a decoded scenario file.
type Document struct {
	Name   string           `yaml:"name"`
	Config config.Overrides `yaml:"config"`
	Steps  []Step           `yaml:"steps"`
}

// Step is one operation of a scenario. Fields irrelevant to the op are ignored.
type Step struct {
	Op Op `yaml:"op"`
	// Handle names the reservation a step creates or consumes. Snapshot and
	// restore use it as the snapshot name.
	Handle string  `yaml:"handle"`
	Level  *int    `yaml:"level"`
	Size   int     `yaml:"size"`
	Chunk  int     `yaml:"chunk"`
	Share  bool    `yaml:"share"`
	Levels []int   `yaml:"levels"`
	Method string  `yaml:"method"`
	Expect *Expect `yaml:"expect"`
}

// Expect lists optional assertions on a step's outcome.
type Expect struct {
	Low       *int  `yaml:"low"`
	Destroyed *bool `yaml:"destroyed"`
	Share     *bool `yaml:"share"`
	Conflict  *bool `yaml:"conflict"`
}

// level returns the requested level, -1 (anywhere) when unset.
func (s *Step) level() int {
	if s.Level == nil {
		return -1
	}

	return *s.Level
}

// chunk returns the requested chunk size, 1 when unset.
func (s *Step) chunk() int {
	if s.Chunk == 0 {
		return 1
	}

	return s.Chunk
}

// Load reads, validates and decodes the scenario at path.
func Load(path string) (*Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	validateErr := Validate(raw)
	if validateErr != nil {
		return nil, fmt.Errorf("%s: %w", path, validateErr)
	}

	return Decode(bytes.NewReader(raw))
}

// Decode parses a scenario document. Unknown fields are rejected.
func Decode(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document

	decodeErr := dec.Decode(&doc)
	if decodeErr != nil {
		if errors.Is(decodeErr, io.EOF) {
			return nil, ErrEmptyDocument
		}

		return nil, fmt.Errorf("decode scenario: %w", decodeErr)
	}

	if len(doc.Steps) == 0 {
		return nil, ErrEmptyDocument
	}

	return &doc, nil
}
