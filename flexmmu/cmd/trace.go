package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sarchlab/flexmmu/mem/vm"
)

// The operations of a trace.
const (
	OpAccess = "access"
	OpFlush  = "flush"
	OpSync   = "sync"
	OpEvict  = "evict"
)

// The scopes of a flush.
const (
	ScopeVAASID  = "va_asid"
	ScopeVA      = "va"
	ScopeASID    = "asid"
	ScopeHVP     = "hvp"
	ScopeHVPASID = "hvp_asid"
	ScopeAll     = "all"
)

// A Trace maps guest pages and lists the operations to replay.
type Trace struct {
	Pages []PageMapping `yaml:"pages"`
	Ops   []Op          `yaml:"ops"`
}

// A PageMapping is a guest page table entry. Perm is a combination of r, w
// and x.
type PageMapping struct {
	ASID uint16 `yaml:"asid"`
	VA   uint64 `yaml:"va"`
	HVP  uint64 `yaml:"hvp"`
	Perm string `yaml:"perm"`
	Fill *uint8 `yaml:"fill"`
}

// An Op is one step of a trace.
type Op struct {
	Op     string     `yaml:"op"`
	Thread uint32     `yaml:"thread"`
	ASID   uint16     `yaml:"asid"`
	VA     uint64     `yaml:"va"`
	HVP    uint64     `yaml:"hvp"`
	Kind   AccessKind `yaml:"kind"`
	Scope  string     `yaml:"scope"`
	Value  *uint8     `yaml:"value"`
}

// AccessKind reads an access kind by its name.
type AccessKind vm.AccessKind

// UnmarshalYAML decodes load, store or fetch.
func (k *AccessKind) UnmarshalYAML(node *yaml.Node) error {
	switch strings.ToLower(node.Value) {
	case "load", "":
		*k = AccessKind(vm.AccessLoad)
	case "store":
		*k = AccessKind(vm.AccessStore)
	case "fetch":
		*k = AccessKind(vm.AccessFetch)
	default:
		return fmt.Errorf("line %d: unknown access kind %q", node.Line, node.Value)
	}

	return nil
}

// LoadTrace reads a trace file.
func LoadTrace(path string) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return ParseTrace(f)
}

// ParseTrace decodes and checks a trace.
func ParseTrace(r io.Reader) (*Trace, error) {
	trace := &Trace{}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	if err := dec.Decode(trace); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	if err := trace.Validate(); err != nil {
		return nil, err
	}

	return trace, nil
}

// Validate checks every page and operation.
func (t *Trace) Validate() error {
	var errs []error

	mapped := make(map[vm.GVPKey]bool)

	for i, p := range t.Pages {
		if vm.ASID(p.ASID) > vm.MaxASID {
			errs = append(errs, fmt.Errorf("page %d: asid %d too large", i, p.ASID))
			continue
		}

		key := vm.NewGVPKey(p.VA, vm.ASID(p.ASID), vm.AccessLoad)
		if mapped[key] {
			errs = append(errs, fmt.Errorf("page %d: 0x%x is mapped twice", i, p.VA))
		}

		mapped[key] = true

		if _, err := parsePerm(p.Perm); err != nil {
			errs = append(errs, fmt.Errorf("page %d: %w", i, err))
		}
	}

	for i, op := range t.Ops {
		if err := op.validate(); err != nil {
			errs = append(errs, fmt.Errorf("op %d: %w", i, err))
		}
	}

	return errors.Join(errs...)
}

func (op Op) validate() error {
	if vm.ASID(op.ASID) > vm.MaxASID {
		return fmt.Errorf("asid %d too large", op.ASID)
	}

	switch op.Op {
	case OpAccess:
		if op.Value != nil && vm.AccessKind(op.Kind) != vm.AccessStore {
			return errors.New("only a store can write a value")
		}
	case OpSync, OpEvict:
	case OpFlush:
		switch op.Scope {
		case ScopeVAASID, ScopeVA, ScopeASID, ScopeHVP, ScopeHVPASID, ScopeAll:
		default:
			return fmt.Errorf("unknown flush scope %q", op.Scope)
		}
	default:
		return fmt.Errorf("unknown operation %q", op.Op)
	}

	return nil
}

func parsePerm(s string) (vm.Perm, error) {
	var perm vm.Perm

	for _, c := range s {
		switch c {
		case 'r':
			perm |= vm.PermRead
		case 'w':
			perm |= vm.PermWrite
		case 'x':
			perm |= vm.PermExec
		case '-':
		default:
			return 0, fmt.Errorf("unknown permission %q in %q", c, s)
		}
	}

	return perm, nil
}

// PageTable builds the guest page table of the trace.
func (t *Trace) PageTable() vm.PageTable {
	pt := vm.NewPageTable()

	for _, p := range t.Pages {
		perm, _ := parsePerm(p.Perm)

		pt.Insert(vm.Page{
			ASID:  vm.ASID(p.ASID),
			VAddr: p.VA,
			HVP:   vm.HVPOf(p.HVP),
			Perm:  perm,
			Valid: true,
		})
	}

	return pt
}
