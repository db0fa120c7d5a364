// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package bdd

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/dustin/go-humanize"

	"github.com/dzpbip/pbip-checker/internal/clausestore"
)

// bddzero and bddone are the two constant nodes, shared by every Manager:
// internally they are always node ids 0 and 1.
var bddzero, bddone Node

func init() {
	zero, one := 0, 1
	bddzero = &zero
	bddone = &one
}

// gcstat stores status information about garbage collections. We use a stack
// (slice) of snapshots to record the sequence of GCs during a computation.
type gcstat struct {
	setfinalizers    uint64    // Total number of external references to BDD nodes
	calledfinalizers uint64    // Number of external references that were freed
	history          []gcpoint // Snapshot of GC stats at each occurrence
}

type gcpoint struct {
	nodes            int // Total number of allocated nodes in the nodetable
	freenodes        int // Number of free nodes in the nodetable
	setfinalizers    int // Total number of external references to BDD nodes
	calledfinalizers int // Number of external references that were freed
}

// Manager owns a Reduced Ordered BDD's unique table, operation caches, and
// the clause store used to witness every node it allocates. There is one
// Manager per check (spec.md §5: a single BDD manager, shared by every
// component).
type Manager struct {
	sync.RWMutex
	nodes         []huddnode         // List of all the BDD nodes. Constants are always kept at index 0 and 1
	unique        map[nodeKey]int    // Unicity table, used to associate each triplet to a single node
	freenum       int                // Number of free nodes
	freepos       int                // First free node
	produced      int                // Total number of new nodes ever produced
	nodefinalizer interface{}        // Finalizer used to decrement the ref count of external references
	uniqueAccess  int                // accesses to the unique node table
	uniqueHit     int                // entries actually found in the unique node table
	uniqueMiss    int                // entries not found in the unique node table
	gcstat                           // Information about garbage collections
	configs                          // Configurable parameters

	varnum   int32    // Number of declared variables
	varset   [][2]int // varset[i] == (node for var i, node for !var i)
	refstack []int    // Nodes currently being built, protected from GC
	error    error    // Sticky error flag

	*applycache
	*itecache
	*quantcache
	*appexcache
	*replacecache

	store      *clausestore.Store // Clause store receiving the defining clauses of new nodes
	defClauses map[int]witness    // HD/LD/HU/LU clause ids of every node with a non-nil store
}

// witness records the clause store ids of a node's four defining clauses,
// so that the justification recursions in construct.go can cite them as
// antecedents without re-deriving them. A zero field means that particular
// clause was a structural tautology and was never emitted (clausestore.
// TautologyID is itself 0, so these compose directly as antecedents).
type witness struct {
	hd, ld, hu, lu int
}

// New returns a new Manager with varnum variables, whose every newly
// allocated node emits its four defining clauses through store. A nil store
// is legal: the manager still builds and reduces nodes but the defining
// clauses are simply not recorded (useful for tests that only care about BDD
// shape, not about the proof).
//
// It is possible to set optional (configuration) parameters, such as the
// size of the initial node table (Nodesize) or the size for caches
// (Cachesize), using configs functions. The initial number of nodes is not
// critical since the table will be resized whenever there are too few nodes
// left after a garbage collection, but it does have some impact on the
// efficiency of the operations.
func New(varnum int, store *clausestore.Store, options ...func(*configs)) (*Manager, error) {
	b := &Manager{}
	if (varnum < 1) || (varnum > int(_MAXVAR)) {
		b.seterror("bad number of variable (%d)", varnum)
		return nil, b.error
	}
	config := makeconfigs(varnum)
	for _, f := range options {
		f(config)
	}
	b.store = store
	b.defClauses = make(map[int]witness)
	b.varnum = int32(varnum)
	if _LOGLEVEL > 0 {
		log.Printf("set varnum to %d\n", b.varnum)
	}
	b.varset = make([][2]int, varnum)
	b.refstack = make([]int, 0, 2*varnum+4)
	b.initref()
	b.error = nil
	b.configs = *config

	nodesize := config.nodesize
	b.nodes = make([]huddnode, nodesize)
	for k := range b.nodes {
		b.nodes[k] = huddnode{level: 0, low: -1, high: k + 1, refcou: 0}
	}
	b.nodes[nodesize-1].high = 0
	b.unique = make(map[nodeKey]int, nodesize)
	// creating bddzero and bddone; we never add them to the unique table
	b.nodes[0] = huddnode{level: int32(config.varnum), low: 0, high: 0, refcou: _MAXREFCOUNT}
	b.nodes[1] = huddnode{level: int32(config.varnum), low: 1, high: 1, refcou: _MAXREFCOUNT}
	b.freepos = 2
	b.freenum = len(b.nodes) - 2
	for k := 0; k < config.varnum; k++ {
		v0 := b.makenode(int32(k), 0, 1)
		if v0 < 0 {
			b.seterror("cannot allocate new variable %d in New", k)
			return nil, b.error
		}
		b.nodes[v0].refcou = _MAXREFCOUNT
		b.pushref(v0)
		v1 := b.makenode(int32(k), 1, 0)
		if v1 < 0 {
			b.seterror("cannot allocate new variable %d in New", k)
			return nil, b.error
		}
		b.nodes[v1].refcou = _MAXREFCOUNT
		b.popref(1)
		b.varset[k] = [2]int{v0, v1}
	}
	b.gcstat.history = []gcpoint{}
	b.nodefinalizer = func(n *int) {
		b.Lock()
		defer b.Unlock()
		if _DEBUG {
			atomic.AddUint64(&(b.gcstat.calledfinalizers), 1)
			if _LOGLEVEL > 2 {
				log.Printf("dec refcou %d\n", *n)
			}
		}
		b.nodes[*n].refcou--
	}
	b.cacheinit(config)
	return b, nil
}

// Buddy returns a Set wrapping a Manager configured with the given node and
// cache table sizes and no clause store, for use in tests that exercise BDD
// shape only.
func Buddy(nodesize, cachesize int) Set {
	b, err := New(1, nil, Nodesize(nodesize), Cachesize(cachesize))
	if err != nil {
		panic(err)
	}
	return Set{BDD: b}
}

// checkptr validates that n refers to a live, allocated node.
func (b *Manager) checkptr(n Node) error {
	if n == nil {
		return fmt.Errorf("nil node")
	}
	if *n < 0 || *n >= len(b.nodes) {
		return fmt.Errorf("index out of range (%d)", *n)
	}
	if *n > 1 && b.nodes[*n].low == -1 {
		return fmt.Errorf("unallocated node (%d)", *n)
	}
	return nil
}

// Varnum returns the number of defined variables.
func (b *Manager) Varnum() int {
	return int(b.varnum)
}

// Ithvar returns a BDD representing the i'th variable on success. The
// requested variable must be in the range [0..Varnum).
func (b *Manager) Ithvar(i int) Node {
	if i < 0 || i >= int(b.varnum) {
		return b.seterror("unknown variable used in Ithvar (%d)", i)
	}
	return b.retnode(b.varset[i][0])
}

// NIthvar returns a BDD representing the negation of the i'th variable. See
// Ithvar for further info.
func (b *Manager) NIthvar(i int) Node {
	if i < 0 || i >= int(b.varnum) {
		return b.seterror("unknown variable used in NIthvar (%d)", i)
	}
	return b.retnode(b.varset[i][1])
}

// True returns the Node for the constant true.
func (b *Manager) True() Node {
	return bddone
}

// False returns the Node for the constant false.
func (b *Manager) False() Node {
	return bddzero
}

// From returns a (constant) Node from a boolean value.
func (b *Manager) From(v bool) Node {
	if v {
		return bddone
	}
	return bddzero
}

// Low returns the false branch of a BDD or nil if there is an error.
func (b *Manager) Low(n Node) Node {
	if err := b.checkptr(n); err != nil {
		return b.seterror("wrong operand in call to Low; %s", err)
	}
	return b.retnode(b.nodes[*n].low)
}

// High returns the true branch of a BDD or nil if there is an error.
func (b *Manager) High(n Node) Node {
	if err := b.checkptr(n); err != nil {
		return b.seterror("wrong operand in call to High; %s", err)
	}
	return b.retnode(b.nodes[*n].high)
}

// *************************************************************************
// refstack management; used to prevent nodes currently being built (e.g.
// transient nodes built during an apply) from being reclaimed during GC.

func (b *Manager) initref() {
	b.refstack = b.refstack[:0]
}

func (b *Manager) pushref(n int) int {
	b.refstack = append(b.refstack, n)
	return n
}

func (b *Manager) popref(a int) {
	b.refstack = b.refstack[:len(b.refstack)-a]
}

// AddRef increases the reference count on node n and returns n so that calls
// can be easily chained together. A call to AddRef can never raise an error,
// even if we access an unused node or a value outside the range of the BDD.
func (b *Manager) AddRef(n Node) Node {
	if *n < 2 || *n >= len(b.nodes) {
		return n
	}
	if b.nodes[*n].low == -1 {
		return n
	}
	if b.nodes[*n].refcou < _MAXREFCOUNT {
		b.nodes[*n].refcou++
	}
	return n
}

// DelRef decreases the reference count on a node and returns n so that calls
// can be easily chained together. A call to DelRef can never raise an error,
// even if we access an unused node or a value outside the range of the BDD.
func (b *Manager) DelRef(n Node) Node {
	if *n >= len(b.nodes) {
		return n
	}
	if b.nodes[*n].low == -1 {
		return n
	}
	if b.nodes[*n].refcou <= 0 {
		return n
	}
	if b.nodes[*n].refcou < _MAXREFCOUNT {
		b.nodes[*n].refcou--
	}
	return n
}

// *************************************************************************

// SetVarnum sets the number of BDD variables. It may be called more than
// once, but only to increase the number of variables.
func (b *Manager) SetVarnum(num int) error {
	oldvarnum := b.varnum
	inum := int32(num)
	if (inum < 1) || (inum > _MAXVAR) {
		b.seterror("bad number of variable (%d) in SetVarnum", inum)
		return b.error
	}
	if inum < b.varnum {
		b.seterror("trying to decrease the number of variables in SetVarnum (from %d to %d)", b.varnum, inum)
		return b.error
	}
	if inum == b.varnum {
		return b.error
	}

	tmpvarset := b.varset
	b.varset = make([][2]int, inum)
	copy(b.varset, tmpvarset)

	// Constants always have the highest level.
	b.nodes[0].level = inum
	b.nodes[1].level = inum

	b.refstack = make([]int, 0, 2*inum+4)
	b.initref()
	for ; b.varnum < inum; b.varnum++ {
		v0 := b.makenode(b.varnum, 0, 1)
		if v0 < 0 {
			b.varnum = oldvarnum
			b.seterror("cannot allocate new variable %d in SetVarnum; %s", b.varnum, b.error)
			return b.error
		}
		b.pushref(v0)
		v1 := b.makenode(b.varnum, 1, 0)
		if v1 < 0 {
			b.varnum = oldvarnum
			b.seterror("cannot allocate new variable %d in SetVarnum; %s", b.varnum, b.error)
			return b.error
		}
		b.popref(1)
		b.varset[b.varnum] = [2]int{v0, v1}
		b.nodes[b.varset[b.varnum][0]].refcou = _MAXREFCOUNT
		b.nodes[b.varset[b.varnum][1]].refcou = _MAXREFCOUNT
	}

	// We also need to resize the quantification cache
	b.quantcache.quantset = make([]int32, b.varnum)
	b.quantcache.quantsetID = 0

	if _LOGLEVEL > 0 {
		log.Printf("set varnum to %d\n", b.varnum)
	}
	return nil
}

// ExtVarnum extends the current number of allocated BDD variables with num
// extra variables.
func (b *Manager) ExtVarnum(num int) error {
	if (num < 0) || (num > 0x3FFFFFFF) {
		b.seterror("bad choice of value (%d) when extending varnum in ExtVarnum", num)
		return b.error
	}
	return b.SetVarnum(int(b.varnum) + num)
}

// *************************************************************************

// Scanset returns the set of variables (levels) found when following the
// high branch of node n. This is the dual of function Makeset. The result
// may be nil if there is an error and it is sorted following the natural
// order between levels.
func (b *Manager) Scanset(n Node) []int {
	if b.checkptr(n) != nil {
		return nil
	}
	if *n < 2 {
		return []int{}
	}
	res := []int{}
	for i := *n; i > 1; i = b.nodes[i].high {
		res = append(res, int(b.nodes[i].level))
	}
	return res
}

// Makeset returns a node corresponding to the conjunction (the cube) of all
// the variables in varset, in their positive form. It is such that
// Scanset(Makeset(a)) == a. It returns False and sets the error condition in
// b if one of the variables is outside the scope of the BDD.
func (b *Manager) Makeset(varset []int) Node {
	res := bddone
	for _, level := range varset {
		tmp := b.Apply(res, b.Ithvar(level), OPand)
		if b.error != nil {
			return bddzero
		}
		res = tmp
	}
	return res
}

// *************************************************************************

// Stats returns information about the manager's node table, caches and
// garbage collection history.
func (b *Manager) Stats() string {
	b.RLock()
	defer b.RUnlock()
	res := fmt.Sprintf("Varnum:     %d\n", b.varnum)
	res += fmt.Sprintf("Allocated:  %d (%s)\n", len(b.nodes), humanize.Bytes(uint64(len(b.nodes))*uint64(unsafe.Sizeof(huddnode{}))))
	res += fmt.Sprintf("Produced:   %d\n", b.produced)
	r := (float64(b.freenum) / float64(len(b.nodes))) * 100
	res += fmt.Sprintf("Free:       %d  (%.3g %%)\n", b.freenum, r)
	res += fmt.Sprintf("Used:       %d  (%.3g %%)\n", len(b.nodes)-b.freenum, (100.0 - r))
	res += "==============\n"
	res += b.gcstats()
	if _DEBUG {
		res += "==============\n"
		res += b.applycache.String()
		res += b.itecache.String()
		res += b.quantcache.String()
		res += b.appexcache.String()
		res += b.replacecache.String()
	}
	return res
}

func (b *Manager) gcstats() string {
	res := fmt.Sprintf("# of GC:    %d\n", len(b.gcstat.history))
	allocated := int(b.gcstat.setfinalizers)
	reclaimed := int(b.gcstat.calledfinalizers)
	for _, g := range b.gcstat.history {
		allocated += g.setfinalizers
		reclaimed += g.calledfinalizers
	}
	res += fmt.Sprintf("Ext. refs:  %d\n", allocated)
	res += fmt.Sprintf("Reclaimed:  %d\n", reclaimed)
	return res
}

// humanSize formats the size in bytes of count elements of the given
// per-element width, in human-readable form.
func humanSize(count int, width uintptr) string {
	return humanize.Bytes(uint64(count) * uint64(width))
}
