// Package report records assertion outcomes in a tree that mirrors nested
// test() blocks.
package report

// Status is the outcome of a single assertion.
type Status string

const (
	StatusPass  Status = "pass"
	StatusFail  Status = "fail"
	StatusError Status = "error"
)

// RootDescriptor names the implicit top-level node.
const RootDescriptor = "root"

// ExpectResult is one recorded assertion.
type ExpectResult struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Node is a test block with its own assertions and nested blocks.
type Node struct {
	Descriptor    string         `json:"descriptor"`
	ExpectResults []ExpectResult `json:"expectResults"`
	Children      []*Node        `json:"children"`
}

func newNode(descriptor string) *Node {
	return &Node{Descriptor: descriptor, ExpectResults: []ExpectResult{}, Children: []*Node{}}
}

// Counts tallies results in n and all of its descendants.
func (n *Node) Counts() (pass, fail, errs int) {
	for _, r := range n.ExpectResults {
		switch r.Status {
		case StatusPass:
			pass++
		case StatusFail:
			fail++
		case StatusError:
			errs++
		}
	}
	for _, c := range n.Children {
		p, f, e := c.Counts()
		pass += p
		fail += f
		errs += e
	}
	return pass, fail, errs
}

// Passed reports whether the subtree has no failures or errors.
func (n *Node) Passed() bool {
	_, fail, errs := n.Counts()
	return fail == 0 && errs == 0
}

// Stack tracks the test block currently receiving results. It always holds
// the root node at its bottom.
type Stack struct {
	nodes []*Node
}

// NewStack returns a stack holding only the root node.
func NewStack() *Stack {
	return &Stack{nodes: []*Node{newNode(RootDescriptor)}}
}

// Root returns the root node.
func (s *Stack) Root() *Node {
	return s.nodes[0]
}

// Depth is 1 when only the root is open.
func (s *Stack) Depth() int {
	return len(s.nodes)
}

// Push opens a nested block.
func (s *Stack) Push(descriptor string) {
	s.nodes = append(s.nodes, newNode(descriptor))
}

// Pop closes the innermost block and attaches it to its parent. The root is
// never popped.
func (s *Stack) Pop() *Node {
	if len(s.nodes) == 1 {
		return nil
	}
	top := s.nodes[len(s.nodes)-1]
	s.nodes = s.nodes[:len(s.nodes)-1]
	parent := s.nodes[len(s.nodes)-1]
	parent.Children = append(parent.Children, top)
	return top
}

// Record appends a result to the innermost open block.
func (s *Stack) Record(status Status, message string) {
	top := s.nodes[len(s.nodes)-1]
	top.ExpectResults = append(top.ExpectResults, ExpectResult{Status: status, Message: message})
}

// ReplaceLast overwrites the most recent result of the innermost block, or
// records a new one if the block is empty.
func (s *Stack) ReplaceLast(status Status, message string) {
	top := s.nodes[len(s.nodes)-1]
	if len(top.ExpectResults) == 0 {
		s.Record(status, message)
		return
	}
	top.ExpectResults[len(top.ExpectResults)-1] = ExpectResult{Status: status, Message: message}
}

// Run executes fn inside a new block named descriptor. A non-nil error from
// fn is recorded as an error result in that block.
func (s *Stack) Run(descriptor string, fn func() error) {
	s.Push(descriptor)
	defer s.Pop()
	if err := fn(); err != nil {
		s.Record(StatusError, err.Error())
	}
}
