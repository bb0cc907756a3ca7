// Package scheduler orders callbacks into batches that can run concurrently.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrCycle is returned (wrapped in *CycleError) when RunAfter edges form a cycle.
	ErrCycle = errors.New("dependency cycle")

	// ErrMultipleBeforeAll is returned when more than one task asks to run first.
	ErrMultipleBeforeAll = errors.New("more than one before-all callback")

	// ErrConflictingOptions is returned when a before-all task also declares
	// RunAfter or AfterAll.
	ErrConflictingOptions = errors.New("before-all cannot be combined with run-after or after-all")

	// ErrUnknownDependency is returned by registries when RunAfter names a
	// callback that was never registered.
	ErrUnknownDependency = errors.New("unknown run-after dependency")

	// ErrDuplicateTask is returned when two tasks share a name.
	ErrDuplicateTask = errors.New("duplicate task name")
)

// CycleError carries the task names forming a cycle, first name repeated last.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("%v: %s", ErrCycle, strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycle }

// Task is the scheduling view of one selected callback.
type Task struct {
	Name      string
	BeforeAll bool
	AfterAll  bool
	RunAfter  []string
}

// Plan orders tasks into groups.
//
// Description:
//
//	Every task appears in exactly one group. All RunAfter dependencies of a
//	task are in earlier groups. Within a group tasks keep their declaration
//	order. RunAfter names that are not in tasks are ignored.
//
// Outputs:
//
//	[][]Task - Groups to run one after another.
//	error - ErrMultipleBeforeAll, ErrConflictingOptions, ErrDuplicateTask or *CycleError.
func Plan(tasks []Task) ([][]Task, error) {
	g, err := newGraph(tasks)
	if err != nil {
		return nil, err
	}
	order, err := g.topoOrder()
	if err != nil {
		return nil, err
	}
	idx := g.layers(order)
	groups := make([][]Task, len(idx))
	for i, layer := range idx {
		groups[i] = make([]Task, len(layer))
		for j, t := range layer {
			groups[i][j] = tasks[t]
		}
	}
	return groups, nil
}

type graph struct {
	tasks    []Task
	parents  [][]int
	children [][]int
	edges    map[[2]int]bool
}

func newGraph(tasks []Task) (*graph, error) {
	n := len(tasks)
	g := &graph{
		tasks:    tasks,
		parents:  make([][]int, n),
		children: make([][]int, n),
		edges:    make(map[[2]int]bool),
	}
	index := make(map[string]int, n)
	before := -1
	for i, t := range tasks {
		if _, dup := index[t.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTask, t.Name)
		}
		index[t.Name] = i
		if t.BeforeAll {
			if before >= 0 {
				return nil, ErrMultipleBeforeAll
			}
			if t.AfterAll || len(t.RunAfter) > 0 {
				return nil, fmt.Errorf("%w: %q", ErrConflictingOptions, t.Name)
			}
			before = i
		}
	}

	for i, t := range tasks {
		for _, dep := range t.RunAfter {
			if j, ok := index[dep]; ok {
				if j == i {
					return nil, &CycleError{Path: []string{t.Name, t.Name}}
				}
				g.addEdge(j, i)
			}
		}
	}
	if before >= 0 {
		for i, t := range tasks {
			if i != before && !t.AfterAll && len(g.parents[i]) == 0 {
				g.addEdge(before, i)
			}
		}
	}
	for a, t := range tasks {
		if !t.AfterAll {
			continue
		}
		for i, other := range tasks {
			if !other.AfterAll {
				g.addEdge(i, a)
			}
		}
	}
	return g, nil
}

func (g *graph) addEdge(from, to int) {
	k := [2]int{from, to}
	if g.edges[k] {
		return
	}
	g.edges[k] = true
	g.children[from] = append(g.children[from], to)
	g.parents[to] = append(g.parents[to], from)
}

const (
	white = iota
	gray
	black
)

// topoOrder runs a depth-first search from every task in declaration order
// and returns the reverse postorder.
func (g *graph) topoOrder() ([]int, error) {
	color := make([]int, len(g.tasks))
	post := make([]int, 0, len(g.tasks))
	var stack []int

	var visit func(i int) error
	visit = func(i int) error {
		color[i] = gray
		stack = append(stack, i)
		for _, c := range g.children[i] {
			switch color[c] {
			case gray:
				start := 0
				for k, s := range stack {
					if s == c {
						start = k
						break
					}
				}
				path := make([]string, 0, len(stack)-start+1)
				for _, s := range stack[start:] {
					path = append(path, g.tasks[s].Name)
				}
				return &CycleError{Path: append(path, g.tasks[c].Name)}
			case white:
				if err := visit(c); err != nil {
					return err
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[i] = black
		post = append(post, i)
		return nil
	}

	for i := range g.tasks {
		if color[i] == white {
			if err := visit(i); err != nil {
				return nil, err
			}
		}
	}
	order := make([]int, len(post))
	for i, t := range post {
		order[len(post)-1-i] = t
	}
	return order, nil
}

// layers groups the ordered tasks greedily: each round takes every remaining
// task whose parents all finished in earlier rounds.
func (g *graph) layers(order []int) [][]int {
	done := make([]bool, len(g.tasks))
	remaining := order
	var out [][]int
	for len(remaining) > 0 {
		var layer, rest []int
		for _, t := range remaining {
			ready := true
			for _, p := range g.parents[t] {
				if !done[p] {
					ready = false
					break
				}
			}
			if ready {
				layer = append(layer, t)
			} else {
				rest = append(rest, t)
			}
		}
		for _, t := range layer {
			done[t] = true
		}
		sort.Ints(layer)
		out = append(out, layer)
		remaining = rest
	}
	return out
}
