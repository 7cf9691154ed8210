package sched

import "math/rand"

type lesser[T any] interface {
	LessThan(other T) bool
}

// priorityTree is a randomized meldable heap. A nil tree is empty; every
// mutation returns the new root.
type priorityTree[T lesser[T]] struct {
	children [4]*priorityTree[T]
	element  T
	parent   *priorityTree[T]
}

func (tree *priorityTree[T]) detach(replacement *priorityTree[T]) {
	if tree == nil || tree.parent == nil {
		return
	}
	for i, child := range tree.parent.children {
		if child == tree {
			tree.parent.children[i] = replacement
			break
		}
	}
	tree.parent = nil
}

func (q1 *priorityTree[T]) meld(q2 *priorityTree[T]) *priorityTree[T] {
	if q1 == nil {
		q2.detach(nil)
		return q2
	}
	if q2 == nil {
		q1.detach(nil)
		return q1
	}
	if q1 == q2 {
		return q1
	}

	// keep the smaller root in q1
	if q2.element.LessThan(q1.element) {
		q1, q2 = q2, q1
	}
	root := q1
	root.detach(nil)

	for {
		branch := rand.Intn(len(q1.children))
		child := q1.children[branch]

		if child == nil {
			q2.parent = q1
			q1.children[branch] = q2
			break
		}

		// descend while the branch is no larger than q2
		if !q2.element.LessThan(child.element) {
			q1 = child
			continue
		}

		// q2 takes the branch's place and the displaced subtree is melded below it
		q1.children[branch] = q2
		q2.parent = q1
		q1, q2 = q2, child
	}
	return root
}

func (tree *priorityTree[T]) push(element T) *priorityTree[T] {
	return tree.meld(&priorityTree[T]{element: element})
}

// pop removes the root, returning the new tree.
func (tree *priorityTree[T]) pop() *priorityTree[T] {
	root := tree.children[0].meld(tree.children[1])
	for i := 2; i < len(tree.children); i++ {
		root = root.meld(tree.children[i])
	}
	return root
}

// readyJob orders jobs by earliest start, lowest index first on ties. That
// matches picking the first minimum of an ascending scan.
type readyJob struct {
	job      int
	earliest int
}

func (r readyJob) LessThan(other readyJob) bool {
	if r.earliest != other.earliest {
		return r.earliest < other.earliest
	}
	return r.job < other.job
}
